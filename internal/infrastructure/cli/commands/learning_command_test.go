package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/learning"
)

func openLearning(t *testing.T) *learning.SQLiteStore {
	t.Helper()
	store, err := learning.Open(filepath.Join(t.TempDir(), "learning.db"))
	if err != nil {
		t.Fatalf("learning.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTaughtFlags(t *testing.T) {
	good := taughtFlags{action: "add", content: " buy milk ", category: "home"}
	cmd, err := good.command()
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if cmd.Action != domain.ActionTask || cmd.Content != "buy milk" || cmd.Category != "home" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	bad := taughtFlags{action: "juggle"}
	if _, err := bad.command(); err == nil || !strings.Contains(err.Error(), "juggle") {
		t.Fatalf("expected unknown action error, got %v", err)
	}
}

func TestLearningOutput(t *testing.T) {
	store := openLearning(t)
	var out bytes.Buffer

	if err := showLearning(&out, store); err != nil {
		t.Fatalf("showLearning: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != MsgNoCorrections {
		t.Fatalf("empty listing = %q", got)
	}

	out.Reset()
	taught := domain.StructuredCommand{Action: domain.ActionTask, Content: "milk", Category: "home"}
	if err := learnCorrection(&out, store, "grab milk", taught); err != nil {
		t.Fatalf("learnCorrection: %v", err)
	}
	if want := "Learned: \"grab milk\" -> task milk (category: home)\n"; out.String() != want {
		t.Fatalf("learn output = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := showLearning(&out, store); err != nil {
		t.Fatalf("showLearning: %v", err)
	}
	if !strings.Contains(out.String(), " 50%") || !strings.Contains(out.String(), "taught 1x") {
		t.Fatalf("listing missing confidence or count:\n%s", out.String())
	}
}

func TestShortcutListing(t *testing.T) {
	store := openLearning(t)
	if err := store.CreateShortcut("morning", domain.StructuredCommand{Action: domain.ActionList, Category: "work"}); err != nil {
		t.Fatalf("CreateShortcut: %v", err)
	}
	store.Shortcut("morning")

	var out bytes.Buffer
	if err := listShortcuts(&out, store); err != nil {
		t.Fatalf("listShortcuts: %v", err)
	}
	if !strings.Contains(out.String(), "list (category: work) (1 use)") {
		t.Fatalf("unexpected listing:\n%s", out.String())
	}
}

func TestPersonalizationExportImport(t *testing.T) {
	src := openLearning(t)
	if err := src.CreateShortcut("gm", domain.StructuredCommand{Action: domain.ActionList}); err != nil {
		t.Fatalf("CreateShortcut: %v", err)
	}
	path := filepath.Join(t.TempDir(), "personal.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Export(f); err != nil {
		t.Fatalf("Export: %v", err)
	}
	f.Close()

	dst := openLearning(t)
	var out bytes.Buffer
	if err := importPersonalization(&out, dst, path); err != nil {
		t.Fatalf("importPersonalization: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Imported 1 entry from ") {
		t.Fatalf("import output = %q", out.String())
	}

	out.Reset()
	if err := showPersonalization(&out, dst); err != nil {
		t.Fatalf("showPersonalization: %v", err)
	}
	if !strings.Contains(out.String(), "Shortcuts:          1 (0 uses)") {
		t.Fatalf("status output:\n%s", out.String())
	}

	if err := importPersonalization(&out, dst, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
