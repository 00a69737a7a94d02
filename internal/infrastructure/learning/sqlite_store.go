// Package learning stores taught corrections and personal shortcuts. Both
// are consulted before the response cache and the interpreter.
package learning

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

const (
	initialConfidence  = 0.5
	confidenceStep     = 0.1
	maxConfidence      = 0.95
	correctionsColumns = `input, command, confirmations, confidence, learned_at, last_used_at`
)

// SQLiteStore keeps corrections and shortcuts in one sqlite file. Keys are the
// normalized input, so case and spacing do not matter.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Open opens (or creates) the learning database at path.
func Open(path string) (*SQLiteStore, error) {
	path = filesystem.ExpandPath(path)
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return nil, &domain.LearningError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, &domain.LearningError{Op: "open", Err: err}
	}
	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, &domain.LearningError{Op: "init", Err: err}
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS corrections (
			input TEXT PRIMARY KEY,
			command BLOB NOT NULL,
			confirmations INTEGER NOT NULL DEFAULT 1,
			confidence REAL NOT NULL,
			learned_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS shortcuts (
			name TEXT PRIMARY KEY,
			command BLOB NOT NULL,
			uses INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

// Learn records that input means cmd. Teaching the same input again bumps
// the confirmation count and confidence and replaces the command.
func (s *SQLiteStore) Learn(input string, cmd domain.StructuredCommand) error {
	key := domain.NormalizeInput(input)
	if key == "" {
		return &domain.LearningError{Op: "learn", Err: errors.New("empty input")}
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return &domain.LearningError{Op: "encode", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().Unix()
	_, err = s.db.Exec(`INSERT INTO corrections (`+correctionsColumns+`)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(input) DO UPDATE SET
			command = excluded.command,
			confirmations = confirmations + 1,
			confidence = MIN(confidence + ?, ?),
			last_used_at = excluded.last_used_at`,
		key, data, initialConfidence, now, now, confidenceStep, maxConfidence,
	)
	if err != nil {
		return &domain.LearningError{Op: "learn", Err: err}
	}
	return nil
}

// Correction returns the taught command for input. Lookup failures are
// reported as a miss.
func (s *SQLiteStore) Correction(input string) (domain.StructuredCommand, bool) {
	key := domain.NormalizeInput(input)
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	if err := s.db.QueryRow(`SELECT command FROM corrections WHERE input = ?`, key).Scan(&data); err != nil {
		return domain.StructuredCommand{}, false
	}
	var cmd domain.StructuredCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.StructuredCommand{}, false
	}
	_, _ = s.db.Exec(`UPDATE corrections SET last_used_at = ? WHERE input = ?`, s.now().Unix(), key)
	return cmd, true
}

// Corrections lists every correction, most confident first.
func (s *SQLiteStore) Corrections() ([]domain.LearnedCorrection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT ` + correctionsColumns + ` FROM corrections ORDER BY confidence DESC, input`)
	if err != nil {
		return nil, &domain.LearningError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []domain.LearnedCorrection
	for rows.Next() {
		var c domain.LearnedCorrection
		var data []byte
		var learned, lastUsed int64
		if err := rows.Scan(&c.Input, &data, &c.Confirmations, &c.Confidence, &learned, &lastUsed); err != nil {
			return nil, &domain.LearningError{Op: "list", Err: err}
		}
		if err := json.Unmarshal(data, &c.Command); err != nil {
			continue
		}
		c.LearnedAt = time.Unix(learned, 0)
		c.LastUsedAt = time.Unix(lastUsed, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClearCorrections forgets every taught correction.
func (s *SQLiteStore) ClearCorrections() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM corrections`); err != nil {
		return &domain.LearningError{Op: "clear", Err: err}
	}
	return nil
}

// CreateShortcut binds name to cmd, replacing any earlier binding.
func (s *SQLiteStore) CreateShortcut(name string, cmd domain.StructuredCommand) error {
	key := domain.NormalizeInput(name)
	if key == "" {
		return &domain.LearningError{Op: "shortcut", Err: errors.New("empty shortcut name")}
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return &domain.LearningError{Op: "encode", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT OR REPLACE INTO shortcuts (name, command, uses, created_at) VALUES (?, ?, 0, ?)`,
		key, data, s.now().Unix())
	if err != nil {
		return &domain.LearningError{Op: "shortcut", Err: err}
	}
	return nil
}

// Shortcut expands name and counts the use.
func (s *SQLiteStore) Shortcut(name string) (domain.StructuredCommand, bool) {
	key := domain.NormalizeInput(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	if err := s.db.QueryRow(`SELECT command FROM shortcuts WHERE name = ?`, key).Scan(&data); err != nil {
		return domain.StructuredCommand{}, false
	}
	var cmd domain.StructuredCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return domain.StructuredCommand{}, false
	}
	_, _ = s.db.Exec(`UPDATE shortcuts SET uses = uses + 1 WHERE name = ?`, key)
	return cmd, true
}

// Shortcuts lists every shortcut by name.
func (s *SQLiteStore) Shortcuts() ([]domain.Shortcut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT name, command, uses, created_at FROM shortcuts ORDER BY name`)
	if err != nil {
		return nil, &domain.LearningError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []domain.Shortcut
	for rows.Next() {
		var (
			sc      domain.Shortcut
			data    []byte
			created int64
		)
		if err := rows.Scan(&sc.Name, &data, &sc.Uses, &created); err != nil {
			return nil, &domain.LearningError{Op: "list", Err: err}
		}
		if err := json.Unmarshal(data, &sc.Command); err != nil {
			continue
		}
		sc.CreatedAt = time.Unix(created, 0)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// DeleteShortcut removes name and reports whether it existed.
func (s *SQLiteStore) DeleteShortcut(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM shortcuts WHERE name = ?`, domain.NormalizeInput(name))
	if err != nil {
		return false, &domain.LearningError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &domain.LearningError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

// Reset removes shortcuts and corrections alike.
func (s *SQLiteStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM shortcuts; DELETE FROM corrections;`); err != nil {
		return &domain.LearningError{Op: "reset", Err: err}
	}
	return nil
}

// Stats summarizes both tables.
func (s *SQLiteStore) Stats() (domain.LearningStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats domain.LearningStats
	err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(confirmations), 0), COALESCE(AVG(confidence), 0) FROM corrections`).
		Scan(&stats.Corrections, &stats.Confirmations, &stats.AverageConfidence)
	if err != nil {
		return domain.LearningStats{}, &domain.LearningError{Op: "stats", Err: err}
	}
	err = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(uses), 0) FROM shortcuts`).
		Scan(&stats.Shortcuts, &stats.ShortcutUses)
	if err != nil {
		return domain.LearningStats{}, &domain.LearningError{Op: "stats", Err: err}
	}
	stats.AverageConfidence = math.Round(stats.AverageConfidence*100) / 100
	return stats, nil
}

// Export writes every correction and shortcut as indented JSON.
func (s *SQLiteStore) Export(w io.Writer) error {
	corrections, err := s.Corrections()
	if err != nil {
		return err
	}
	shortcuts, err := s.Shortcuts()
	if err != nil {
		return err
	}
	doc := domain.PersonalizationData{
		Version:     domain.PersonalizationFormatVersion,
		ExportedAt:  s.now().UTC(),
		Corrections: corrections,
		Shortcuts:   shortcuts,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &domain.LearningError{Op: "export", Err: err}
	}
	return nil
}

// Import merges an exported document. Imported entries replace local ones
// with the same key; counts and timestamps are kept from the document.
// It returns how many entries were written.
func (s *SQLiteStore) Import(r io.Reader) (int, error) {
	var doc domain.PersonalizationData
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return 0, &domain.LearningError{Op: "import", Err: err}
	}
	if doc.Version != "" && doc.Version != domain.PersonalizationFormatVersion {
		return 0, &domain.LearningError{Op: "import", Err: fmt.Errorf("unsupported format version %q", doc.Version)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &domain.LearningError{Op: "import", Err: err}
	}
	defer tx.Rollback()

	now := s.now().Unix()
	written := 0
	for _, c := range doc.Corrections {
		key := domain.NormalizeInput(c.Input)
		if key == "" {
			continue
		}
		data, err := json.Marshal(c.Command)
		if err != nil {
			return 0, &domain.LearningError{Op: "import", Err: err}
		}
		_, err = tx.Exec(`INSERT OR REPLACE INTO corrections (`+correctionsColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			key, data, max(c.Confirmations, 1), clampConfidence(c.Confidence),
			unixOr(c.LearnedAt, now), unixOr(c.LastUsedAt, now))
		if err != nil {
			return 0, &domain.LearningError{Op: "import", Err: err}
		}
		written++
	}
	for _, sc := range doc.Shortcuts {
		key := domain.NormalizeInput(sc.Name)
		if key == "" {
			continue
		}
		data, err := json.Marshal(sc.Command)
		if err != nil {
			return 0, &domain.LearningError{Op: "import", Err: err}
		}
		_, err = tx.Exec(`INSERT OR REPLACE INTO shortcuts (name, command, uses, created_at) VALUES (?, ?, ?, ?)`,
			key, data, max(sc.Uses, 0), unixOr(sc.CreatedAt, now))
		if err != nil {
			return 0, &domain.LearningError{Op: "import", Err: err}
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, &domain.LearningError{Op: "import", Err: err}
	}
	return written, nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) String() string {
	return fmt.Sprintf("learning store at %s", s.path)
}

func clampConfidence(v float64) float64 {
	if v <= 0 {
		return initialConfidence
	}
	return math.Min(v, maxConfidence)
}

func unixOr(t time.Time, fallback int64) int64 {
	if t.IsZero() {
		return fallback
	}
	return t.Unix()
}

// Describe renders a taught command the way list output shows it.
func Describe(cmd domain.StructuredCommand) string {
	parts := []string{string(cmd.Action)}
	if cmd.Content != "" {
		parts = append(parts, cmd.Content)
	}
	if cmd.Category != "" {
		parts = append(parts, "(category: "+cmd.Category+")")
	}
	return strings.Join(parts, " ")
}

var (
	_ ports.LearningRepository = (*SQLiteStore)(nil)
	_ ports.LearningReporter   = (*SQLiteStore)(nil)
)
