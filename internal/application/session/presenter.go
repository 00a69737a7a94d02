package session

import (
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/tasq/internal/application/router"
)

// TextPresenter writes unstyled output. The CLI swaps in a styled one.
type TextPresenter struct {
	W io.Writer
}

func (p TextPresenter) Outcome(out router.Outcome, showInterpretation bool) {
	if out.Path != router.PathNLP {
		return
	}
	if showInterpretation && out.Interpretation != nil {
		fmt.Fprintf(p.W, "→ %s\n", out.Interpretation.Description)
	}
	for _, note := range out.SkippedNotes() {
		fmt.Fprintln(p.W, note)
	}
	if out.Summary != nil && out.Summary.Total > 1 {
		fmt.Fprintln(p.W, out.Summary.Message())
	}
}

func (p TextPresenter) Error(err error) {
	fmt.Fprintf(p.W, "error: %v\n", err)
}

func (p TextPresenter) Notice(msg string) {
	fmt.Fprintln(p.W, msg)
}

func (p TextPresenter) Section(title string, lines []string) {
	fmt.Fprintf(p.W, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	for _, line := range lines {
		fmt.Fprintf(p.W, "  %s\n", line)
	}
}
