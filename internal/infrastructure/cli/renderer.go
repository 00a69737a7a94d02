package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/session"
	"github.com/doeshing/tasq/internal/domain"
)

var (
	primary   = lipgloss.Color("#7C3AED")
	secondary = lipgloss.Color("#10B981")
	muted     = lipgloss.Color("#6B7280")
	warning   = lipgloss.Color("#F59E0B")
	danger    = lipgloss.Color("#EF4444")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(secondary).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

// Presenter renders routing outcomes and session output with terminal
// styling. lipgloss drops the colors when stdout is not a terminal.
type Presenter struct {
	w io.Writer
}

// NewPresenter returns a presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

// Outcome prints the interpretation line (when asked) and the compound summary.
// Traditional commands already printed their own output.
func (p *Presenter) Outcome(out router.Outcome, showInterpretation bool) {
	if out.Path != router.PathNLP {
		return
	}
	if showInterpretation && out.Interpretation != nil {
		fmt.Fprintln(p.w, mutedStyle.Render("→ "+out.Interpretation.Description+interpretationSource(out)))
	}
	for _, risk := range out.Risk {
		if risk.Level != domain.RiskSafe && len(risk.Reasons) > 0 {
			fmt.Fprintln(p.w, warnStyle.Render(fmt.Sprintf("%s risk:", strings.ToUpper(string(risk.Level))))+" "+strings.Join(risk.Reasons, "; "))
		}
	}
	for _, note := range out.SkippedNotes() {
		fmt.Fprintln(p.w, mutedStyle.Render(note))
	}
	if out.Summary == nil || out.Summary.Total <= 1 {
		return
	}
	if out.Summary.IsCompleteSuccess() {
		fmt.Fprintln(p.w, successStyle.Render(out.Summary.Message()))
		return
	}
	fmt.Fprintln(p.w, warnStyle.Render(out.Summary.Message()))
	for _, r := range out.Summary.Results {
		if !r.Success {
			fmt.Fprintf(p.w, "  %s %s\n", errorStyle.Render(fmt.Sprintf("#%d", r.Index+1)), r.Error)
		}
	}
}

func (p *Presenter) Error(err error) {
	fmt.Fprintf(p.w, "%s %v\n", errorStyle.Render("error:"), err)
}

func (p *Presenter) Notice(msg string) {
	fmt.Fprintln(p.w, mutedStyle.Render(msg))
}

func (p *Presenter) Section(title string, lines []string) {
	fmt.Fprintln(p.w, titleStyle.Render(title))
	for _, line := range lines {
		fmt.Fprintf(p.w, "  %s\n", line)
	}
}

func interpretationSource(out router.Outcome) string {
	if out.Interpretation.CacheHit {
		return " (cached)"
	}
	cmd := out.Interpretation.Command
	if cmd.Source == "" {
		return ""
	}
	if cmd.Confidence != nil {
		return fmt.Sprintf(" (%s, %.0f%%)", cmd.Source, *cmd.Confidence*100)
	}
	return fmt.Sprintf(" (%s)", cmd.Source)
}

var _ session.Presenter = (*Presenter)(nil)
