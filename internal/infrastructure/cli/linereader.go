package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/doeshing/tasq/internal/ports"
)

// Completer supplies completion candidates for the current input.
type Completer interface {
	Complete(input string) []string
}

// LineReaderFor picks the editing reader on a terminal and the shared plain
// reader otherwise.
func LineReaderFor(completer Completer, fallback *Prompter) ports.LineReader {
	if !StdinIsTerminal() || completer == nil {
		return fallback
	}
	return &EditingReader{Completer: completer, In: os.Stdin, Out: os.Stdout}
}

// EditingReader reads one line per call through a small bubbletea program.
// Completions appear inline; Tab accepts, Ctrl+N/Ctrl+P cycle.
type EditingReader struct {
	Completer Completer
	In        io.Reader
	Out       io.Writer
}

func (r *EditingReader) ReadLine(prompt string) (string, error) {
	return r.ReadLineContext(context.Background(), prompt)
}

// ReadLineContext stops the input program when ctx is done.
func (r *EditingReader) ReadLineContext(ctx context.Context, prompt string) (string, error) {
	program := tea.NewProgram(newInputModel(prompt, r.Completer),
		tea.WithContext(ctx), tea.WithInput(r.In), tea.WithOutput(r.Out))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	m := final.(inputModel)
	if m.eof {
		return "", io.EOF
	}
	return m.input.Value(), nil
}

type inputModel struct {
	input     textinput.Model
	completer Completer
	done      bool
	eof       bool
}

func newInputModel(prompt string, completer Completer) inputModel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "task, list, or plain language"
	ti.PromptStyle = titleStyle
	ti.PlaceholderStyle = mutedStyle
	ti.CompletionStyle = mutedStyle
	ti.ShowSuggestions = true
	ti.Focus()
	return inputModel{input: ti, completer: completer}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.eof = true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.eof = true
				return m, tea.Quit
			}
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before || before == "" {
		m.refreshSuggestions(value)
	}
	return m, cmd
}

func (m *inputModel) refreshSuggestions(value string) {
	if m.completer == nil || strings.TrimSpace(value) == "" {
		m.input.SetSuggestions(nil)
		return
	}
	m.input.SetSuggestions(m.completer.Complete(value))
}

func (m inputModel) View() string {
	if m.done || m.eof {
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}

var _ ports.ContextLineReader = (*EditingReader)(nil)
