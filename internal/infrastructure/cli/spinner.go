package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// Spinner displays an animated spinner during long operations.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
	}
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for idx := 0; ; idx++ {
			fmt.Fprintf(s.writer, "\r%s interpreting…", s.frames[idx%len(s.frames)])
			select {
			case <-stop:
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}(s.stopChan)
}

// Stop ends the animation and clears the line. A stopped spinner can be
// started again.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()
	s.wg.Wait()
}

// StderrIsTerminal reports whether progress output would reach a person.
func StderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StdinIsTerminal reports whether line editing can be used.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// spinningInterpreter shows the spinner while the interpreter works.
type spinningInterpreter struct {
	inner   ports.Interpreter
	spinner *Spinner
}

// WithSpinner wraps inner so every call animates a spinner on w.
func WithSpinner(inner ports.Interpreter, w io.Writer) ports.Interpreter {
	return &spinningInterpreter{inner: inner, spinner: NewSpinner(w)}
}

func (s *spinningInterpreter) Parse(ctx context.Context, text string) (domain.StructuredCommand, error) {
	s.spinner.Start()
	defer s.spinner.Stop()
	return s.inner.Parse(ctx, text)
}

func (s *spinningInterpreter) ParseToCompoundArgs(ctx context.Context, text string) ([][]string, string, error) {
	s.spinner.Start()
	defer s.spinner.Stop()
	return s.inner.ParseToCompoundArgs(ctx, text)
}
