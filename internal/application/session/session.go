// Package session runs the interactive read-dispatch loop. Built-in commands
// are handled locally; everything else goes through the router.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/suggest"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/pkg/shellwords"
	"github.com/doeshing/tasq/internal/ports"
)

// Dispatcher routes one line of input.
type Dispatcher interface {
	Route(ctx context.Context, req router.Request) (router.Outcome, error)
}

// Presenter renders session output.
type Presenter interface {
	Outcome(out router.Outcome, showInterpretation bool)
	Error(err error)
	Notice(msg string)
	Section(title string, lines []string)
}

// EndReason says why Run returned.
type EndReason string

const (
	EndExit    EndReason = "exit"
	EndEOF     EndReason = "eof"
	EndTimeout EndReason = "timeout"
)

type builtin int

const (
	notBuiltin builtin = iota
	builtinExit
	builtinHelp
	builtinContext
	builtinClear
	builtinRepeat
	builtinHistory
)

var builtins = map[string]builtin{
	"exit":    builtinExit,
	"quit":    builtinExit,
	"q":       builtinExit,
	"help":    builtinHelp,
	"h":       builtinHelp,
	"?":       builtinHelp,
	"context": builtinContext,
	"ctx":     builtinContext,
	"clear":   builtinClear,
	"reset":   builtinClear,
	"repeat":  builtinRepeat,
	"r":       builtinRepeat,
	"history": builtinHistory,
}

// Session owns REPL state for one invocation. It is not safe for concurrent use.
type Session struct {
	Router    Dispatcher
	Reader    ports.LineReader
	Presenter Presenter
	Completer *suggest.AutoCompleter
	History   ports.HistoryRepository
	Items     ports.ItemRepository
	Config    domain.Config
	NoNLP     bool
	Mode      domain.ExecutionMode
	Logger    ports.Logger
	Now       func() time.Time

	info        domain.SessionInfo
	lastCommand string
	pending     string
}

type readResult struct {
	line string
	err  error
}

// Run loops until exit, end of input, idle timeout or ctx cancellation.
func (s *Session) Run(ctx context.Context) (EndReason, error) {
	if s.Router == nil || s.Reader == nil {
		return "", errors.New("session.Session dependencies not satisfied")
	}
	if s.Presenter == nil {
		s.Presenter = TextPresenter{W: io.Discard}
	}
	timeout, err := s.Config.SessionTimeout()
	if err != nil {
		return "", err
	}

	now := s.now()
	s.info = domain.SessionInfo{ID: uuid.NewString(), StartedAt: now, LastActivity: now, Active: true}
	defer func() { s.info.Active = false }()
	s.seed(ctx)
	s.logger().Info("session started", map[string]interface{}{"session_id": s.info.ID})

	if s.Config.Interactive.ShowContextOnStart {
		s.Presenter.Section("tasq interactive", s.contextLines())
		s.Presenter.Notice("Type 'help' for commands, 'exit' to quit.")
	}

	for {
		line, reason, err := s.readLine(ctx, timeout)
		if reason != "" {
			s.end(reason)
			return reason, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.info.Touch(s.now())

		switch builtins[strings.ToLower(line)] {
		case builtinExit:
			s.end(EndExit)
			return EndExit, nil
		case builtinHelp:
			s.Presenter.Section("Commands", helpLines())
		case builtinContext:
			s.Presenter.Section("Session", s.contextLines())
		case builtinClear:
			s.lastCommand = ""
			s.pending = ""
			s.Presenter.Notice("Session context cleared.")
		case builtinRepeat:
			if s.lastCommand == "" {
				s.Presenter.Notice("Nothing to repeat yet.")
				continue
			}
			s.Presenter.Notice("Repeating: " + s.lastCommand)
			s.dispatch(ctx, s.lastCommand)
		case builtinHistory:
			s.Presenter.Section("History", s.historyLines())
		default:
			s.dispatch(ctx, line)
		}
	}
}

// Info returns a copy of the session bookkeeping.
func (s *Session) Info() domain.SessionInfo {
	return s.info
}

func (s *Session) dispatch(ctx context.Context, line string) {
	text := line
	if s.pending != "" {
		text = s.pending + " " + line
		s.pending = ""
	}
	args, err := shellwords.Split(text)
	if err != nil {
		// Natural language often carries a lone apostrophe.
		args = strings.Fields(text)
	}

	outcome, err := s.Router.Route(ctx, router.Request{
		Args:   args,
		NoNLP:  s.NoNLP,
		Mode:   s.Mode,
		Config: s.Config,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCancelled):
			s.Presenter.Notice(domain.ErrCancelled.Error())
		case domain.IsAmbiguous(err):
			s.pending = text
			s.Presenter.Error(err)
			s.Presenter.Notice("Add more detail and it will be combined with your last input.")
		default:
			s.Presenter.Error(err)
		}
		s.logger().Debug("session dispatch failed", map[string]interface{}{
			"session_id": s.info.ID,
			"input":      text,
			"error":      err.Error(),
		})
		return
	}

	s.Presenter.Outcome(outcome, s.Config.Interactive.ShowInterpretation)
	if outcome.Summary == nil || outcome.Summary.IsCompleteSuccess() {
		s.lastCommand = text
	}
	if s.Completer != nil {
		s.Completer.AddToHistory(text)
	}
}

// readLine waits for the next line. A non-empty reason ends the session.
// Returning early cancels readCtx, which stops a ContextLineReader. A plain
// LineReader cannot be interrupted; its goroutine stays blocked until the
// read returns and then exits through the buffered channel.
func (s *Session) readLine(ctx context.Context, timeout time.Duration) (string, EndReason, error) {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan readResult, 1)
	go func() {
		var line string
		var err error
		if r, ok := s.Reader.(ports.ContextLineReader); ok {
			line, err = r.ReadLineContext(readCtx, s.Config.Interactive.Prompt)
		} else {
			line, err = s.Reader.ReadLine(s.Config.Interactive.Prompt)
		}
		results <- readResult{line: line, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		remaining := timeout - s.info.IdleFor(s.now())
		if remaining <= 0 {
			return "", EndTimeout, nil
		}
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return "", EndExit, ctx.Err()
	case <-expired:
		return "", EndTimeout, nil
	case r := <-results:
		if errors.Is(r.err, io.EOF) {
			return "", EndEOF, nil
		}
		if r.err != nil {
			return "", EndExit, fmt.Errorf("read input: %w", r.err)
		}
		return r.line, "", nil
	}
}

// seed loads recent inputs and known categories into the completer.
func (s *Session) seed(ctx context.Context) {
	if s.Completer == nil {
		return
	}
	if s.History != nil {
		records, err := s.History.Records(s.Config.History.MaxEntries, "")
		if err != nil {
			s.logger().Warn("history unavailable for completion", map[string]interface{}{"error": err.Error()})
		}
		for i := len(records) - 1; i >= 0; i-- {
			s.Completer.AddToHistory(records[i].Input)
		}
	}
	if s.Items != nil {
		categories, err := s.Items.Categories(ctx)
		if err != nil {
			s.logger().Warn("categories unavailable for completion", map[string]interface{}{"error": err.Error()})
			return
		}
		s.Completer.UpdateCategories(categories)
	}
}

func (s *Session) end(reason EndReason) {
	s.info.Active = false
	switch reason {
	case EndTimeout:
		s.Presenter.Notice("Session timed out.")
	default:
		s.Presenter.Notice("Goodbye.")
	}
	s.logger().Info("session ended", map[string]interface{}{
		"session_id":   s.info.ID,
		"reason":       string(reason),
		"interactions": s.info.InteractionCount,
	})
}

func (s *Session) contextLines() []string {
	nlp := "off"
	if s.Config.IsNLPEnabled() && !s.NoNLP {
		nlp = s.Config.EffectiveProvider()
	}
	lines := []string{
		"Session:      " + s.info.ID,
		fmt.Sprintf("Interactions: %d", s.info.InteractionCount),
		"Running for:  " + s.info.Duration(s.now()).Round(time.Second).String(),
		"Language:     " + nlp,
	}
	if s.lastCommand != "" {
		lines = append(lines, "Last command: "+s.lastCommand)
	}
	if s.pending != "" {
		lines = append(lines, "Awaiting:     clarification of "+fmt.Sprintf("%q", s.pending))
	}
	return lines
}

func (s *Session) historyLines() []string {
	if s.Completer == nil {
		return []string{"(history disabled)"}
	}
	entries := s.Completer.History()
	if len(entries) == 0 {
		return []string{"(empty)"}
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%3d  %s", i+1, e)
	}
	return lines
}

func helpLines() []string {
	return []string{
		"exit, quit, q     leave the session",
		"help, h, ?        show this help",
		"context, ctx      show session state",
		"clear, reset      forget the last command and pending clarification",
		"repeat, r         run the last successful command again",
		"history           show recent commands",
		"anything else     task commands or plain language",
	}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) logger() ports.Logger {
	if s.Logger == nil {
		return logger.Nop{}
	}
	return s.Logger
}
