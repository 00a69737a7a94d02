package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/suggest"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/interpreter"
)

type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) ReadLine(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type blockingReader struct {
	release chan struct{}
}

func (r blockingReader) ReadLine(string) (string, error) {
	<-r.release
	return "", io.EOF
}

// contextReader blocks until its context ends and reports that it saw it.
type contextReader struct {
	stopped chan error
}

func (r contextReader) ReadLine(string) (string, error) {
	panic("session should prefer ReadLineContext")
}

func (r contextReader) ReadLineContext(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	r.stopped <- ctx.Err()
	return "", ctx.Err()
}

type stubRouter struct {
	requests []router.Request
	errs     map[string]error
	outcomes map[string]router.Outcome
}

func (r *stubRouter) Route(ctx context.Context, req router.Request) (router.Outcome, error) {
	r.requests = append(r.requests, req)
	if len(req.Args) > 0 {
		if err, ok := r.errs[req.Args[0]]; ok {
			return router.Outcome{}, err
		}
		if out, ok := r.outcomes[req.Args[0]]; ok {
			return out, nil
		}
	}
	return router.Outcome{Path: router.PathTraditional}, nil
}

type stubHistory struct {
	records []domain.HistoryRecord
}

func (h stubHistory) Save(domain.HistoryRecord) error { return nil }
func (h stubHistory) Records(int, string) ([]domain.HistoryRecord, error) {
	return h.records, nil
}
func (h stubHistory) Stats() (domain.HistoryStats, error) { return domain.HistoryStats{}, nil }
func (h stubHistory) Retain(int) (int, error)             { return 0, nil }
func (h stubHistory) Clear() error                        { return nil }
func (h stubHistory) ExportJSON(string) error             { return nil }
func (h stubHistory) Path() string                        { return "" }

func newSession(lines ...string) (*Session, *stubRouter, *bytes.Buffer) {
	rt := &stubRouter{errs: map[string]error{}, outcomes: map[string]router.Outcome{}}
	var out bytes.Buffer
	return &Session{
		Router:    rt,
		Reader:    &scriptedReader{lines: lines},
		Presenter: TextPresenter{W: &out},
		Completer: suggest.NewAutoCompleter(suggest.NewEngine(interpreter.RuleMatcher{}), 10),
	}, rt, &out
}

func TestRun_BuiltinsNeverReachRouter(t *testing.T) {
	s, rt, out := newSession("help", "CTX", "History", "clear", "Exit", "task never")

	reason, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EndExit, reason)
	assert.Empty(t, rt.requests)
	assert.Equal(t, 5, s.Info().InteractionCount)
	assert.False(t, s.Info().Active)
	assert.NotEmpty(t, s.Info().ID)
	assert.Contains(t, out.String(), "repeat, r")
	assert.Contains(t, out.String(), "Goodbye.")
}

func TestRun_EndOfInput(t *testing.T) {
	s, rt, _ := newSession("", "   ", "list task")

	reason, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EndEOF, reason)
	require.Len(t, rt.requests, 1)
	assert.Equal(t, []string{"list", "task"}, rt.requests[0].Args)
	assert.Equal(t, 1, s.Info().InteractionCount)
}

func TestRun_Repeat(t *testing.T) {
	t.Run("nothing to repeat", func(t *testing.T) {
		s, rt, out := newSession("r")
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, rt.requests)
		assert.Contains(t, out.String(), "Nothing to repeat yet.")
	})

	t.Run("failures are not repeated", func(t *testing.T) {
		s, rt, out := newSession("done nothing", "repeat")
		rt.errs["done"] = errors.New("no match")
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, rt.requests, 1)
		assert.Contains(t, out.String(), "error: no match")
		assert.Contains(t, out.String(), "Nothing to repeat yet.")
	})

	t.Run("partial failures are not repeated", func(t *testing.T) {
		s, rt, out := newSession("list work", "buy milk and call bob", "r")
		rt.outcomes["buy"] = router.Outcome{Path: router.PathNLP, Summary: &domain.ExecutionSummary{
			Total:   2,
			Results: []domain.ExecutionResult{{Index: 0, Success: true}, {Index: 1, Error: "store locked"}},
		}}
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, rt.requests, 3)
		assert.Equal(t, []string{"list", "work"}, rt.requests[2].Args)
		assert.Contains(t, out.String(), "Repeating: list work")
	})

	t.Run("repeats last success", func(t *testing.T) {
		s, rt, _ := newSession("task water plants", "REPEAT")
		_, err := s.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, rt.requests, 2)
		assert.Equal(t, rt.requests[0].Args, rt.requests[1].Args)
		assert.Equal(t, 2, s.Info().InteractionCount)
	})
}

func TestRun_CountsFailedLines(t *testing.T) {
	s, rt, _ := newSession("boom one", "boom two", "list")
	rt.errs["boom"] = errors.New("bad")

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Info().InteractionCount)
	assert.Equal(t, []string{"list"}, s.Completer.History())
}

func TestRun_AmbiguousInputAwaitsClarification(t *testing.T) {
	s, rt, out := newSession("clean up", "the done tasks")
	rt.errs["clean"] = &domain.InterpretError{Input: "clean up", Message: "which items?", Ambiguous: true}

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rt.requests, 2)
	assert.Equal(t, []string{"clean", "up", "the", "done", "tasks"}, rt.requests[1].Args)
	assert.Contains(t, out.String(), "ambiguous")
}

func TestRun_CancelledIsANotice(t *testing.T) {
	s, rt, out := newSession("delete all")
	rt.errs["delete"] = domain.ErrCancelled

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), domain.ErrCancelled.Error())
	assert.NotContains(t, out.String(), "error:")
}

func TestRun_PassesModeAndQuotedArgs(t *testing.T) {
	s, rt, _ := newSession(`task -c home "fix the sink" tomorrow`)
	s.Mode = domain.ModeDependent
	s.NoNLP = true

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rt.requests, 1)
	assert.Equal(t, []string{"task", "-c", "home", "fix the sink", "tomorrow"}, rt.requests[0].Args)
	assert.Equal(t, domain.ModeDependent, rt.requests[0].Mode)
	assert.True(t, rt.requests[0].NoNLP)
}

func TestRun_IdleTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, _, out := newSession()
	s.Reader = blockingReader{release: release}
	s.Config.Interactive.SessionTimeout = "20ms"

	reason, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EndTimeout, reason)
	assert.Contains(t, out.String(), "Session timed out.")
}

func TestRun_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, _, _ := newSession()
	s.Reader = blockingReader{release: release}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_TimeoutStopsContextReader(t *testing.T) {
	s, _, _ := newSession()
	reader := contextReader{stopped: make(chan error, 1)}
	s.Reader = reader
	s.Config.Interactive.SessionTimeout = "20ms"

	reason, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, EndTimeout, reason)
	select {
	case err := <-reader.stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pending read was not cancelled")
	}
}

func TestRun_SeedsCompleterFromHistory(t *testing.T) {
	s, _, _ := newSession()
	s.History = stubHistory{records: []domain.HistoryRecord{
		{Input: "newest"},
		{Input: "middle"},
		{Input: "oldest"},
	}}

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest", "middle", "newest"}, s.Completer.History())
}
