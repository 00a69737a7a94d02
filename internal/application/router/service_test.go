package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/tasq/internal/application/executor"
	"github.com/doeshing/tasq/internal/application/interpret"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/mapper"
	"github.com/doeshing/tasq/internal/ports"
)

// stubRunner accepts "<keyword> <something>" and rejects everything else as a
// parse error. Joined args containing "explode" fail at execution time.
type stubRunner struct {
	calls [][]string
}

func (r *stubRunner) Execute(ctx context.Context, args []string) (ports.ActionReport, error) {
	r.calls = append(r.calls, args)
	joined := strings.Join(args, " ")
	if len(args) == 0 || !IsKeyword(args[0]) || strings.Contains(joined, " of ") {
		return ports.ActionReport{}, &domain.ParseError{Input: joined, Reason: "unrecognized"}
	}
	if strings.Contains(joined, "explode") {
		return ports.ActionReport{}, errors.New("store exploded")
	}
	return ports.ActionReport{Content: joined}, nil
}

type stubInterpreter struct {
	calls int
	cmd   domain.StructuredCommand
	err   error
}

func (s *stubInterpreter) Parse(ctx context.Context, text string) (domain.StructuredCommand, error) {
	s.calls++
	return s.cmd, s.err
}

func (s *stubInterpreter) ParseToCompoundArgs(ctx context.Context, text string) ([][]string, string, error) {
	return nil, "", errors.New("not used")
}

type stubGuard struct {
	byVerb map[string]domain.RiskAssessment
}

func (g stubGuard) Evaluate(args []string) (domain.RiskAssessment, error) {
	if risk, ok := g.byVerb[args[0]]; ok {
		return risk, nil
	}
	return domain.RiskAssessment{Level: domain.RiskSafe, Action: domain.GuardAllow}, nil
}

type stubConfirmer struct {
	answer   bool
	explicit int
	prompts  []string
}

func (c *stubConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, nil
}

func (c *stubConfirmer) ConfirmExplicit(prompt string) (bool, error) {
	c.explicit++
	c.prompts = append(c.prompts, prompt)
	return c.answer, nil
}

type memHistory struct {
	records []domain.HistoryRecord
}

func (h *memHistory) Save(r domain.HistoryRecord) error {
	h.records = append(h.records, r)
	return nil
}

func (h *memHistory) Records(int, string) ([]domain.HistoryRecord, error) {
	return h.records, nil
}

func (h *memHistory) Stats() (domain.HistoryStats, error) { return domain.HistoryStats{}, nil }
func (h *memHistory) Retain(int) (int, error)             { return 0, nil }
func (h *memHistory) Clear() error                        { return nil }
func (h *memHistory) ExportJSON(string) error             { return nil }
func (h *memHistory) Path() string                        { return "" }

type memCache struct {
	entries map[string]domain.StructuredCommand
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]domain.StructuredCommand{}}
}

func (c *memCache) Get(text string) (domain.StructuredCommand, bool) {
	cmd, ok := c.entries[domain.NormalizeInput(text)]
	return cmd, ok
}

func (c *memCache) Put(text string, cmd domain.StructuredCommand) error {
	c.entries[domain.NormalizeInput(text)] = cmd
	return nil
}

func (c *memCache) Clear() error                      { return nil }
func (c *memCache) Cleanup() (int, error)             { return 0, nil }
func (c *memCache) Stats() (domain.CacheStats, error) { return domain.CacheStats{}, nil }
func (c *memCache) SetTTL(time.Duration)              {}
func (c *memCache) TTL() time.Duration                { return domain.DefaultCacheTTL }

type fixture struct {
	svc     *Service
	runner  *stubRunner
	interp  *stubInterpreter
	history *memHistory
}

func newFixture(cmd domain.StructuredCommand) *fixture {
	runner := &stubRunner{}
	interp := &stubInterpreter{cmd: cmd}
	history := &memHistory{}
	m := mapper.New()
	return &fixture{
		runner:  runner,
		interp:  interp,
		history: history,
		svc: &Service{
			Runner:    runner,
			Interpret: &interpret.Service{Interpreter: interp, Mapper: m},
			Executor:  &executor.Service{Mapper: m, Runner: runner},
			History:   history,
		},
	}
}

func nlpConfig() domain.Config {
	return domain.Config{
		NLP: domain.NLPSettings{
			Enabled:               true,
			FallbackToTraditional: true,
			ExecutionMode:         "continue_on_error",
		},
		Security: domain.SecuritySettings{GuardEnabled: true},
	}
}

func modelCmd(action domain.ActionType, content string) domain.StructuredCommand {
	return domain.StructuredCommand{Action: action, Content: content, Source: domain.SourceModel}
}

func TestRoute_TraditionalSubcommand(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "unused"))

	out, err := f.svc.Route(context.Background(), Request{Args: []string{"task", "buy milk"}, Traditional: true, Config: nlpConfig()})
	require.NoError(t, err)
	assert.Equal(t, PathTraditional, out.Path)
	assert.Zero(t, f.interp.calls)
	assert.Empty(t, f.history.records)
}

func TestRoute_NoNLPPropagatesParseError(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "unused"))

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"remind", "me"}, NoNLP: true, Config: nlpConfig()})
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Zero(t, f.interp.calls)
}

func TestRoute_KeywordSucceedsTraditionally(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "unused"))

	out, err := f.svc.Route(context.Background(), Request{Args: []string{"list", "task"}, Config: nlpConfig()})
	require.NoError(t, err)
	assert.Equal(t, PathTraditional, out.Path)
	assert.Zero(t, f.interp.calls)
}

func TestRoute_KeywordExecutionErrorDoesNotFallBack(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "unused"))

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"done", "explode"}, Config: nlpConfig()})
	require.Error(t, err)
	assert.Zero(t, f.interp.calls)
}

func TestRoute_KeywordParseFailureFallsBack(t *testing.T) {
	f := newFixture(domain.StructuredCommand{
		Action: domain.ActionList,
		Filters: map[string]string{
			"type": "record",
		},
		Source: domain.SourceModel,
	})

	out, err := f.svc.Route(context.Background(), Request{Args: []string{"list", "of", "my", "runs"}, Config: nlpConfig()})
	require.NoError(t, err)
	assert.Equal(t, PathNLP, out.Path)
	assert.Equal(t, 1, f.interp.calls)
	require.Len(t, f.runner.calls, 2)
	assert.Equal(t, []string{"list", "record"}, f.runner.calls[1])
}

func TestRoute_KeywordSkipsTraditionalWhenFallbackOff(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "plan the list"))
	cfg := nlpConfig()
	cfg.NLP.FallbackToTraditional = false

	out, err := f.svc.Route(context.Background(), Request{Args: []string{"list", "task"}, Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, PathNLP, out.Path)
	assert.Equal(t, 1, f.interp.calls)
}

func TestRoute_NLPDisabled(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "unused"))
	cfg := nlpConfig()
	cfg.NLP.Enabled = false

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"remind me to call mom"}, Config: cfg})
	assert.ErrorIs(t, err, domain.ErrNLPDisabled)
}

func TestRoute_CompoundRecordsHistory(t *testing.T) {
	f := newFixture(domain.StructuredCommand{
		Action: domain.ActionNLP,
		Source: domain.SourceModel,
		Compound: []domain.StructuredCommand{
			modelCmd(domain.ActionTask, "buy milk"),
			modelCmd(domain.ActionDone, "explode"),
		},
	})

	out, err := f.svc.Route(context.Background(), Request{Args: []string{"buy milk and finish the explode thing"}, Config: nlpConfig()})
	require.NoError(t, err)
	require.NotNil(t, out.Summary)
	assert.Equal(t, "Executed 2 command(s): 1 succeeded, 1 failed", out.Summary.Message())

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, "task buy milk; done explode", rec.Command)
	assert.Equal(t, 2, rec.Commands)
	assert.Equal(t, domain.SourceModel, rec.Source)
	assert.True(t, rec.Executed)
	assert.False(t, rec.Success)
}

func TestRoute_SingleFailureIsAnError(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionDone, "explode"))

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"finish the explode thing"}, Config: nlpConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command 1")
}

func TestRoute_InterpreterFailureHasHint(t *testing.T) {
	f := newFixture(domain.StructuredCommand{})
	f.interp.err = &domain.InterpretError{Input: "gibberish", Message: "no idea"}

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"gibberish"}, Config: nlpConfig()})
	var ie *domain.InterpretError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, err.Error(), "rephrasing")
	require.Len(t, f.history.records, 1)
	assert.False(t, f.history.records[0].Executed)
}

func TestRoute_Guard(t *testing.T) {
	deleteAll := domain.StructuredCommand{Action: domain.ActionDelete, Source: domain.SourceModel}
	tests := []struct {
		name         string
		action       domain.GuardAction
		answer       bool
		autoConfirm  bool
		noConfirmer  bool
		wantErr      func(t *testing.T, err error)
		wantExecuted bool
		wantAsked    int
	}{
		{
			name:   "block",
			action: domain.GuardBlock,
			wantErr: func(t *testing.T, err error) {
				var execErr *domain.ExecutionError
				assert.ErrorAs(t, err, &execErr)
			},
		},
		{
			name:      "confirm declined",
			action:    domain.GuardExplicitConfirm,
			answer:    false,
			wantErr:   func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrCancelled) },
			wantAsked: 1,
		},
		{
			name:         "confirm accepted",
			action:       domain.GuardConfirm,
			answer:       true,
			wantExecuted: true,
			wantAsked:    1,
		},
		{
			name:         "auto confirm skips prompt",
			action:       domain.GuardExplicitConfirm,
			autoConfirm:  true,
			wantExecuted: true,
		},
		{
			name:        "no confirmer refuses",
			action:      domain.GuardConfirm,
			noConfirmer: true,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "requires confirmation")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(deleteAll)
			confirmer := &stubConfirmer{answer: tt.answer}
			f.svc.Guard = stubGuard{byVerb: map[string]domain.RiskAssessment{
				"delete": {Level: domain.RiskHigh, Action: tt.action, Reasons: []string{"Deletes every task"}},
			}}
			if !tt.noConfirmer {
				f.svc.Confirmer = confirmer
				f.svc.Executor.Confirmer = confirmer
			}
			cfg := nlpConfig()
			cfg.NLP.AutoConfirm = tt.autoConfirm

			_, err := f.svc.Route(context.Background(), Request{Args: []string{"wipe everything"}, Config: cfg})
			if tt.wantErr != nil {
				tt.wantErr(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantExecuted, len(f.runner.calls) == 1)
			assert.Equal(t, tt.wantAsked, confirmer.explicit)
		})
	}
}

func TestRoute_GuardPromptLeavesAnswerHintToConfirmer(t *testing.T) {
	f := newFixture(domain.StructuredCommand{Action: domain.ActionDelete, Content: "3", Source: domain.SourceModel})
	confirmer := &stubConfirmer{answer: true}
	f.svc.Confirmer = confirmer
	f.svc.Executor.Confirmer = confirmer
	f.svc.Guard = stubGuard{byVerb: map[string]domain.RiskAssessment{
		"delete": {Level: domain.RiskHigh, Action: domain.GuardExplicitConfirm, Reasons: []string{"Deletes a task"}},
	}}
	cfg := nlpConfig()
	cfg.NLP.PreviewEnabled = true

	_, err := f.svc.Route(context.Background(), Request{Args: []string{"remove the third one"}, Config: cfg})
	require.NoError(t, err)
	require.Len(t, confirmer.prompts, 2)
	for _, prompt := range confirmer.prompts {
		assert.NotContains(t, prompt, "yes")
		assert.NotContains(t, prompt, "[Y/n]")
	}
	assert.Contains(t, confirmer.prompts[0], "HIGH risk: Deletes a task")
}

func TestRoute_CacheHitRecordedAsCache(t *testing.T) {
	f := newFixture(modelCmd(domain.ActionTask, "water plants"))
	f.svc.Interpret.Cache = newMemCache()
	f.svc.Interpret.CacheCommands = true

	for i := 0; i < 2; i++ {
		_, err := f.svc.Route(context.Background(), Request{Args: []string{"water", "the", "plants"}, Config: nlpConfig()})
		require.NoError(t, err)
	}
	require.Len(t, f.history.records, 2)
	assert.Equal(t, domain.SourceModel, f.history.records[0].Source)
	assert.Equal(t, domain.SourceCache, f.history.records[1].Source)
	assert.Equal(t, 1, f.interp.calls)
}

func TestRoute_ModeOverride(t *testing.T) {
	f := newFixture(domain.StructuredCommand{
		Action: domain.ActionNLP,
		Compound: []domain.StructuredCommand{
			modelCmd(domain.ActionDone, "explode"),
			modelCmd(domain.ActionTask, "never runs"),
		},
	})

	out, err := f.svc.Route(context.Background(), Request{
		Args:   []string{"finish explode then add a task"},
		Mode:   domain.ModeStopOnError,
		Config: nlpConfig(),
	})
	require.NoError(t, err)
	assert.Len(t, out.Summary.Results, 1)
}

func TestRoute_EmptyInput(t *testing.T) {
	f := newFixture(domain.StructuredCommand{})
	_, err := f.svc.Route(context.Background(), Request{Args: []string{"  "}, Config: nlpConfig()})
	var parseErr *domain.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestOutcome_SkippedNotes(t *testing.T) {
	monday := domain.Condition{Kind: domain.ConditionDayOfWeek, Days: []string{"Monday"}}
	out := Outcome{
		Interpretation: &interpret.Interpretation{Command: domain.StructuredCommand{Compound: []domain.StructuredCommand{
			{Action: domain.ActionTask, Content: "a"},
			{Action: domain.ActionTask, Content: "b", Condition: &monday},
		}}},
		Summary: &domain.ExecutionSummary{Total: 2, Results: []domain.ExecutionResult{
			{Index: 0, Success: true},
			{Index: 1, Success: true, Skipped: true},
		}},
	}
	assert.Equal(t, []string{"#2 skipped, condition false: today is Monday"}, out.SkippedNotes())

	out.Interpretation = nil
	assert.Equal(t, []string{"#2 skipped, condition false"}, out.SkippedNotes())
	assert.Empty(t, Outcome{}.SkippedNotes())
}
