package executor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/mapper"
	"github.com/doeshing/tasq/internal/ports"
)

// recordingRunner fails any invocation whose joined args contain "fail".
type recordingRunner struct {
	calls [][]string
	ids   map[string]int64
}

func (r *recordingRunner) Execute(ctx context.Context, args []string) (ports.ActionReport, error) {
	r.calls = append(r.calls, args)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "fail") {
		return ports.ActionReport{}, errors.New("store rejected " + joined)
	}
	report := ports.ActionReport{}
	if id, ok := r.ids[joined]; ok {
		report.ItemID = &id
	}
	return report, nil
}

type scriptedConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (c *scriptedConfirmer) Confirm(prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

func (c *scriptedConfirmer) ConfirmExplicit(prompt string) (bool, error) {
	return c.Confirm(prompt)
}

func task(content string) domain.StructuredCommand {
	return domain.StructuredCommand{Action: domain.ActionTask, Content: content}
}

func okFailOk() []domain.StructuredCommand {
	return []domain.StructuredCommand{task("ok one"), task("fail two"), task("ok three")}
}

func newService(runner *recordingRunner) *Service {
	return &Service{Mapper: mapper.New(), Runner: runner}
}

func TestExecuteCompound_Modes(t *testing.T) {
	tests := []struct {
		name        string
		mode        domain.ExecutionMode
		wantResults int
		wantOK      int
		wantFailed  int
		wantCalls   int
	}{
		{name: "stop on error", mode: domain.ModeStopOnError, wantResults: 2, wantOK: 1, wantFailed: 1, wantCalls: 2},
		{name: "sequential", mode: domain.ModeSequential, wantResults: 2, wantOK: 1, wantFailed: 1, wantCalls: 2},
		{name: "dependent", mode: domain.ModeDependent, wantResults: 2, wantOK: 1, wantFailed: 1, wantCalls: 2},
		{name: "continue on error", mode: domain.ModeContinueOnError, wantResults: 3, wantOK: 2, wantFailed: 1, wantCalls: 3},
		{name: "parallel", mode: domain.ModeParallel, wantResults: 3, wantOK: 2, wantFailed: 1, wantCalls: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{}
			summary, err := newService(runner).ExecuteCompound(context.Background(), okFailOk(), tt.mode, false)
			require.NoError(t, err)

			assert.Equal(t, 3, summary.Total)
			assert.Len(t, summary.Results, tt.wantResults)
			assert.Equal(t, tt.wantOK, summary.Successful())
			assert.Equal(t, tt.wantFailed, summary.Failed())
			assert.Len(t, runner.calls, tt.wantCalls)
			for i, result := range summary.Results {
				assert.Equal(t, i, result.Index)
			}
			assert.False(t, summary.Results[1].Success)
			assert.Contains(t, summary.Results[1].Error, "command 2")
		})
	}
}

func TestExecuteCompound_EmptyModeDefaultsToContinue(t *testing.T) {
	summary, err := newService(&recordingRunner{}).ExecuteCompound(context.Background(), okFailOk(), "", false)
	require.NoError(t, err)
	assert.Len(t, summary.Results, 3)
}

func TestExecuteCompound_DependentResolvesIt(t *testing.T) {
	runner := &recordingRunner{}
	commands := []domain.StructuredCommand{
		{Action: domain.ActionTask, Content: "buy milk", Category: "shopping"},
		{Action: domain.ActionDone, Content: "it"},
	}

	summary, err := newService(runner).ExecuteCompound(context.Background(), commands, domain.ModeDependent, false)
	require.NoError(t, err)
	require.True(t, summary.IsCompleteSuccess())

	assert.Equal(t, []string{"done", "buy milk"}, runner.calls[1])
	assert.Equal(t, "buy milk", summary.Context.LastContent)
	assert.Equal(t, "shopping", summary.Context.LastCategory)
	assert.Len(t, summary.Context.History, 2)
}

func TestExecuteCompound_ContinueDoesNotResolve(t *testing.T) {
	runner := &recordingRunner{}
	commands := []domain.StructuredCommand{task("buy milk"), {Action: domain.ActionDone, Content: "it"}}

	_, err := newService(runner).ExecuteCompound(context.Background(), commands, domain.ModeContinueOnError, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"done", "it"}, runner.calls[1])
}

func TestExecuteWith_VariableSubstitution(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{name: "known variable", vars: map[string]string{"deadline": "friday"}, want: "friday"},
		{name: "unknown variable", vars: nil, want: "$deadline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{}
			execCtx := domain.NewExecutionContext()
			for k, v := range tt.vars {
				execCtx.SetVariable(k, v)
			}
			cmd := domain.StructuredCommand{
				Action:        domain.ActionUpdate,
				Content:       "report",
				Modifications: map[string]string{"deadline": "$deadline"},
			}

			summary, err := newService(runner).ExecuteWith(context.Background(), execCtx, []domain.StructuredCommand{cmd}, domain.ModeDependent, false)
			require.NoError(t, err)
			require.True(t, summary.IsCompleteSuccess())
			assert.Equal(t, tt.want, runner.calls[0][len(runner.calls[0])-1])
		})
	}
}

func TestExecuteCompound_ParallelKeepsContextEmpty(t *testing.T) {
	summary, err := newService(&recordingRunner{}).ExecuteCompound(context.Background(), []domain.StructuredCommand{task("a"), task("b")}, domain.ModeParallel, false)
	require.NoError(t, err)
	assert.Empty(t, summary.Context.LastContent)
	assert.Empty(t, summary.Context.History)
}

func TestExecuteCompound_ItemIDFromRunner(t *testing.T) {
	runner := &recordingRunner{ids: map[string]int64{"task water plants": 42}}
	summary, err := newService(runner).ExecuteCompound(context.Background(), []domain.StructuredCommand{task("water plants"), task("other")}, domain.ModeStopOnError, false)
	require.NoError(t, err)

	require.NotNil(t, summary.Results[0].Output.ItemID)
	assert.EqualValues(t, 42, *summary.Results[0].Output.ItemID)
	assert.Nil(t, summary.Results[1].Output.ItemID)
	require.NotNil(t, summary.Context.LastItemID)
	assert.EqualValues(t, 42, *summary.Context.LastItemID)
}

func TestExecuteCompound_Preview(t *testing.T) {
	t.Run("declined runs nothing", func(t *testing.T) {
		runner := &recordingRunner{}
		confirmer := &scriptedConfirmer{answer: false}
		var out bytes.Buffer
		svc := &Service{Mapper: mapper.New(), Runner: runner, Confirmer: confirmer, Preview: &out}

		_, err := svc.ExecuteCompound(context.Background(), []domain.StructuredCommand{task("buy milk")}, domain.ModeStopOnError, true)
		assert.ErrorIs(t, err, domain.ErrCancelled)
		assert.Empty(t, runner.calls)
		assert.Contains(t, out.String(), "Command: task buy milk")
		assert.Contains(t, out.String(), "Stop on error")
	})

	t.Run("accepted runs all", func(t *testing.T) {
		runner := &recordingRunner{}
		svc := &Service{Mapper: mapper.New(), Runner: runner, Confirmer: &scriptedConfirmer{answer: true}}

		summary, err := svc.ExecuteCompound(context.Background(), []domain.StructuredCommand{task("a"), task("b")}, domain.ModeStopOnError, true)
		require.NoError(t, err)
		assert.Equal(t, "All 2 command(s) executed successfully", summary.Message())
	})

	t.Run("no confirmer", func(t *testing.T) {
		_, err := newService(&recordingRunner{}).ExecuteCompound(context.Background(), []domain.StructuredCommand{task("a")}, domain.ModeStopOnError, true)
		assert.Error(t, err)
	})
}

func TestExecuteOne_UnmappableCommand(t *testing.T) {
	result := newService(&recordingRunner{}).ExecuteOne(context.Background(), 0, domain.StructuredCommand{Action: domain.ActionNLP})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "No command to execute")
}

func TestExecuteCompound_UnknownMode(t *testing.T) {
	_, err := newService(&recordingRunner{}).ExecuteCompound(context.Background(), okFailOk(), "sideways", false)
	assert.Error(t, err)
}

type fixedConditions struct {
	holds bool
	err   error
	seen  []domain.Condition
}

func (c *fixedConditions) Evaluate(ctx context.Context, cond domain.Condition) (bool, error) {
	c.seen = append(c.seen, cond)
	return c.holds, c.err
}

func conditional(content string, cond domain.Condition) domain.StructuredCommand {
	cmd := task(content)
	cmd.Condition = &cond
	return cmd
}

func TestExecuteCompound_Conditions(t *testing.T) {
	weekend := domain.Condition{Kind: domain.ConditionDayOfWeek, Days: []string{"Saturday", "Sunday"}}
	tests := []struct {
		name        string
		commands    []domain.StructuredCommand
		conditions  *fixedConditions
		wantCalls   []string
		wantSkipped int
		wantFailed  int
	}{
		{
			name:       "condition holds",
			commands:   []domain.StructuredCommand{conditional("mow lawn", weekend)},
			conditions: &fixedConditions{holds: true},
			wantCalls:  []string{"task mow lawn"},
		},
		{
			name:        "condition false skips without failing",
			commands:    []domain.StructuredCommand{conditional("mow lawn", weekend), task("ok after")},
			conditions:  &fixedConditions{holds: false},
			wantCalls:   []string{"task ok after"},
			wantSkipped: 1,
		},
		{
			name:       "evaluation error fails the command",
			commands:   []domain.StructuredCommand{conditional("mow lawn", weekend)},
			conditions: &fixedConditions{err: errors.New("store offline")},
			wantFailed: 1,
		},
		{
			name:       "missing evaluator fails the command",
			commands:   []domain.StructuredCommand{conditional("mow lawn", weekend)},
			wantFailed: 1,
		},
		{
			name: "previous success",
			commands: []domain.StructuredCommand{
				task("ok first"),
				conditional("ok celebrate", domain.Condition{Kind: domain.ConditionPreviousSuccess}),
				conditional("ok apologize", domain.Condition{Kind: domain.ConditionPreviousFailed}),
			},
			wantCalls:   []string{"task ok first", "task ok celebrate"},
			wantSkipped: 1,
		},
		{
			name: "previous failed",
			commands: []domain.StructuredCommand{
				task("fail first"),
				conditional("ok retry", domain.Condition{Kind: domain.ConditionPreviousFailed}),
			},
			wantCalls:  []string{"task fail first", "task ok retry"},
			wantFailed: 1,
		},
		{
			name: "first command has no previous",
			commands: []domain.StructuredCommand{
				conditional("ok orphan", domain.Condition{Kind: domain.ConditionPreviousSuccess}),
			},
			wantSkipped: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{}
			svc := newService(runner)
			if tt.conditions != nil {
				svc.Conditions = tt.conditions
			}

			summary, err := svc.ExecuteCompound(context.Background(), tt.commands, domain.ModeContinueOnError, false)
			require.NoError(t, err)

			var calls []string
			for _, c := range runner.calls {
				calls = append(calls, strings.Join(c, " "))
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantSkipped, summary.Skipped())
			assert.Equal(t, tt.wantFailed, summary.Failed())
		})
	}
}

func TestExecuteCompound_SkippedLeavesContextUntouched(t *testing.T) {
	runner := &recordingRunner{}
	svc := newService(runner)
	svc.Conditions = &fixedConditions{holds: false}

	summary, err := svc.ExecuteCompound(context.Background(), []domain.StructuredCommand{
		task("buy milk"),
		conditional("buy eggs", domain.Condition{Kind: domain.ConditionCategoryEmpty, Category: "shopping"}),
		{Action: domain.ActionDone, Content: "it"},
	}, domain.ModeDependent, false)
	require.NoError(t, err)

	assert.True(t, summary.IsCompleteSuccess())
	assert.Equal(t, "buy milk", summary.Context.LastContent)
	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"done", "buy milk"}, runner.calls[1])
}
