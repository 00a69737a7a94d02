package mcp

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/doeshing/tasq/internal/application/executor"
	"github.com/doeshing/tasq/internal/application/interpret"
	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/application/suggest"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/actions"
	"github.com/doeshing/tasq/internal/infrastructure/interpreter"
	"github.com/doeshing/tasq/internal/infrastructure/mapper"
	"github.com/doeshing/tasq/internal/infrastructure/security"
	"github.com/doeshing/tasq/internal/infrastructure/store"
)

type fixedInterpreter struct {
	cmd domain.StructuredCommand
}

func (f fixedInterpreter) Parse(context.Context, string) (domain.StructuredCommand, error) {
	return f.cmd, nil
}

func (f fixedInterpreter) ParseToCompoundArgs(context.Context, string) ([][]string, string, error) {
	return nil, "", nil
}

func newTools(t *testing.T, cmd domain.StructuredCommand) *Tools {
	t.Helper()
	items, err := store.Open(filepath.Join(t.TempDir(), "tasq.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { items.Close() })
	guard, err := security.NewGuard(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	m := mapper.New()
	interp := &interpret.Service{Interpreter: fixedInterpreter{cmd: cmd}, Mapper: m}
	cfg := domain.Config{
		NLP: domain.NLPSettings{
			Enabled:               true,
			FallbackToTraditional: true,
			PreviewEnabled:        true,
			ExecutionMode:         "continue_on_error",
		},
		Security: domain.SecuritySettings{GuardEnabled: true},
	}
	return &Tools{
		Interpret: interp,
		NewRouter: func(out io.Writer) Router {
			runner := actions.NewRunner(items, out)
			return &router.Service{
				Runner:    runner,
				Interpret: interp,
				Executor:  &executor.Service{Mapper: m, Runner: runner, Preview: out},
				Guard:     guard,
			}
		},
		Suggester: suggest.NewAutoCompleter(suggest.NewEngine(interpreter.RuleMatcher{}), 10),
		Config:    cfg,
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestInterpretTool(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{
		Action:   domain.ActionTask,
		Content:  "buy milk",
		Category: "shopping",
		Source:   domain.SourceModel,
	})

	res, err := tools.handleInterpret(context.Background(), call(map[string]any{"text": "remember milk"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	got := resultText(t, res)
	if !strings.Contains(got, "tasq task -c shopping buy milk") {
		t.Fatalf("missing mapped command in %q", got)
	}
}

func TestInterpretTool_Errors(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{Action: domain.ActionList})

	res, _ := tools.handleInterpret(context.Background(), call(map[string]any{}))
	if !res.IsError {
		t.Fatal("missing text should be a tool error")
	}

	tools.Config.NLP.Enabled = false
	res, _ = tools.handleInterpret(context.Background(), call(map[string]any{"text": "anything"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "disabled") {
		t.Fatalf("want disabled error, got %+v", res)
	}
}

func TestRunTool_TraditionalCommand(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{})

	res, err := tools.handleRun(context.Background(), call(map[string]any{"text": `task "water plants"`}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	got := resultText(t, res)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", got)
	}
	if !strings.Contains(got, "Inserted Task") {
		t.Fatalf("action output not captured: %q", got)
	}
}

func TestRunTool_NaturalLanguageSkipsPreview(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{
		Action: domain.ActionNLP,
		Source: domain.SourceModel,
		Compound: []domain.StructuredCommand{
			{Action: domain.ActionTask, Content: "call mom"},
			{Action: domain.ActionTask, Content: "call dad"},
		},
	})

	res, _ := tools.handleRun(context.Background(), call(map[string]any{"text": "remind me to call my parents"}))
	got := resultText(t, res)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", got)
	}
	if strings.Contains(got, "Compound Command Preview") {
		t.Fatalf("preview should be disabled: %q", got)
	}
	if !strings.Contains(got, "All 2 command(s) executed successfully") {
		t.Fatalf("missing summary in %q", got)
	}
}

func TestRunTool_GuardedCommandRefused(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{Action: domain.ActionDelete, Source: domain.SourceModel})

	res, _ := tools.handleRun(context.Background(), call(map[string]any{"text": "wipe all my tasks"}))
	if !res.IsError {
		t.Fatalf("guarded delete should be refused: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "requires confirmation") {
		t.Fatalf("unexpected error %q", resultText(t, res))
	}
}

func TestRunTool_BadMode(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{})

	res, _ := tools.handleRun(context.Background(), call(map[string]any{"text": "list task", "mode": "sideways"}))
	if !res.IsError {
		t.Fatal("unknown mode should be a tool error")
	}
}

func TestSuggestTool(t *testing.T) {
	tools := newTools(t, domain.StructuredCommand{})

	res, _ := tools.handleSuggest(context.Background(), call(map[string]any{"input": "lis"}))
	got := resultText(t, res)
	if !strings.Contains(got, `"list"`) {
		t.Fatalf("missing correction in %q", got)
	}

	res, _ = tools.handleSuggest(context.Background(), call(map[string]any{"input": "list"}))
	if !strings.HasPrefix(resultText(t, res), "Input is already a complete command.") {
		t.Fatalf("list should be reported valid: %q", resultText(t, res))
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(newTools(t, domain.StructuredCommand{}), "test")
	if s == nil {
		t.Fatal("nil server")
	}
}
