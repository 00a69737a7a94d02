// Package mcp exposes interpretation, execution and suggestions as Model
// Context Protocol tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/doeshing/tasq/internal/application/interpret"
	"github.com/doeshing/tasq/internal/application/router"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/pkg/shellwords"
	"github.com/doeshing/tasq/internal/ports"
)

// Router routes one request.
type Router interface {
	Route(ctx context.Context, req router.Request) (router.Outcome, error)
}

// Suggester ranks completions for partial input.
type Suggester interface {
	Suggest(input string) domain.SuggestionResult
}

// Tools holds what the tool handlers need. NewRouter builds a router whose
// action output goes to out, so stdout stays reserved for the protocol.
type Tools struct {
	Interpret *interpret.Service
	NewRouter func(out io.Writer) Router
	Suggester Suggester
	Config    domain.Config
	Logger    ports.Logger
}

// NewServer builds an MCP server with every tool registered.
func NewServer(tools *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tasq",
		version,
		server.WithToolCapabilities(true),
	)
	tools.Register(s)
	return s
}

// Serve blocks serving s over stdin and stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// Register adds the tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(interpretTool(), t.handleInterpret)
	s.AddTool(runTool(), t.handleRun)
	s.AddTool(suggestTool(), t.handleSuggest)
}

func interpretTool() mcp.Tool {
	return mcp.NewTool("interpret",
		mcp.WithDescription("Translate a plain-language request into tasq commands without running them."),
		mcp.WithString("text",
			mcp.Description("What to do, e.g. \"add buy milk to shopping and list my overdue tasks\""),
			mcp.Required(),
		),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("run",
		mcp.WithDescription("Run a tasq command or plain-language request. Commands the guard wants confirmed are refused."),
		mcp.WithString("text",
			mcp.Description("A traditional command such as \"list task -c work\" or a plain-language request"),
			mcp.Required(),
		),
		mcp.WithString("mode",
			mcp.Description("Execution mode for compound requests"),
			mcp.Enum("sequential", "stop_on_error", "continue_on_error", "parallel", "dependent"),
		),
	)
}

func suggestTool() mcp.Tool {
	return mcp.NewTool("suggest",
		mcp.WithDescription("Rank completions and corrections for partial input."),
		mcp.WithString("input",
			mcp.Description("Partial command text; empty returns common commands"),
		),
	)
}

func (t *Tools) handleInterpret(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return toolError(fmt.Errorf("text is required"))
	}
	if !t.Config.IsNLPEnabled() {
		return toolError(domain.ErrNLPDisabled)
	}
	if t.Interpret == nil {
		return toolError(fmt.Errorf("interpreter not configured"))
	}

	interp, err := t.Interpret.Resolve(ctx, text)
	if err != nil {
		t.logger().Warn("mcp interpret failed", map[string]interface{}{"input": text, "error": err.Error()})
		return toolError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", interp.Description)
	for _, args := range interp.Args {
		fmt.Fprintf(&sb, "tasq %s\n", strings.Join(args, " "))
	}
	if interp.CacheHit {
		sb.WriteString("(cached)\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return toolError(fmt.Errorf("text is required"))
	}
	if t.NewRouter == nil {
		return toolError(fmt.Errorf("runner not configured"))
	}

	var mode domain.ExecutionMode
	if raw := req.GetString("mode", ""); raw != "" {
		parsed, err := domain.ParseExecutionMode(raw)
		if err != nil {
			return toolError(err)
		}
		mode = parsed
	}

	cfg := t.Config
	cfg.NLP.PreviewEnabled = false
	cfg.NLP.AutoConfirm = false

	args, err := shellwords.Split(text)
	if err != nil {
		args = strings.Fields(text)
	}

	var out bytes.Buffer
	outcome, err := t.NewRouter(&out).Route(ctx, router.Request{
		Args:   args,
		Mode:   mode,
		Config: cfg,
	})
	if err != nil {
		t.logger().Warn("mcp run failed", map[string]interface{}{"input": text, "error": err.Error()})
		if out.Len() > 0 {
			return toolError(fmt.Errorf("%s\n%w", strings.TrimRight(out.String(), "\n"), err))
		}
		return toolError(err)
	}

	var sb strings.Builder
	if outcome.Interpretation != nil {
		fmt.Fprintf(&sb, "Interpreted as: %s\n", outcome.Interpretation.Description)
	}
	sb.Write(out.Bytes())
	if outcome.Summary != nil {
		sb.WriteString(outcome.Summary.Message())
		sb.WriteString("\n")
		for _, r := range outcome.Summary.Results {
			if !r.Success {
				fmt.Fprintf(&sb, "  #%d: %s\n", r.Index+1, r.Error)
			}
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("Done.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) handleSuggest(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.Suggester == nil {
		return toolError(fmt.Errorf("suggestions not configured"))
	}
	result := t.Suggester.Suggest(req.GetString("input", ""))

	var sb strings.Builder
	if result.IsValid {
		sb.WriteString("Input is already a complete command.\n")
	}
	if len(result.Suggestions) == 0 {
		sb.WriteString("No suggestions.\n")
	}
	for _, s := range result.Suggestions {
		fmt.Fprintf(&sb, "%.2f\t%s\t%q\t%s\n", s.Confidence, s.Kind, s.Text, s.Description)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) logger() ports.Logger {
	if t.Logger == nil {
		return logger.Nop{}
	}
	return t.Logger
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
