// Package executor runs compound commands against the action layer under the
// configured failure semantics, threading an execution context between them.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/ports"
)

// previewPrompt is bare; the Confirmer appends its own answer hint.
const previewPrompt = "Execute these commands?"

// Service executes ordered lists of structured commands.
type Service struct {
	Mapper    ports.CommandMapper
	Runner    ports.ActionRunner
	Confirmer ports.Confirmer
	// Conditions decides store- and clock-based conditions. Nil fails every
	// conditional command that needs it.
	Conditions ports.ConditionEvaluator
	// Preview receives the rendered plan before confirmation. Nil discards it.
	Preview io.Writer
	Logger  ports.Logger
}

// ExecuteCompound runs commands in order with a fresh execution context.
func (s *Service) ExecuteCompound(ctx context.Context, commands []domain.StructuredCommand, mode domain.ExecutionMode, showPreview bool) (domain.ExecutionSummary, error) {
	return s.ExecuteWith(ctx, domain.NewExecutionContext(), commands, mode, showPreview)
}

// ExecuteWith runs commands starting from execCtx, which lets callers seed
// `$name` variables. Parallel mode ignores execCtx and starts empty.
func (s *Service) ExecuteWith(ctx context.Context, execCtx *domain.ExecutionContext, commands []domain.StructuredCommand, mode domain.ExecutionMode, showPreview bool) (domain.ExecutionSummary, error) {
	if s.Mapper == nil || s.Runner == nil {
		return domain.ExecutionSummary{}, errors.New("executor.Service dependencies not satisfied")
	}
	if mode == "" {
		mode = domain.ModeContinueOnError
	}
	if execCtx == nil {
		execCtx = domain.NewExecutionContext()
	}

	if showPreview {
		if err := s.confirmPreview(commands, mode); err != nil {
			return domain.ExecutionSummary{}, err
		}
	}

	log := s.logger()
	log.Info("executing compound", map[string]interface{}{
		"commands": len(commands),
		"mode":     string(mode),
	})

	switch mode {
	case domain.ModeParallel:
		return s.runIsolated(ctx, commands), nil
	case domain.ModeDependent:
		return s.runThreaded(ctx, execCtx, commands, true, true), nil
	case domain.ModeSequential, domain.ModeStopOnError:
		return s.runThreaded(ctx, execCtx, commands, true, false), nil
	case domain.ModeContinueOnError:
		return s.runThreaded(ctx, execCtx, commands, false, false), nil
	default:
		return domain.ExecutionSummary{}, fmt.Errorf("unknown execution mode %q", mode)
	}
}

// runThreaded covers the modes that share one context. stopOnFailure ends the
// run at the first failed command; resolve substitutes context references
// before each command runs.
func (s *Service) runThreaded(ctx context.Context, execCtx *domain.ExecutionContext, commands []domain.StructuredCommand, stopOnFailure, resolve bool) domain.ExecutionSummary {
	results := make([]domain.ExecutionResult, 0, len(commands))
	for index, cmd := range commands {
		if resolve {
			cmd = execCtx.Resolve(cmd)
		}
		result := s.runGuarded(ctx, index, cmd, lastResult(results))
		results = append(results, result)
		if result.Skipped {
			continue
		}
		if result.Success {
			execCtx.Apply(result)
			continue
		}
		if stopOnFailure {
			s.logger().Warn("stopping after failed command", map[string]interface{}{
				"index":     index,
				"remaining": len(commands) - index - 1,
			})
			break
		}
	}
	return domain.ExecutionSummary{Total: len(commands), Results: results, Context: execCtx}
}

// runIsolated never threads context and never short-circuits.
func (s *Service) runIsolated(ctx context.Context, commands []domain.StructuredCommand) domain.ExecutionSummary {
	results := make([]domain.ExecutionResult, 0, len(commands))
	for index, cmd := range commands {
		results = append(results, s.runGuarded(ctx, index, cmd, lastResult(results)))
	}
	return domain.ExecutionSummary{Total: len(commands), Results: results, Context: domain.NewExecutionContext()}
}

// runGuarded checks cmd's condition and runs it when the condition holds.
// previous is the result before it in this run, or nil for the first command.
func (s *Service) runGuarded(ctx context.Context, index int, cmd domain.StructuredCommand, previous *domain.ExecutionResult) domain.ExecutionResult {
	if cmd.Condition == nil {
		return s.ExecuteOne(ctx, index, cmd)
	}
	cond := *cmd.Condition

	var holds bool
	var err error
	switch cond.Kind {
	case domain.ConditionPreviousSuccess:
		holds = previous != nil && previous.Success && !previous.Skipped
	case domain.ConditionPreviousFailed:
		holds = previous != nil && !previous.Success
	default:
		if s.Conditions == nil {
			return failed(index, s.Mapper.ToActionArgs(cmd), "no condition evaluator configured")
		}
		holds, err = s.Conditions.Evaluate(ctx, cond)
	}
	if err != nil {
		return failed(index, s.Mapper.ToActionArgs(cmd), "condition: "+err.Error())
	}
	if !holds {
		s.logger().Info("condition not met, skipping", map[string]interface{}{
			"index":     index,
			"condition": cond.Describe(),
		})
		return domain.ExecutionResult{Index: index, Success: true, Skipped: true}
	}
	return s.ExecuteOne(ctx, index, cmd)
}

func lastResult(results []domain.ExecutionResult) *domain.ExecutionResult {
	if len(results) == 0 {
		return nil
	}
	return &results[len(results)-1]
}

// ExecuteOne maps and runs a single command. The output descriptor comes from
// the command itself; the item id is filled only when the action layer
// reports one.
func (s *Service) ExecuteOne(ctx context.Context, index int, cmd domain.StructuredCommand) domain.ExecutionResult {
	args := s.Mapper.ToActionArgs(cmd)
	if len(args) == 0 {
		return failed(index, args, "No command to execute")
	}

	report, err := s.Runner.Execute(ctx, args)
	if err != nil {
		s.logger().Error("command failed", err, map[string]interface{}{
			"index": index,
			"args":  strings.Join(args, " "),
		})
		return failed(index, args, err.Error())
	}

	return domain.ExecutionResult{
		Index:   index,
		Success: true,
		Output: &domain.ExecutionOutput{
			ItemID:   report.ItemID,
			Content:  cmd.Content,
			Category: cmd.Category,
			Metadata: map[string]string{"action": string(cmd.Action)},
		},
	}
}

// RenderPreview writes the numbered plan for commands.
func (s *Service) RenderPreview(w io.Writer, commands []domain.StructuredCommand, mode domain.ExecutionMode) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Compound Command Preview ===")
	fmt.Fprintf(w, "Execution mode: %s\n", mode.Label())
	fmt.Fprintf(w, "Total commands: %d\n\n", len(commands))
	for i, cmd := range commands {
		fmt.Fprintf(w, "%d. %s\n", i+1, s.Mapper.DescribeCommand(cmd))
		fmt.Fprintf(w, "   Command: %s\n\n", strings.Join(s.Mapper.ToActionArgs(cmd), " "))
	}
}

func (s *Service) confirmPreview(commands []domain.StructuredCommand, mode domain.ExecutionMode) error {
	if s.Confirmer == nil {
		return errors.New("preview requested but no confirmer is configured")
	}
	out := s.Preview
	if out == nil {
		out = io.Discard
	}
	s.RenderPreview(out, commands, mode)

	ok, err := s.Confirmer.Confirm(previewPrompt)
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}
	if !ok {
		return domain.ErrCancelled
	}
	return nil
}

func (s *Service) logger() ports.Logger {
	if s.Logger == nil {
		return logger.Nop{}
	}
	return s.Logger
}

func failed(index int, args []string, message string) domain.ExecutionResult {
	execErr := &domain.ExecutionError{Index: index, Args: args, Message: message}
	return domain.ExecutionResult{Index: index, Success: false, Error: execErr.Error()}
}
