// Package router decides whether input is a traditional command or natural
// language, and drives the natural-language path end to end.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/tasq/internal/application/executor"
	"github.com/doeshing/tasq/internal/application/interpret"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/ports"
)

// Path names the route an input took.
type Path string

const (
	PathTraditional Path = "traditional"
	PathNLP         Path = "nlp"
)

const rephraseHint = "try rephrasing, or use a traditional command such as 'task <content>'"

// Request is one routing decision.
type Request struct {
	Args []string
	// Traditional is set when the outer CLI grammar already recognized a subcommand.
	Traditional bool
	// NoNLP forces traditional parsing only.
	NoNLP bool
	// Mode overrides nlp.execution_mode when set.
	Mode domain.ExecutionMode
	// ForcePreview shows the plan even when preview is off in config.
	ForcePreview bool
	// CopyToClipboard copies the mapped command line.
	CopyToClipboard bool
	Config          domain.Config
}

// Outcome reports what happened.
type Outcome struct {
	Path           Path
	Report         ports.ActionReport
	Interpretation *interpret.Interpretation
	Risk           []domain.RiskAssessment
	Summary        *domain.ExecutionSummary
}

// SkippedNotes describes each command left out because its condition was
// false, numbered from 1.
func (o Outcome) SkippedNotes() []string {
	if o.Summary == nil {
		return nil
	}
	var commands []domain.StructuredCommand
	if o.Interpretation != nil {
		commands = o.Interpretation.Command.Flatten()
	}
	var notes []string
	for _, r := range o.Summary.Results {
		if !r.Skipped {
			continue
		}
		note := fmt.Sprintf("#%d skipped, condition false", r.Index+1)
		if r.Index < len(commands) && commands[r.Index].Condition != nil {
			note += ": " + strings.TrimPrefix(commands[r.Index].Condition.Describe(), "if ")
		}
		notes = append(notes, note)
	}
	return notes
}

// Service is the top-level dispatcher.
type Service struct {
	Runner    ports.ActionRunner
	Interpret *interpret.Service
	Executor  *executor.Service
	Guard     ports.GuardService
	Confirmer ports.Confirmer
	History   ports.HistoryRepository
	Clipboard ports.Clipboard
	Logger    ports.Logger
}

// Route dispatches req. When NLP.FallbackToTraditional is set, keyword input
// is parsed traditionally first and parse failures fall through to natural
// language; interpreter failures are terminal.
func (s *Service) Route(ctx context.Context, req Request) (Outcome, error) {
	if s.Runner == nil {
		return Outcome{}, errors.New("router.Service dependencies not satisfied")
	}
	log := s.logger()

	if req.Traditional {
		log.Debug("route traditional", map[string]interface{}{"args": req.Args})
		return s.runTraditional(ctx, req.Args)
	}

	text := strings.TrimSpace(strings.Join(req.Args, " "))
	if text == "" {
		return Outcome{}, &domain.ParseError{Reason: "no command given"}
	}

	if req.NoNLP {
		log.Debug("route traditional only", map[string]interface{}{"input": text})
		return s.runTraditional(ctx, req.Args)
	}

	// Keyword-first parsing is gated by fallback_to_traditional; with it off,
	// keyword input goes straight to the interpreter.
	if IsKeyword(firstToken(text)) && req.Config.NLP.FallbackToTraditional {
		outcome, err := s.runTraditional(ctx, req.Args)
		var parseErr *domain.ParseError
		if err == nil || !errors.As(err, &parseErr) {
			return outcome, err
		}
		log.Warn("traditional parse failed, falling back to natural language", map[string]interface{}{
			"input": text,
			"error": err.Error(),
		})
	}

	return s.runNaturalLanguage(ctx, text, req)
}

// IsKeyword reports whether word opens a traditional command.
func IsKeyword(word string) bool {
	for _, action := range domain.Actions() {
		if string(action) == word {
			return true
		}
	}
	return false
}

func (s *Service) runTraditional(ctx context.Context, args []string) (Outcome, error) {
	report, err := s.Runner.Execute(ctx, args)
	if err != nil {
		return Outcome{Path: PathTraditional}, err
	}
	return Outcome{Path: PathTraditional, Report: report}, nil
}

func (s *Service) runNaturalLanguage(ctx context.Context, text string, req Request) (Outcome, error) {
	log := s.logger()
	outcome := Outcome{Path: PathNLP}
	cfg := req.Config

	if !cfg.IsNLPEnabled() {
		return outcome, domain.ErrNLPDisabled
	}
	if s.Interpret == nil || s.Executor == nil {
		return outcome, errors.New("router.Service natural-language dependencies not satisfied")
	}

	started := time.Now()
	record := domain.HistoryRecord{Timestamp: started, Input: text}

	interp, err := s.Interpret.Resolve(ctx, text)
	if err != nil {
		log.Error("interpretation failed", err, map[string]interface{}{"input": text})
		record.Error = err.Error()
		s.save(record)
		if domain.IsAmbiguous(err) {
			return outcome, err
		}
		return outcome, fmt.Errorf("%w (%s)", err, rephraseHint)
	}
	outcome.Interpretation = &interp

	record.Command = joinArgs(interp.Args)
	record.Description = interp.Description
	record.Commands = len(interp.Args)
	record.Source = interp.Command.Source
	if interp.CacheHit {
		record.Source = domain.SourceCache
	}
	log.Info("interpreted", map[string]interface{}{
		"input":    text,
		"source":   string(record.Source),
		"commands": record.Commands,
	})

	if req.CopyToClipboard {
		s.copy(record.Command)
	}

	risks, err := s.checkGuard(interp.Args, cfg)
	outcome.Risk = risks
	if err != nil {
		record.Error = err.Error()
		s.save(record)
		return outcome, err
	}

	mode := req.Mode
	if mode == "" {
		if mode, err = cfg.DefaultExecutionMode(); err != nil {
			return outcome, err
		}
	}
	preview := !cfg.NLP.AutoConfirm && (req.ForcePreview || cfg.NLP.PreviewEnabled)

	summary, err := s.Executor.ExecuteCompound(ctx, interp.Command.Flatten(), mode, preview)
	record.ExecutionTimeMS = time.Since(started).Milliseconds()
	if err != nil {
		record.Error = err.Error()
		s.save(record)
		return outcome, err
	}
	outcome.Summary = &summary

	record.Executed = true
	record.Success = summary.IsCompleteSuccess()
	if !record.Success {
		record.Error = summary.Message()
	}
	s.save(record)

	if summary.Total == 1 && len(summary.Results) == 1 && !summary.Results[0].Success {
		return outcome, errors.New(summary.Results[0].Error)
	}
	return outcome, nil
}

// checkGuard evaluates every mapped command. A block stops the whole input;
// confirmations are asked once per risky command unless auto_confirm is on.
func (s *Service) checkGuard(args [][]string, cfg domain.Config) ([]domain.RiskAssessment, error) {
	if s.Guard == nil || !cfg.IsGuardEnabled() {
		return nil, nil
	}
	risks := make([]domain.RiskAssessment, 0, len(args))
	for i, a := range args {
		risk, err := s.Guard.Evaluate(a)
		if err != nil {
			return risks, fmt.Errorf("guard evaluate: %w", err)
		}
		risks = append(risks, risk)

		if risk.Blocked() {
			return risks, &domain.ExecutionError{
				Index:   i,
				Args:    a,
				Message: "blocked by guard: " + strings.Join(risk.Reasons, "; "),
			}
		}
		if !risk.RequiresConfirmation() || cfg.NLP.AutoConfirm {
			continue
		}
		if s.Confirmer == nil {
			return risks, &domain.ExecutionError{
				Index:   i,
				Args:    a,
				Message: "requires confirmation: " + strings.Join(risk.Reasons, "; "),
			}
		}
		prompt := fmt.Sprintf("%s risk: %s\n  %s",
			strings.ToUpper(string(risk.Level)), strings.Join(risk.Reasons, "; "), strings.Join(a, " "))
		ok, err := s.Confirmer.ConfirmExplicit(prompt)
		if err != nil {
			return risks, fmt.Errorf("read confirmation: %w", err)
		}
		if !ok {
			return risks, domain.ErrCancelled
		}
	}
	return risks, nil
}

func (s *Service) copy(command string) {
	if s.Clipboard == nil || !s.Clipboard.Enabled() {
		return
	}
	if err := s.Clipboard.Copy(command); err != nil {
		s.logger().Warn("clipboard copy failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) save(record domain.HistoryRecord) {
	if s.History == nil {
		return
	}
	if err := s.History.Save(record); err != nil {
		s.logger().Warn("history save failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) logger() ports.Logger {
	if s.Logger == nil {
		return logger.Nop{}
	}
	return s.Logger
}

func firstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func joinArgs(args [][]string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, strings.Join(a, " "))
	}
	return strings.Join(parts, "; ")
}
