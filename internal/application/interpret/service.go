// Package interpret puts the response cache in front of the interpreter.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/ports"
)

// Service resolves natural-language text to structured commands. Personal
// shortcuts win, then taught corrections, then the cache, then the
// interpreter, whose fresh answers are cached afterwards. Identical in-flight
// requests share one interpreter call.
type Service struct {
	Interpreter ports.Interpreter
	Mapper      ports.CommandMapper
	Cache       ports.ResponseCache
	Learning    ports.LearningRepository
	Logger      ports.Logger
	// CacheCommands mirrors nlp.cache_commands.
	CacheCommands bool

	group singleflight.Group
}

// Interpretation is a resolved command together with its mapped form.
type Interpretation struct {
	Command     domain.StructuredCommand
	Args        [][]string
	Description string
	CacheHit    bool
}

// Interpret returns the structured command for text.
func (s *Service) Interpret(ctx context.Context, text string) (domain.StructuredCommand, bool, error) {
	if s.Interpreter == nil {
		return domain.StructuredCommand{}, false, errors.New("interpret.Service dependencies not satisfied")
	}
	log := s.logger()
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.StructuredCommand{}, false, &domain.InterpretError{Input: text, Message: "empty input"}
	}

	if cmd, ok := s.learned(text); ok {
		return cmd, false, nil
	}

	useCache := s.CacheCommands && s.Cache != nil
	if useCache {
		if cmd, ok := s.Cache.Get(text); ok {
			log.Debug("cache hit", map[string]interface{}{"input": text})
			return cmd, true, nil
		}
		log.Debug("cache miss", map[string]interface{}{"input": text})
	}

	value, err, shared := s.group.Do(domain.NormalizeInput(text), func() (interface{}, error) {
		return s.Interpreter.Parse(ctx, text)
	})
	if err != nil {
		return domain.StructuredCommand{}, false, err
	}
	if shared {
		log.Debug("shared interpreter call", map[string]interface{}{"input": text})
	}
	cmd := value.(domain.StructuredCommand).Clone()

	if useCache && cacheable(cmd) {
		if err := s.Cache.Put(text, cmd); err != nil {
			log.Warn("cache store failed", map[string]interface{}{"input": text, "error": err.Error()})
		}
	}
	return cmd, false, nil
}

// Resolve interprets text and maps the result to argument vectors.
func (s *Service) Resolve(ctx context.Context, text string) (Interpretation, error) {
	if s.Mapper == nil {
		return Interpretation{}, errors.New("interpret.Service mapper not configured")
	}
	cmd, hit, err := s.Interpret(ctx, text)
	if err != nil {
		return Interpretation{}, err
	}
	members := cmd.Flatten()
	args := make([][]string, 0, len(members))
	descriptions := make([]string, 0, len(members))
	for _, member := range members {
		mapped := s.Mapper.ToActionArgs(member)
		if len(mapped) == 0 {
			return Interpretation{}, &domain.InterpretError{
				Input:   text,
				Message: fmt.Sprintf("no action for %q", member.Summary()),
			}
		}
		args = append(args, mapped)
		descriptions = append(descriptions, s.Mapper.DescribeCommand(member))
	}
	return Interpretation{
		Command:     cmd,
		Args:        args,
		Description: strings.Join(descriptions, "; "),
		CacheHit:    hit,
	}, nil
}

// learned consults shortcuts and corrections. Their answers are never cached;
// the learning store is already authoritative.
func (s *Service) learned(text string) (domain.StructuredCommand, bool) {
	if s.Learning == nil {
		return domain.StructuredCommand{}, false
	}
	if cmd, ok := s.Learning.Shortcut(text); ok {
		s.logger().Debug("shortcut expanded", map[string]interface{}{"input": text})
		cmd.Source = domain.SourceShortcut
		return cmd, true
	}
	if cmd, ok := s.Learning.Correction(text); ok {
		s.logger().Debug("learned correction applied", map[string]interface{}{"input": text})
		cmd.Source = domain.SourceLearned
		return cmd, true
	}
	return domain.StructuredCommand{}, false
}

func (s *Service) logger() ports.Logger {
	if s.Logger == nil {
		return logger.Nop{}
	}
	return s.Logger
}

// cacheable skips keyword guesses so a later model call can do better.
func cacheable(cmd domain.StructuredCommand) bool {
	for _, member := range cmd.Flatten() {
		if member.Source == domain.SourceKeyword {
			return false
		}
	}
	return cmd.Source != domain.SourceKeyword
}
