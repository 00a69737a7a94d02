// Package interpreter turns natural-language text into structured commands.
//
// Input is first tried against deterministic pattern rules. Anything the
// rules cannot place goes to the configured language-model provider, whose
// JSON reply is decoded and validated. When the provider is offline or the
// reply is not JSON, a keyword heuristic produces a best-effort command.
package interpreter

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/logger"
	"github.com/doeshing/tasq/internal/ports"
)

// Interpreter is safe for concurrent use; provider calls are serialized.
type Interpreter struct {
	mapper    ports.CommandMapper
	logger    ports.Logger
	maxTokens int

	mu       sync.Mutex
	provider ports.Provider
	limiter  *rateLimiter
}

// New builds an interpreter. maxCallsPerMinute <= 0 uses the default.
func New(provider ports.Provider, mapper ports.CommandMapper, log ports.Logger, maxCallsPerMinute int) *Interpreter {
	if log == nil {
		log = logger.Nop{}
	}
	return &Interpreter{
		mapper:    mapper,
		logger:    log,
		maxTokens: domain.DefaultMaxTokens,
		provider:  provider,
		limiter:   newRateLimiter(maxCallsPerMinute),
	}
}

// SetProvider swaps the backend, for example after `nlp config set-provider`.
func (i *Interpreter) SetProvider(p ports.Provider) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.provider = p
}

// ProviderName reports the active backend.
func (i *Interpreter) ProviderName() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.provider == nil {
		return domain.ProviderOffline
	}
	return i.provider.Name()
}

// Parse interprets text. Every failure is a *domain.InterpretError.
func (i *Interpreter) Parse(ctx context.Context, text string) (domain.StructuredCommand, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return domain.StructuredCommand{}, &domain.InterpretError{Input: text, Message: "empty input"}
	}

	match := MatchPattern(input)
	switch match.Kind {
	case MatchFound:
		i.logger.Debug("pattern matched", map[string]interface{}{"input": input, "action": string(match.Command.Action)})
		return i.validated(input, match.Command)
	case MatchAmbiguous:
		return domain.StructuredCommand{}, &domain.InterpretError{Input: input, Message: match.Message, Ambiguous: true}
	}

	reply, err := i.complete(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrProviderOffline) {
			i.logger.Debug("provider offline, using keyword rules", map[string]interface{}{"input": input})
			return i.validated(input, KeywordFallback(input))
		}
		return domain.StructuredCommand{}, &domain.InterpretError{Input: input, Message: err.Error()}
	}

	cmd, err := decodeModelOutput(reply)
	if err != nil {
		i.logger.Warn("model reply unusable, using keyword rules", map[string]interface{}{"input": input, "reason": err.Error()})
		return i.validated(input, KeywordFallback(input))
	}
	return i.validated(input, cmd)
}

// ParseToCompoundArgs interprets text and maps every executable command to
// an argument vector. Descriptions are joined with "; ".
func (i *Interpreter) ParseToCompoundArgs(ctx context.Context, text string) ([][]string, string, error) {
	cmd, err := i.Parse(ctx, text)
	if err != nil {
		return nil, "", err
	}
	return i.MapCommand(cmd)
}

// MapCommand flattens cmd and maps each member.
func (i *Interpreter) MapCommand(cmd domain.StructuredCommand) ([][]string, string, error) {
	if i.mapper == nil {
		return nil, "", errors.New("interpreter has no command mapper")
	}
	commands := cmd.Flatten()
	args := make([][]string, 0, len(commands))
	descriptions := make([]string, 0, len(commands))
	for _, c := range commands {
		args = append(args, i.mapper.ToActionArgs(c))
		descriptions = append(descriptions, i.mapper.DescribeCommand(c))
	}
	return args, strings.Join(descriptions, "; "), nil
}

func (i *Interpreter) complete(ctx context.Context, input string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.provider == nil {
		return "", domain.ErrProviderOffline
	}
	if err := i.limiter.Wait(ctx); err != nil {
		return "", err
	}

	i.logger.Debug("calling provider", map[string]interface{}{"provider": i.provider.Name()})
	resp, err := i.provider.Complete(ctx, ports.ProviderRequest{
		System:    systemPrompt,
		Prompt:    input,
		MaxTokens: i.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (i *Interpreter) validated(input string, cmd domain.StructuredCommand) (domain.StructuredCommand, error) {
	if err := Validate(cmd); err != nil {
		return domain.StructuredCommand{}, &domain.InterpretError{Input: input, Message: err.Error()}
	}
	return cmd, nil
}

var _ ports.Interpreter = (*Interpreter)(nil)
