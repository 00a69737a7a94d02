// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the orchestration core and
// external adapters (infrastructure). The router, executor and session only
// see these interfaces, so the interpreter, the action layer, the response
// cache and the confirmation prompt can all be swapped for test doubles or
// non-interactive implementations.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Interpreter, ActionRunner)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/tasq/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.tasq/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Interpreter turns natural-language text into structured commands.
// Implementations may be rule-based or backed by a remote language model;
// every failure is reported as *domain.InterpretError.
type Interpreter interface {
	Parse(ctx context.Context, text string) (domain.StructuredCommand, error)
	ParseToCompoundArgs(ctx context.Context, text string) ([][]string, string, error)
}

// PatternMatcher is the cheap rule-based pre-check. It reports a command only
// when the input fully matches a deterministic rule.
type PatternMatcher interface {
	Match(input string) (domain.StructuredCommand, bool)
}

// CommandMapper converts structured commands into action-layer argument
// vectors and human descriptions.
type CommandMapper interface {
	ToActionArgs(domain.StructuredCommand) []string
	DescribeCommand(domain.StructuredCommand) string
}

// ActionReport is what the action layer knows about a successful invocation.
type ActionReport struct {
	ItemID   *int64
	Content  string
	Category string
}

// ActionRunner executes one traditional argument vector against the store.
// Parse failures are *domain.ParseError; anything else is a plain error whose
// message is shown to the user.
type ActionRunner interface {
	Execute(ctx context.Context, args []string) (ActionReport, error)
}

// ResponseCache persists interpreted commands keyed by normalized input.
// Get never fails: storage or decode problems degrade to a miss.
type ResponseCache interface {
	Get(text string) (domain.StructuredCommand, bool)
	Put(text string, cmd domain.StructuredCommand) error
	Clear() error
	Cleanup() (int, error)
	Stats() (domain.CacheStats, error)
	SetTTL(time.Duration)
	TTL() time.Duration
}

// LearningRepository answers for personal shortcuts and taught corrections.
// Lookups never fail: storage or decode problems degrade to a miss.
type LearningRepository interface {
	Shortcut(name string) (domain.StructuredCommand, bool)
	Correction(input string) (domain.StructuredCommand, bool)
}

// LearningReporter summarizes the learning store for diagnostics.
type LearningReporter interface {
	Stats() (domain.LearningStats, error)
	Path() string
}

// ConditionEvaluator decides store- and clock-based conditions. Conditions on
// the previous command's result are decided by the executor itself.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, cond domain.Condition) (bool, error)
}

// Confirmer blocks for a yes/no answer from the operator.
// Confirm accepts an empty answer, "y" or "yes"; ConfirmExplicit accepts only
// a typed "yes" and guards destructive commands.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
	ConfirmExplicit(prompt string) (bool, error)
}

// ProviderFactory builds the language-model provider for the current configuration.
type ProviderFactory interface {
	ForConfig(domain.Config) (Provider, error)
}

// Provider is a single-turn text completion backend used by the interpreter.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest carries the system instructions and the user text.
type ProviderRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// ProviderResponse holds the raw model text.
type ProviderResponse struct {
	Text string
}

// GuardService evaluates mapped commands against destructive-action rules.
type GuardService interface {
	Evaluate(args []string) (domain.RiskAssessment, error)
}

// HistoryRepository persists natural-language interactions.
// Records returns newest first; limit <= 0 means no limit.
type HistoryRepository interface {
	Save(domain.HistoryRecord) error
	Records(limit int, search string) ([]domain.HistoryRecord, error)
	Stats() (domain.HistoryStats, error)
	Retain(days int) (int, error)
	Clear() error
	ExportJSON(dest string) error
	Path() string
}

// ItemRepository stores tasks and records for the action layer.
type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) (domain.Item, error)
	Get(ctx context.Context, id int64) (domain.Item, error)
	Update(ctx context.Context, item domain.Item) error
	Delete(ctx context.Context, ids []int64) (int, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	Categories(ctx context.Context) ([]string, error)
	SaveSnapshot(ctx context.Context, ids []int64) error
	Snapshot(ctx context.Context) ([]int64, error)
}

// Clipboard provides cross-platform clipboard integration for copying commands.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// LineReader reads one line of operator input for the interactive session.
// Implementations return io.EOF when input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// ContextLineReader is a LineReader that abandons a pending read when ctx is
// done. The session prefers it so timeouts do not leave a read running.
type ContextLineReader interface {
	ReadLineContext(ctx context.Context, prompt string) (string, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
