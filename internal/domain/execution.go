package domain

import (
	"fmt"
	"strings"
)

// ExecutionMode governs failure propagation and context visibility across a
// compound run.
type ExecutionMode string

const (
	ModeSequential      ExecutionMode = "sequential"
	ModeStopOnError     ExecutionMode = "stop_on_error"
	ModeContinueOnError ExecutionMode = "continue_on_error"
	// ModeParallel isolates failures only; commands are still issued one at a time.
	ModeParallel  ExecutionMode = "parallel"
	ModeDependent ExecutionMode = "dependent"
)

// ParseExecutionMode accepts the canonical names plus dashed variants.
func ParseExecutionMode(value string) (ExecutionMode, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch ExecutionMode(key) {
	case ModeSequential, ModeStopOnError, ModeContinueOnError, ModeParallel, ModeDependent:
		return ExecutionMode(key), nil
	case "":
		return ModeContinueOnError, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q (sequential|stop_on_error|continue_on_error|parallel|dependent)", value)
	}
}

// StopsOnFailure reports whether the first failed command ends the run.
func (m ExecutionMode) StopsOnFailure() bool {
	return m == ModeSequential || m == ModeStopOnError || m == ModeDependent
}

// Label is the human form used in previews.
func (m ExecutionMode) Label() string {
	switch m {
	case ModeSequential:
		return "Sequential"
	case ModeStopOnError:
		return "Stop on error"
	case ModeContinueOnError:
		return "Continue on error"
	case ModeParallel:
		return "Parallel"
	case ModeDependent:
		return "Dependent"
	default:
		return string(m)
	}
}

// ExecutionOutput describes what a successful command touched.
type ExecutionOutput struct {
	ItemID   *int64            `json:"item_id,omitempty"`
	Content  string            `json:"content"`
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExecutionResult is the outcome of one member of a compound run. Skipped
// marks a conditional command whose condition was false; it counts as a
// success and leaves the context untouched.
type ExecutionResult struct {
	Index   int              `json:"index"`
	Success bool             `json:"success"`
	Skipped bool             `json:"skipped,omitempty"`
	Error   string           `json:"error,omitempty"`
	Output  *ExecutionOutput `json:"output,omitempty"`
}

// ExecutionContext is scratch state threaded between members of one compound
// run. It is mutated only by successful results and discarded afterwards.
type ExecutionContext struct {
	LastItemID   *int64
	LastCategory string
	LastContent  string
	History      []ExecutionResult
	Variables    map[string]string
}

// NewExecutionContext returns an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{Variables: map[string]string{}}
}

// SetVariable stores a named value for `$name` substitution.
func (c *ExecutionContext) SetVariable(name, value string) {
	if c.Variables == nil {
		c.Variables = map[string]string{}
	}
	c.Variables[name] = value
}

// Variable looks up a named value.
func (c *ExecutionContext) Variable(name string) (string, bool) {
	v, ok := c.Variables[name]
	return v, ok
}

// Apply folds a successful result into the context.
func (c *ExecutionContext) Apply(result ExecutionResult) {
	c.History = append(c.History, result)
	if result.Output == nil {
		return
	}
	if result.Output.ItemID != nil {
		id := *result.Output.ItemID
		c.LastItemID = &id
	}
	if result.Output.Content != "" {
		c.LastContent = result.Output.Content
	}
	if result.Output.Category != "" {
		c.LastCategory = result.Output.Category
	}
}

// Resolve substitutes context references in a copy of cmd:
// "it"/"that" content, a missing category, and `$name` modification values.
// Unknown references are left as written.
func (c *ExecutionContext) Resolve(cmd StructuredCommand) StructuredCommand {
	resolved := cmd.Clone()
	if (resolved.Content == "it" || resolved.Content == "that") && c.LastContent != "" {
		resolved.Content = c.LastContent
	}
	if resolved.Category == "" && c.LastCategory != "" {
		resolved.Category = c.LastCategory
	}
	for key, value := range resolved.Modifications {
		if !strings.HasPrefix(value, "$") {
			continue
		}
		if v, ok := c.Variable(value[1:]); ok {
			resolved.Modifications[key] = v
		}
	}
	return resolved
}

// ExecutionSummary is the outcome of a whole compound run.
type ExecutionSummary struct {
	Total   int
	Results []ExecutionResult
	Context *ExecutionContext
}

// Successful counts results that succeeded.
func (s ExecutionSummary) Successful() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Skipped counts conditional commands that did not run.
func (s ExecutionSummary) Skipped() int {
	n := 0
	for _, r := range s.Results {
		if r.Skipped {
			n++
		}
	}
	return n
}

// Failed counts results that failed.
func (s ExecutionSummary) Failed() int {
	return len(s.Results) - s.Successful()
}

// IsCompleteSuccess is true iff every recorded result succeeded.
func (s ExecutionSummary) IsCompleteSuccess() bool {
	return s.Failed() == 0
}

// Message renders the one-line human summary.
func (s ExecutionSummary) Message() string {
	if s.IsCompleteSuccess() {
		return fmt.Sprintf("All %d command(s) executed successfully", s.Total)
	}
	return fmt.Sprintf("Executed %d command(s): %d succeeded, %d failed", s.Total, s.Successful(), s.Failed())
}
