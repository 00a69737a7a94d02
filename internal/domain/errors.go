package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the operator declines a confirmation prompt.
// It is not a failure and nothing has been executed.
var ErrCancelled = errors.New("Commands cancelled by user.")

// ErrProviderOffline is returned by providers that cannot reach a model.
// The interpreter answers with local rules instead.
var ErrProviderOffline = errors.New("language model provider is offline")

// ErrRateLimited is returned when the per-minute model call budget would be
// exceeded and the caller gave up waiting.
var ErrRateLimited = errors.New("model call rate limit exceeded")

// ErrNLPDisabled is returned when free text needs interpretation but
// nlp.enabled is off.
var ErrNLPDisabled = errors.New("natural-language input is disabled; run 'tasq nlp config enable'")

// ParseError reports input that matched no traditional grammar.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("parse error: %s", e.Reason)
	}
	return fmt.Sprintf("parse error in %q: %s", e.Input, e.Reason)
}

// InterpretError reports that natural-language text could not become a
// structured command. Ambiguous marks requests that need clarification.
type InterpretError struct {
	Input     string
	Message   string
	Ambiguous bool
}

func (e *InterpretError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("ambiguous command, please clarify: %s", e.Message)
	}
	return fmt.Sprintf("could not interpret %q: %s", e.Input, e.Message)
}

// ExecutionError reports an action-layer failure for one member of a run.
type ExecutionError struct {
	Index   int
	Args    []string
	Message string
}

func (e *ExecutionError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("command %d failed: %s", e.Index+1, e.Message)
	}
	return fmt.Sprintf("command %d (%s) failed: %s", e.Index+1, strings.Join(e.Args, " "), e.Message)
}

// CacheError wraps storage or serialization failures in the response cache.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsAmbiguous reports whether err asks the user for clarification.
func IsAmbiguous(err error) bool {
	var ie *InterpretError
	if errors.As(err, &ie) {
		return ie.Ambiguous
	}
	return false
}
