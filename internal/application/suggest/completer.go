package suggest

import (
	"sync"

	"github.com/doeshing/tasq/internal/domain"
)

// AutoCompleter wraps an Engine with bounded command history and the known
// categories. Safe for concurrent use.
type AutoCompleter struct {
	engine     *Engine
	mu         sync.Mutex
	history    []string
	categories []string
	capacity   int
}

// NewAutoCompleter builds a completer keeping at most capacity history
// entries. Non-positive capacity uses domain.DefaultCompleterHistory.
func NewAutoCompleter(engine *Engine, capacity int) *AutoCompleter {
	if capacity <= 0 {
		capacity = domain.DefaultCompleterHistory
	}
	return &AutoCompleter{engine: engine, capacity: capacity}
}

// AddToHistory appends command, evicting the oldest entries past capacity.
func (a *AutoCompleter) AddToHistory(command string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, command)
	if over := len(a.history) - a.capacity; over > 0 {
		a.history = append([]string(nil), a.history[over:]...)
	}
}

// History returns the retained entries, oldest first.
func (a *AutoCompleter) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}

// UpdateCategories replaces the known category list.
func (a *AutoCompleter) UpdateCategories(categories []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.categories = append([]string(nil), categories...)
}

// Complete returns only the suggestion texts for input.
func (a *AutoCompleter) Complete(input string) []string {
	return a.Suggest(input).Texts()
}

// Suggest returns the full ranked result for input.
func (a *AutoCompleter) Suggest(input string) domain.SuggestionResult {
	a.mu.Lock()
	req := domain.SuggestionRequest{
		Input:          input,
		CursorPosition: len(input),
		RecentCommands: append([]string(nil), a.history...),
		Categories:     append([]string(nil), a.categories...),
	}
	a.mu.Unlock()
	return a.engine.Suggest(req)
}
