// Package suggest ranks completions, typo corrections and follow-ups for
// partial input. It never executes anything.
package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// Engine produces ranked suggestions.
type Engine struct {
	Patterns ports.PatternMatcher
}

// NewEngine builds an engine over the given deterministic matcher.
func NewEngine(patterns ports.PatternMatcher) *Engine {
	return &Engine{Patterns: patterns}
}

type prefixCompletion struct {
	prefixes    []string
	text        string
	confidence  float64
	description string
}

type typoCorrection struct {
	typo       string
	correction string
	confidence float64
}

var commonCommands = []domain.Suggestion{
	{Text: "add task ", Kind: domain.SuggestCompletion, Confidence: 1.0, Description: "Add a new task"},
	{Text: "list", Kind: domain.SuggestCompletion, Confidence: 0.95, Description: "List all tasks"},
	{Text: "done ", Kind: domain.SuggestCompletion, Confidence: 0.90, Description: "Mark a task as complete"},
	{Text: "delete ", Kind: domain.SuggestCompletion, Confidence: 0.85, Description: "Delete a task"},
	{Text: "overdue", Kind: domain.SuggestCompletion, Confidence: 0.80, Description: "Show overdue tasks"},
	{Text: "due today", Kind: domain.SuggestCompletion, Confidence: 0.75, Description: "Show tasks due today"},
}

var completions = []prefixCompletion{
	{prefixes: []string{"com"}, text: "complete ", confidence: 0.95, description: "Complete a task by number"},
	{prefixes: []string{"li", "sh"}, text: "list", confidence: 0.95, description: "List all tasks"},
	{prefixes: []string{"li", "sh"}, text: "list work tasks", confidence: 0.80, description: "List tasks by category"},
	{prefixes: []string{"li", "sh"}, text: "list done tasks", confidence: 0.80, description: "List completed tasks"},
	{prefixes: []string{"up", "ed"}, text: "update ", confidence: 0.95, description: "Update a task by number"},
	{prefixes: []string{"over"}, text: "overdue", confidence: 0.95, description: "Show overdue tasks"},
	{prefixes: []string{"upc"}, text: "upcoming", confidence: 0.95, description: "Show upcoming tasks"},
}

var typos = []typoCorrection{
	{typo: "ad", correction: "add ", confidence: 0.9},
	{typo: "complet", correction: "complete ", confidence: 0.9},
	{typo: "delet", correction: "delete ", confidence: 0.9},
	{typo: "updte", correction: "update ", confidence: 0.85},
	{typo: "lis", correction: "list", confidence: 0.9},
	{typo: "shwo", correction: "show", confidence: 0.85},
	{typo: "don", correction: "done ", confidence: 0.85},
	{typo: "ta sk", correction: "task ", confidence: 0.8},
	{typo: "recrd", correction: "record ", confidence: 0.8},
}

// maxCategoryCompletions caps the per-category listing suggestions.
const maxCategoryCompletions = 3

// Suggest returns at most domain.MaxSuggestions candidates sorted by
// non-increasing confidence. Ties keep insertion order.
func (e *Engine) Suggest(req domain.SuggestionRequest) domain.SuggestionResult {
	input := strings.TrimSpace(req.Input)
	result := domain.SuggestionResult{}

	if e.Patterns != nil && input != "" {
		if cmd, ok := e.Patterns.Match(input); ok {
			result.IsValid = true
			result.ParsedCommand = &cmd
		}
	}

	var suggestions []domain.Suggestion
	if input == "" {
		suggestions = append(suggestions, commonCommands...)
		suggestions = append(suggestions, contextualSuggestions(input, req.RecentCommands)...)
	} else {
		suggestions = append(suggestions, completionSuggestions(input, req.Categories)...)
		suggestions = append(suggestions, typoSuggestions(input)...)
		suggestions = append(suggestions, contextualSuggestions(input, req.RecentCommands)...)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > domain.MaxSuggestions {
		suggestions = suggestions[:domain.MaxSuggestions]
	}
	result.Suggestions = suggestions
	return result
}

func completionSuggestions(input string, categories []string) []domain.Suggestion {
	lower := strings.ToLower(input)
	var out []domain.Suggestion

	if strings.HasPrefix(lower, "add") || strings.HasPrefix(lower, "task") {
		out = append(out, domain.Suggestion{
			Text:        input + " ",
			Kind:        domain.SuggestCompletion,
			Confidence:  0.9,
			Description: "Adding a task/record",
		})
	}

	for _, c := range completions {
		if !hasAnyPrefix(lower, c.prefixes) {
			continue
		}
		out = append(out, domain.Suggestion{
			Text:        c.text,
			Kind:        domain.SuggestCompletion,
			Confidence:  c.confidence,
			Description: c.description,
		})
	}

	if strings.HasPrefix(lower, "list") || strings.HasPrefix(lower, "show") {
		for i, category := range categories {
			if i == maxCategoryCompletions {
				break
			}
			out = append(out, domain.Suggestion{
				Text:        fmt.Sprintf("list %s tasks", category),
				Kind:        domain.SuggestCompletion,
				Confidence:  0.70,
				Description: fmt.Sprintf("List %s tasks", category),
			})
		}
	}
	return out
}

// typoSuggestions replaces only the misspelled prefix and keeps the rest of
// the input verbatim. Input that already spells the correction is left alone.
func typoSuggestions(input string) []domain.Suggestion {
	lower := strings.ToLower(input)
	var out []domain.Suggestion
	for _, t := range typos {
		// Compare the original bytes; lowercasing can change byte lengths.
		if len(input) < len(t.typo) || !strings.EqualFold(input[:len(t.typo)], t.typo) {
			continue
		}
		word := strings.TrimSpace(t.correction)
		if strings.HasPrefix(lower, word) {
			continue
		}
		out = append(out, domain.Suggestion{
			Text:        t.correction + input[len(t.typo):],
			Kind:        domain.SuggestTypoCorrection,
			Confidence:  t.confidence,
			Description: fmt.Sprintf("Did you mean '%s'?", word),
		})
	}
	return out
}

func contextualSuggestions(input string, recent []string) []domain.Suggestion {
	lower := strings.ToLower(input)
	var out []domain.Suggestion

	window := recent
	if len(window) > domain.ContextualHistoryDepth {
		window = window[len(window)-domain.ContextualHistoryDepth:]
	}

	completing := strings.HasPrefix(lower, "done") || strings.HasPrefix(lower, "complete")
	if completing {
		for _, entry := range window {
			entryLower := strings.ToLower(entry)
			if strings.HasPrefix(entryLower, "add task") || strings.HasPrefix(entryLower, "task ") {
				out = append(out, domain.Suggestion{
					Text:        "complete 1",
					Kind:        domain.SuggestContextual,
					Confidence:  0.75,
					Description: "Complete the most recent task",
				})
				break
			}
		}
	}

	for _, entry := range window {
		if !strings.HasPrefix(strings.ToLower(entry), "list") {
			continue
		}
		if input == "" || strings.HasPrefix(lower, "d") {
			out = append(out, domain.Suggestion{
				Text:        "done ",
				Kind:        domain.SuggestContextual,
				Confidence:  0.70,
				Description: "Mark a task as complete",
			})
		}
		break
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
