package domain

// SuggestionKind classifies where a suggestion came from.
type SuggestionKind string

const (
	SuggestCompletion      SuggestionKind = "completion"
	SuggestSimilarCommand  SuggestionKind = "similar_command"
	SuggestTypoCorrection  SuggestionKind = "typo_correction"
	SuggestAvailableOption SuggestionKind = "available_option"
	SuggestContextual      SuggestionKind = "contextual"
)

// Suggestion is one ranked candidate for partial input.
type Suggestion struct {
	Text        string         `json:"text"`
	Kind        SuggestionKind `json:"kind"`
	Confidence  float64        `json:"confidence"`
	Description string         `json:"description"`
}

// SuggestionRequest carries partial input and what the caller knows about it.
type SuggestionRequest struct {
	Input          string
	CursorPosition int
	RecentCommands []string
	Categories     []string
}

// SuggestionResult is the ranked, bounded answer to a request.
type SuggestionResult struct {
	Suggestions   []Suggestion       `json:"suggestions"`
	IsValid       bool               `json:"is_valid"`
	ParsedCommand *StructuredCommand `json:"parsed_command,omitempty"`
}

// Texts returns only the suggested strings.
func (r SuggestionResult) Texts() []string {
	out := make([]string, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		out = append(out, s.Text)
	}
	return out
}
