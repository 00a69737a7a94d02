package interpreter

import (
	"strings"

	"github.com/doeshing/tasq/internal/domain"
)

// keywordActions is checked in order; the first keyword found anywhere in
// the text decides the action.
var keywordActions = []struct {
	words  []string
	action domain.ActionType
}{
	{[]string{"task", "add", "create"}, domain.ActionTask},
	{[]string{"record"}, domain.ActionRecord},
	{[]string{"done", "complete"}, domain.ActionDone},
	{[]string{"show", "list"}, domain.ActionList},
	{[]string{"delete", "remove"}, domain.ActionDelete},
	{[]string{"update", "change"}, domain.ActionUpdate},
}

// KeywordFallback guesses an action from keywords when neither the rules nor
// the model produced a command. The whole input becomes the content and the
// default is task creation.
func KeywordFallback(input string) domain.StructuredCommand {
	lower := strings.ToLower(input)
	action := domain.ActionTask
	for _, k := range keywordActions {
		if containsAny(lower, k.words) {
			action = k.action
			break
		}
	}
	return domain.StructuredCommand{
		Action:  action,
		Content: input,
		Source:  domain.SourceKeyword,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
