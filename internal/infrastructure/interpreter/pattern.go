package interpreter

import (
	"regexp"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// MatchKind classifies the outcome of the deterministic pre-check.
type MatchKind int

const (
	// MatchNeedsModel means no rule applied and the text must go to the model.
	MatchNeedsModel MatchKind = iota
	// MatchFound carries a fully formed command.
	MatchFound
	// MatchAmbiguous asks the user to clarify; Message says why.
	MatchAmbiguous
)

// Match is the result of MatchPattern.
type Match struct {
	Kind    MatchKind
	Command domain.StructuredCommand
	Message string
}

// PatternInfo describes one rule for `nlp config patterns`.
type PatternInfo struct {
	Name    string
	Example string
}

type rule struct {
	name    string
	example string
	re      *regexp.Regexp
	build   func(m []string) (Match, bool)
}

// complexMarkers send text straight to the model even when a rule would match.
var complexMarkers = []string{
	"deadline",
	" to work category",
	" to personal category",
	"every day",
	"every week",
	"recurring",
	"repeat",
}

// categoryStopWords are words the category listing rule must not capture.
var categoryStopWords = map[string]bool{
	"done": true, "pending": true, "ongoing": true, "cancelled": true, "all": true,
	"overdue": true, "upcoming": true, "urgent": true,
}

var queryWords = map[string]domain.QueryType{
	"overdue":        domain.QueryOverdue,
	"upcoming":       domain.QueryUpcoming,
	"unscheduled":    domain.QueryUnscheduled,
	"due today":      domain.QueryDueToday,
	"due tomorrow":   domain.QueryDueTomorrow,
	"due this week":  domain.QueryDueThisWeek,
	"due this month": domain.QueryDueThisMonth,
	"urgent":         domain.QueryUrgent,
}

var rules = []rule{
	{
		name:    "add task",
		example: "add task buy milk",
		re:      regexp.MustCompile(`(?i)^(?:(add|create|new)\s+)?task\s+(.+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionTask, Content: m[2]}), true
		},
	},
	{
		name:    "add record",
		example: "log ran 5k",
		re:      regexp.MustCompile(`(?i)^(?:add\s+)?(?:record|log)\s+(.+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionRecord, Content: m[1]}), true
		},
	},
	{
		name:    "complete",
		example: "done 3",
		re:      regexp.MustCompile(`(?i)^(?:complete|done|finish|check|tick)\s+#?(\d+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionDone, Content: m[1]}), true
		},
	},
	{
		name:    "delete",
		example: "delete #4",
		re:      regexp.MustCompile(`(?i)^(?:delete|remove|del)\s+#?(\d+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionDelete, Content: m[1]}), true
		},
	},
	{
		name:    "list",
		example: "list tasks",
		re:      regexp.MustCompile(`(?i)^(?:list\s+tasks?|show\s+tasks?|ls|list|show)$`),
		build: func([]string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionList}), true
		},
	},
	{
		name:    "list records",
		example: "records",
		re:      regexp.MustCompile(`(?i)^(?:list\s+records|show\s+records|records)$`),
		build: func([]string) (Match, bool) {
			return found(domain.StructuredCommand{
				Action:  domain.ActionList,
				Filters: map[string]string{"type": "record"},
			}), true
		},
	},
	{
		name:    "list by category",
		example: "show work tasks",
		re:      regexp.MustCompile(`(?i)^(?:list|show)?\s*(\w+)\s+tasks?$`),
		build: func(m []string) (Match, bool) {
			if categoryStopWords[strings.ToLower(m[1])] {
				return Match{}, false
			}
			return found(domain.StructuredCommand{Action: domain.ActionList, Category: m[1]}), true
		},
	},
	{
		name:    "list by status",
		example: "list pending tasks",
		re:      regexp.MustCompile(`(?i)^(?:list|show)?\s*(done|pending|ongoing|cancelled|all)\s+tasks?$`),
		build: func(m []string) (Match, bool) {
			status, ok := domain.ParseStatusType(m[1])
			if !ok {
				return Match{}, false
			}
			return found(domain.StructuredCommand{Action: domain.ActionList, Status: status}), true
		},
	},
	{
		name:    "query",
		example: "due this week",
		re:      regexp.MustCompile(`(?i)^(overdue|upcoming|due today|due tomorrow|unscheduled|urgent|due this week|due this month)(?:\s+tasks?)?$`),
		build: func(m []string) (Match, bool) {
			q, ok := queryWords[strings.ToLower(m[1])]
			if !ok {
				return Match{}, false
			}
			return found(domain.StructuredCommand{Action: domain.ActionList, QueryType: q}), true
		},
	},
	{
		name:    "update",
		example: "edit 2 call the bank",
		re:      regexp.MustCompile(`(?i)^(?:update|edit|modify)\s+#?(\d+)(?:\s+(.+))?$`),
		build: func(m []string) (Match, bool) {
			cmd := domain.StructuredCommand{Action: domain.ActionUpdate, Content: m[1]}
			if m[2] != "" {
				cmd.Modifications = map[string]string{"content": m[2]}
			}
			return found(cmd), true
		},
	},
	{
		name:    "help",
		example: "what can i do",
		re:      regexp.MustCompile(`(?i)^(?:help|what\s+can\s+i\s+do|how\s+to\s+use|\?)$`),
		build: func([]string) (Match, bool) {
			return Match{Kind: MatchAmbiguous, Message: "Help requested - showing available commands"}, true
		},
	},
	{
		name:    "clear all",
		example: "clear all tasks",
		re:      regexp.MustCompile(`(?i)^(?:clear\s+all|reset)(?:\s+tasks?)?$`),
		build: func([]string) (Match, bool) {
			return Match{Kind: MatchAmbiguous, Message: "Clear all tasks? Confirm with 'yes'"}, true
		},
	},
	{
		name:    "search",
		example: "search dentist",
		re:      regexp.MustCompile(`(?i)^search\s+(.+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionList, Search: m[1]}), true
		},
	},
	{
		name:    "priority",
		example: "high priority tasks",
		re:      regexp.MustCompile(`(?i)^(high|low|medium)\s+priority\s+tasks?$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{
				Action:  domain.ActionList,
				Filters: map[string]string{"priority": strings.ToLower(m[1])},
			}), true
		},
	},
	{
		name:    "day listing",
		example: "today's tasks",
		re:      regexp.MustCompile(`(?i)^(today|tomorrow|yesterday)'?s?\s+tasks?$`),
		build: func(m []string) (Match, bool) {
			var q domain.QueryType
			switch strings.ToLower(m[1]) {
			case "today":
				q = domain.QueryDueToday
			case "tomorrow":
				q = domain.QueryDueTomorrow
			default:
				q = domain.QueryOverdue
			}
			return found(domain.StructuredCommand{Action: domain.ActionList, QueryType: q}), true
		},
	},
	{
		name:    "set category",
		example: "set groceries category to home",
		re:      regexp.MustCompile(`(?i)^set\s+(\w+)\s+category\s+to\s+(\w+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{
				Action:        domain.ActionUpdate,
				Content:       m[1],
				Modifications: map[string]string{"category": m[2]},
			}), true
		},
	},
	{
		name:    "show item",
		example: "#7",
		re:      regexp.MustCompile(`^#?(\d+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{
				Action:  domain.ActionList,
				Content: m[1],
				Filters: map[string]string{"id": m[1]},
			}), true
		},
	},
	{
		name:    "add",
		example: "add water the plants",
		re:      regexp.MustCompile(`(?i)^add\s+(.+)$`),
		build: func(m []string) (Match, bool) {
			return found(domain.StructuredCommand{Action: domain.ActionTask, Content: m[1]}), true
		},
	},
}

// MatchPattern runs the deterministic rules over input. Rules are tried in
// order and the first that applies wins.
func MatchPattern(input string) Match {
	input = strings.TrimSpace(input)
	if input == "" || needsModel(strings.ToLower(input)) {
		return Match{Kind: MatchNeedsModel}
	}
	if match, ok := matchConditional(input); ok {
		return match
	}

	for _, r := range rules {
		m := r.re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if match, ok := r.build(m); ok {
			return match
		}
	}
	return Match{Kind: MatchNeedsModel}
}

// RuleMatcher exposes MatchPattern through the PatternMatcher port.
type RuleMatcher struct{}

// Match reports the command for input when a rule fully applies.
func (RuleMatcher) Match(input string) (domain.StructuredCommand, bool) {
	m := MatchPattern(input)
	if m.Kind != MatchFound {
		return domain.StructuredCommand{}, false
	}
	return m.Command, true
}

var _ ports.PatternMatcher = RuleMatcher{}

// Patterns lists the deterministic rules in evaluation order.
func Patterns() []PatternInfo {
	out := make([]PatternInfo, 0, len(rules)+1)
	out = append(out, PatternInfo{Name: "conditional", Example: conditionalExample})
	for _, r := range rules {
		out = append(out, PatternInfo{Name: r.name, Example: r.example})
	}
	return out
}

func needsModel(lower string) bool {
	for _, marker := range complexMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasSuffix(lower, " category") && len(lower) > len("category")+5
}

func found(cmd domain.StructuredCommand) Match {
	cmd.Source = domain.SourcePattern
	return Match{Kind: MatchFound, Command: cmd}
}
