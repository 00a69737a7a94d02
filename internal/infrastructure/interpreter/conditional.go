package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
)

var (
	conditionalRe = regexp.MustCompile(`(?i)^if\s+(.+?)(?:\s*,\s*|\s+then\s+)(.+)$`)
	hasTasksRe    = regexp.MustCompile(`(?i)^(\w+)\s+has\s+(?:open\s+|any\s+)?tasks$`)
	emptyRe       = regexp.MustCompile(`(?i)^(?:(\w+)\s+is\s+empty|(\w+)\s+has\s+no\s+(?:open\s+)?tasks)$`)
	countRe       = regexp.MustCompile(`(?i)^(?:task\s+count|open\s+tasks)(?:\s+in\s+(\w+))?\s+(?:is\s+)?(>=|<=|!=|==|=|>|<|more\s+than|over|less\s+than|under|at\s+least|at\s+most)\s*(\d+)$`)
	todayRe       = regexp.MustCompile(`(?i)^(?:today\s+is|it\s+is|it's)\s+(?:a\s+)?(.+)$`)
)

var wordOperators = map[string]string{
	"more than": ">",
	"over":      ">",
	"less than": "<",
	"under":     "<",
	"at least":  ">=",
	"at most":   "<=",
}

var dayNames = map[string]string{
	"mon": "Monday", "monday": "Monday",
	"tue": "Tuesday", "tues": "Tuesday", "tuesday": "Tuesday",
	"wed": "Wednesday", "wednesday": "Wednesday",
	"thu": "Thursday", "thurs": "Thursday", "thursday": "Thursday",
	"fri": "Friday", "friday": "Friday",
	"sat": "Saturday", "saturday": "Saturday",
	"sun": "Sunday", "sunday": "Sunday",
	"weekday": "weekday", "weekend": "weekend",
}

// conditionalExample is listed by Patterns alongside the plain rules.
const conditionalExample = "if work has tasks then show work tasks"

// matchConditional handles "if <guard> then <command>". The command part goes
// through the rules again; text no rule claims becomes a task.
func matchConditional(input string) (Match, bool) {
	m := conditionalRe.FindStringSubmatch(input)
	if m == nil {
		return Match{}, false
	}
	cond, ok := parseGuard(strings.TrimSpace(m[1]))
	if !ok {
		return Match{}, false
	}

	body := strings.TrimSpace(m[2])
	var cmd domain.StructuredCommand
	switch inner := MatchPattern(body); inner.Kind {
	case MatchFound:
		if inner.Command.Condition != nil {
			return Match{}, false
		}
		cmd = inner.Command
	case MatchAmbiguous:
		return Match{}, false
	default:
		cmd = domain.StructuredCommand{Action: domain.ActionTask, Content: body}
	}
	cmd.Condition = &cond
	return found(cmd), true
}

func parseGuard(guard string) (domain.Condition, bool) {
	if m := emptyRe.FindStringSubmatch(guard); m != nil {
		category := m[1]
		if category == "" {
			category = m[2]
		}
		return domain.Condition{Kind: domain.ConditionCategoryEmpty, Category: strings.ToLower(category)}, true
	}
	if m := hasTasksRe.FindStringSubmatch(guard); m != nil {
		return domain.Condition{Kind: domain.ConditionCategoryHasTasks, Category: strings.ToLower(m[1])}, true
	}
	if m := countRe.FindStringSubmatch(guard); m != nil {
		op := strings.Join(strings.Fields(strings.ToLower(m[2])), " ")
		if word, ok := wordOperators[op]; ok {
			op = word
		}
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return domain.Condition{}, false
		}
		return domain.Condition{Kind: domain.ConditionTaskCount, Category: strings.ToLower(m[1]), Operator: op, Value: n}, true
	}
	if m := todayRe.FindStringSubmatch(guard); m != nil {
		var days []string
		for _, word := range strings.FieldsFunc(strings.ToLower(m[1]), func(r rune) bool { return r == ',' || r == ' ' }) {
			if word == "or" {
				continue
			}
			day, ok := dayNames[word]
			if !ok {
				return domain.Condition{}, false
			}
			days = append(days, day)
		}
		if len(days) == 0 {
			return domain.Condition{}, false
		}
		return domain.Condition{Kind: domain.ConditionDayOfWeek, Days: days}, true
	}
	return domain.Condition{}, false
}
