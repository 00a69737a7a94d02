package domain

import (
	"fmt"
	"strings"
)

// ConditionKind names the runtime check guarding a conditional command.
type ConditionKind string

const (
	ConditionCategoryHasTasks ConditionKind = "category_has_tasks"
	ConditionCategoryEmpty    ConditionKind = "category_empty"
	ConditionTaskCount        ConditionKind = "task_count"
	ConditionDayOfWeek        ConditionKind = "day_of_week"
	ConditionPreviousSuccess  ConditionKind = "previous_success"
	ConditionPreviousFailed   ConditionKind = "previous_failed"
)

// Condition is evaluated just before its command runs. A false condition
// skips the command without failing the run.
type Condition struct {
	Kind     ConditionKind `json:"kind"`
	Category string        `json:"category,omitempty"`
	Operator string        `json:"operator,omitempty"`
	Value    int           `json:"value,omitempty"`
	Days     []string      `json:"days,omitempty"`
}

// Compare applies the condition's comparison operator to n.
func (c Condition) Compare(n int) (bool, error) {
	switch c.Operator {
	case ">":
		return n > c.Value, nil
	case ">=":
		return n >= c.Value, nil
	case "<":
		return n < c.Value, nil
	case "<=":
		return n <= c.Value, nil
	case "=", "==":
		return n == c.Value, nil
	case "!=":
		return n != c.Value, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", c.Operator)
	}
}

// Describe renders the condition for previews and descriptions.
func (c Condition) Describe() string {
	switch c.Kind {
	case ConditionCategoryHasTasks:
		return fmt.Sprintf("if %s has open tasks", c.Category)
	case ConditionCategoryEmpty:
		return fmt.Sprintf("if %s has no open tasks", c.Category)
	case ConditionTaskCount:
		return fmt.Sprintf("if open task count %s %d", c.Operator, c.Value)
	case ConditionDayOfWeek:
		return "if today is " + strings.Join(c.Days, " or ")
	case ConditionPreviousSuccess:
		return "if the previous command succeeded"
	case ConditionPreviousFailed:
		return "if the previous command failed"
	default:
		return "if " + string(c.Kind)
	}
}

// Clone deep-copies the day list.
func (c Condition) Clone() Condition {
	out := c
	if c.Days != nil {
		out.Days = append([]string(nil), c.Days...)
	}
	return out
}
