// Package conditions decides store- and calendar-based command conditions.
package conditions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// Evaluator answers conditions against the item store and the local clock.
type Evaluator struct {
	items ports.ItemRepository
	now   func() time.Time
}

var _ ports.ConditionEvaluator = (*Evaluator)(nil)

// New creates an evaluator over items.
func New(items ports.ItemRepository) *Evaluator {
	return &Evaluator{items: items, now: time.Now}
}

// Evaluate implements ports.ConditionEvaluator.
func (e *Evaluator) Evaluate(ctx context.Context, cond domain.Condition) (bool, error) {
	switch cond.Kind {
	case domain.ConditionCategoryHasTasks:
		n, err := e.openTasks(ctx, cond.Category)
		return n > 0, err
	case domain.ConditionCategoryEmpty:
		n, err := e.openTasks(ctx, cond.Category)
		return n == 0, err
	case domain.ConditionTaskCount:
		n, err := e.openTasks(ctx, cond.Category)
		if err != nil {
			return false, err
		}
		return cond.Compare(n)
	case domain.ConditionDayOfWeek:
		return matchesDay(e.now().Weekday(), cond.Days)
	default:
		return false, fmt.Errorf("condition %q cannot be evaluated here", cond.Kind)
	}
}

func (e *Evaluator) openTasks(ctx context.Context, category string) (int, error) {
	if e.items == nil {
		return 0, fmt.Errorf("no item store available")
	}
	items, err := e.items.List(ctx, domain.ItemFilter{
		Kind:     domain.KindTask,
		Category: category,
		Statuses: domain.StatusOpen.Expand(),
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func matchesDay(today time.Weekday, days []string) (bool, error) {
	if len(days) == 0 {
		return false, fmt.Errorf("day condition lists no days")
	}
	for _, day := range days {
		switch strings.ToLower(day) {
		case "weekday":
			if today != time.Saturday && today != time.Sunday {
				return true, nil
			}
			continue
		case "weekend":
			if today == time.Saturday || today == time.Sunday {
				return true, nil
			}
			continue
		}
		wd, ok := parseWeekday(day)
		if !ok {
			return false, fmt.Errorf("unknown day %q", day)
		}
		if wd == today {
			return true, nil
		}
	}
	return false, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}
