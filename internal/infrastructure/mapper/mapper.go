// Package mapper converts structured commands into traditional argument
// vectors and one-line human descriptions.
package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// modificationOrder fixes the flag order for update commands.
var modificationOrder = []struct {
	key  string
	flag string
}{
	{"content", "--content"},
	{"category", "--category"},
	{"deadline", "--deadline"},
	{"status", "--status"},
}

// Mapper is stateless.
type Mapper struct{}

// New returns a Mapper.
func New() Mapper {
	return Mapper{}
}

// ToActionArgs maps cmd onto the traditional grammar.
func (Mapper) ToActionArgs(cmd domain.StructuredCommand) []string {
	var args []string
	switch cmd.Action {
	case domain.ActionTask:
		args = append(args, "task")
		if cmd.Category != "" {
			args = append(args, "-c", cmd.Category)
		}
		args = append(args, cmd.Content)
		if cmd.Deadline != "" {
			args = append(args, cmd.Deadline)
		} else if cmd.Schedule != "" {
			args = append(args, cmd.Schedule)
		}

	case domain.ActionRecord:
		args = append(args, "record")
		if cmd.Category != "" {
			args = append(args, "-c", cmd.Category)
		}
		args = append(args, cmd.Content)

	case domain.ActionDone:
		args = append(args, "done")
		if cmd.Content != "" {
			args = append(args, cmd.Content)
		}

	case domain.ActionList:
		if id := cmd.Filters["id"]; id != "" {
			return []string{"list", "show", id}
		}
		args = append(args, "list", listTarget(cmd))
		args = append(args, queryFlags(cmd.QueryType)...)
		if cmd.Category != "" {
			args = append(args, "-c", cmd.Category)
		}
		if cmd.Search != "" {
			args = append(args, "--search", cmd.Search)
		}
		if cmd.Status != "" && !queryOwnsStatus(cmd.QueryType) {
			args = append(args, "-s", string(cmd.Status))
		}
		if cmd.Days != nil {
			args = append(args, "-d", strconv.Itoa(*cmd.Days))
		}
		if cmd.Limit != nil {
			args = append(args, "--limit", strconv.Itoa(*cmd.Limit))
		}

	case domain.ActionDelete:
		args = append(args, "delete")
		if cmd.Status != "" {
			args = append(args, "--status", string(cmd.Status))
		}
		if cmd.Content != "" && cmd.Content != "all" {
			args = append(args, cmd.Content)
		}

	case domain.ActionUpdate:
		args = append(args, "update")
		if cmd.Content != "" {
			args = append(args, cmd.Content)
		}
		for _, m := range modificationOrder {
			if v, ok := cmd.Modifications[m.key]; ok {
				args = append(args, m.flag, v)
			}
		}
	}
	return args
}

// DescribeCommand renders what cmd will do.
func (Mapper) DescribeCommand(cmd domain.StructuredCommand) string {
	if cmd.Condition != nil {
		return cmd.Condition.Describe() + ": " + describeAction(cmd)
	}
	return describeAction(cmd)
}

func describeAction(cmd domain.StructuredCommand) string {
	switch cmd.Action {
	case domain.ActionTask:
		desc := "Create task: " + cmd.Content
		if cmd.Category != "" {
			desc += fmt.Sprintf(" (category: %s)", cmd.Category)
		}
		if cmd.Deadline != "" {
			desc += fmt.Sprintf(" (deadline: %s)", cmd.Deadline)
		} else if cmd.Schedule != "" {
			desc += fmt.Sprintf(" (recurring: %s)", cmd.Schedule)
		}
		return desc

	case domain.ActionRecord:
		desc := "Create record: " + cmd.Content
		if cmd.Category != "" {
			desc += fmt.Sprintf(" (category: %s)", cmd.Category)
		}
		return desc

	case domain.ActionDone:
		return "Mark task as done: " + cmd.Content

	case domain.ActionList:
		if id := cmd.Filters["id"]; id != "" {
			return "Show item " + id
		}
		desc := "List tasks"
		if cmd.ListsRecords() {
			desc = "List records"
		}
		var filters []string
		if cmd.QueryType != "" {
			filters = append(filters, cmd.QueryType.Label())
		}
		if cmd.Category != "" {
			filters = append(filters, "category: "+cmd.Category)
		}
		if cmd.Status != "" {
			filters = append(filters, "status: "+titleCase(string(cmd.Status)))
		}
		if cmd.Search != "" {
			filters = append(filters, "search: "+cmd.Search)
		}
		if cmd.Days != nil {
			filters = append(filters, fmt.Sprintf("last %d days", *cmd.Days))
		}
		if len(filters) > 0 {
			desc += " (" + strings.Join(filters, ", ") + ")"
		}
		return desc

	case domain.ActionDelete:
		if cmd.Content == "all" {
			return "Delete all items"
		}
		return "Delete: " + cmd.Content

	case domain.ActionUpdate:
		return "Update: " + cmd.Content

	default:
		return fmt.Sprintf("Unsupported command: %s", cmd.Action)
	}
}

func listTarget(cmd domain.StructuredCommand) string {
	if cmd.ListsRecords() {
		return "record"
	}
	return "task"
}

func queryFlags(q domain.QueryType) []string {
	switch q {
	case domain.QueryOverdue:
		return []string{"-s", "ongoing", "--target-time-max", "now"}
	case domain.QueryUpcoming:
		return []string{"-s", "ongoing", "--target-time-min", "now", "--target-time-max", "+7d"}
	case domain.QueryUnscheduled:
		return []string{"--no-deadline"}
	case domain.QueryDueToday:
		return []string{"--target-time-min", "today", "--target-time-max", "today"}
	case domain.QueryDueTomorrow:
		return []string{"--target-time-min", "tomorrow", "--target-time-max", "tomorrow"}
	case domain.QueryDueThisWeek:
		return []string{"--target-time-min", "now", "--target-time-max", "+7d"}
	case domain.QueryDueThisMonth:
		return []string{"--target-time-min", "now", "--target-time-max", "eom"}
	case domain.QueryUrgent:
		return []string{"-s", "ongoing", "--target-time-max", "tomorrow"}
	default:
		return nil
	}
}

// queryOwnsStatus reports whether the query already emitted -s.
func queryOwnsStatus(q domain.QueryType) bool {
	return q == domain.QueryOverdue || q == domain.QueryUpcoming || q == domain.QueryUrgent
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var _ ports.CommandMapper = Mapper{}
