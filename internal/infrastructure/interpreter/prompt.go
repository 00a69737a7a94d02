package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/doeshing/tasq/internal/domain"
)

const systemPrompt = `You convert natural language into structured commands for tasq, a command-line task and record tracker.

Reply with JSON only, no prose and no code fences. Use one object for a single command:
{"action": "...", "content": "...", "category": "...", "deadline": "...", "schedule": "...", "status": "...", "query_type": "...", "search": "...", "days": 0, "limit": 0, "modifications": {"content": "...", "category": "...", "deadline": "...", "status": "..."}}

When the input asks for more than one thing, reply with {"commands": [ ... ]} holding one object per step in the order they should run.

Rules:
1. action is one of: task, record, done, update, delete, list.
2. Omit fields you do not need. content is required except for list and delete.
3. Time expressions stay short: today, tomorrow, eow, eom, +3d, friday, 2025-12-25, "2025-12-25 15:00".
4. Recurring tasks use schedule: daily, weekly, "weekly monday", monthly.
5. status is one of: ongoing, done, cancelled, duplicate, suspended, pending, open, closed, all.
6. query_type is one of: overdue, upcoming, unscheduled, due today, due tomorrow, due this week, due this month, urgent.
7. For done, update and delete, content names the item: its number from the last listing or a few words of its text.
8. A later step may use "it" as content to mean the item from the previous step.

Examples:
- "add a task for today to cleanup the trash" -> {"action": "task", "content": "cleanup the trash", "deadline": "today"}
- "show my work tasks" -> {"action": "list", "category": "work"}
- "mark the cleanup task as done" -> {"action": "done", "content": "cleanup"}
- "create daily task to write journal" -> {"action": "task", "content": "write journal", "schedule": "daily"}
- "add buy milk to shopping and then list shopping" -> {"commands": [{"action": "task", "content": "buy milk", "category": "shopping"}, {"action": "list", "category": "shopping"}]}`

// modelCommand is the loose shape the model answers with. Enum fields are
// strings so synonyms can be normalized before validation.
type modelCommand struct {
	Action        string            `json:"action"`
	Content       string            `json:"content"`
	Category      string            `json:"category"`
	Deadline      string            `json:"deadline"`
	Schedule      string            `json:"schedule"`
	Status        string            `json:"status"`
	QueryType     string            `json:"query_type"`
	Search        string            `json:"search"`
	Filters       map[string]string `json:"filters"`
	Modifications map[string]string `json:"modifications"`
	Days          *int              `json:"days"`
	Limit         *int              `json:"limit"`
	Confidence    *float64          `json:"confidence"`
}

// decodeModelOutput turns the model's reply into a command. A reply holding
// a "commands" array becomes a compound container, even with one element.
func decodeModelOutput(text string) (domain.StructuredCommand, error) {
	body := extractJSON(text)
	if body == "" || !gjson.Valid(body) {
		return domain.StructuredCommand{}, fmt.Errorf("model reply is not JSON")
	}

	if list := gjson.Get(body, "commands"); list.IsArray() {
		var raw []modelCommand
		if err := json.Unmarshal([]byte(list.Raw), &raw); err != nil {
			return domain.StructuredCommand{}, fmt.Errorf("decode commands: %w", err)
		}
		if len(raw) == 0 {
			return domain.StructuredCommand{}, fmt.Errorf("model returned no commands")
		}
		container := domain.StructuredCommand{Action: domain.ActionNLP, Source: domain.SourceModel}
		for _, mc := range raw {
			container.Compound = append(container.Compound, mc.toDomain())
		}
		return container, nil
	}

	var mc modelCommand
	if err := json.Unmarshal([]byte(body), &mc); err != nil {
		return domain.StructuredCommand{}, fmt.Errorf("decode command: %w", err)
	}
	if mc.Action == "" {
		return domain.StructuredCommand{}, fmt.Errorf("model reply has no action")
	}
	return mc.toDomain(), nil
}

func (mc modelCommand) toDomain() domain.StructuredCommand {
	cmd := domain.StructuredCommand{
		Action:        domain.ActionType(strings.ToLower(strings.TrimSpace(mc.Action))),
		Content:       strings.TrimSpace(mc.Content),
		Category:      strings.TrimSpace(mc.Category),
		Deadline:      strings.TrimSpace(mc.Deadline),
		Schedule:      strings.TrimSpace(mc.Schedule),
		Status:        domain.StatusType(strings.ToLower(strings.TrimSpace(mc.Status))),
		QueryType:     domain.QueryType(strings.TrimSpace(mc.QueryType)),
		Search:        strings.TrimSpace(mc.Search),
		Filters:       mc.Filters,
		Modifications: mc.Modifications,
		Days:          mc.Days,
		Limit:         mc.Limit,
		Confidence:    mc.Confidence,
		Source:        domain.SourceModel,
	}
	if action, ok := domain.ParseActionType(mc.Action); ok {
		cmd.Action = action
	}
	if status, ok := domain.ParseStatusType(mc.Status); ok {
		cmd.Status = status
	}
	if q, ok := domain.ParseQueryType(mc.QueryType); ok {
		cmd.QueryType = q
	}
	return cmd
}

// extractJSON strips code fences and surrounding prose, returning the
// outermost object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
