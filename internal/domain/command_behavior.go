package domain

import (
	"fmt"
	"strings"
)

// IsCompound reports whether the command is a container of other commands.
func (c StructuredCommand) IsCompound() bool {
	return len(c.Compound) > 0
}

// Flatten returns the executable commands in order. Nested containers are
// expanded depth-first; a simple command yields itself.
func (c StructuredCommand) Flatten() []StructuredCommand {
	if !c.IsCompound() {
		return []StructuredCommand{c}
	}
	var out []StructuredCommand
	for _, child := range c.Compound {
		out = append(out, child.Flatten()...)
	}
	return out
}

// Clone deep-copies maps, pointers and nested commands.
func (c StructuredCommand) Clone() StructuredCommand {
	out := c
	out.Filters = cloneMap(c.Filters)
	out.Modifications = cloneMap(c.Modifications)
	if c.Days != nil {
		out.Days = IntPtr(*c.Days)
	}
	if c.Limit != nil {
		out.Limit = IntPtr(*c.Limit)
	}
	if c.Confidence != nil {
		out.Confidence = FloatPtr(*c.Confidence)
	}
	if c.Condition != nil {
		cond := c.Condition.Clone()
		out.Condition = &cond
	}
	if len(c.Compound) > 0 {
		out.Compound = make([]StructuredCommand, len(c.Compound))
		for i, child := range c.Compound {
			out.Compound[i] = child.Clone()
		}
	}
	return out
}

// ListsRecords reports whether a list command targets records rather than tasks.
func (c StructuredCommand) ListsRecords() bool {
	if strings.EqualFold(c.Filters["type"], "record") {
		return true
	}
	content := strings.ToLower(c.Content)
	return strings.Contains(content, "record") || strings.Contains(content, "history")
}

// Summary is a compact one-line rendering used in logs and the REPL.
func (c StructuredCommand) Summary() string {
	if c.IsCompound() {
		return fmt.Sprintf("compound (%d commands)", len(c.Flatten()))
	}
	if c.Content == "" {
		return string(c.Action)
	}
	return fmt.Sprintf("%s %s", c.Action, c.Content)
}

// ParseActionType maps loose user or model spellings onto an ActionType.
func ParseActionType(value string) (ActionType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "task", "add", "create":
		return ActionTask, true
	case "record", "log":
		return ActionRecord, true
	case "done", "complete", "finish":
		return ActionDone, true
	case "update", "edit", "modify":
		return ActionUpdate, true
	case "delete", "remove", "del":
		return ActionDelete, true
	case "list", "show", "ls":
		return ActionList, true
	default:
		return "", false
	}
}

// ParseStatusType accepts the canonical status names plus common aliases.
func ParseStatusType(value string) (StatusType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ongoing":
		return StatusOngoing, true
	case "done", "complete", "completed":
		return StatusDone, true
	case "cancelled", "canceled", "cancel":
		return StatusCancelled, true
	case "duplicate":
		return StatusDuplicate, true
	case "suspended", "deferred", "shelved":
		return StatusSuspended, true
	case "pending":
		return StatusPending, true
	case "open":
		return StatusOpen, true
	case "closed":
		return StatusClosed, true
	case "all":
		return StatusAll, true
	default:
		return "", false
	}
}

// ParseQueryType accepts both the compact form ("duetoday") and the spoken
// form ("due today", "due_today").
func ParseQueryType(value string) (QueryType, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	for _, q := range QueryTypes() {
		if string(q) == key {
			return q, true
		}
	}
	return "", false
}

// Label renders a query type the way users say it.
func (q QueryType) Label() string {
	switch q {
	case QueryDueToday:
		return "due today"
	case QueryDueTomorrow:
		return "due tomorrow"
	case QueryDueThisWeek:
		return "due this week"
	case QueryDueThisMonth:
		return "due this month"
	default:
		return string(q)
	}
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
