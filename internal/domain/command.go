package domain

// ActionType is the closed set of things a structured command can do.
type ActionType string

const (
	ActionTask   ActionType = "task"
	ActionRecord ActionType = "record"
	ActionDone   ActionType = "done"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionList   ActionType = "list"
	// ActionNLP marks a natural-language request that has not been interpreted yet.
	ActionNLP ActionType = "nlp"
)

// StatusType filters or sets item status.
type StatusType string

const (
	StatusOngoing   StatusType = "ongoing"
	StatusDone      StatusType = "done"
	StatusCancelled StatusType = "cancelled"
	StatusDuplicate StatusType = "duplicate"
	StatusSuspended StatusType = "suspended"
	StatusPending   StatusType = "pending"
	StatusOpen      StatusType = "open"
	StatusClosed    StatusType = "closed"
	StatusAll       StatusType = "all"
)

// QueryType selects a canned listing filter.
type QueryType string

const (
	QueryOverdue      QueryType = "overdue"
	QueryUpcoming     QueryType = "upcoming"
	QueryUnscheduled  QueryType = "unscheduled"
	QueryDueToday     QueryType = "duetoday"
	QueryDueTomorrow  QueryType = "duetomorrow"
	QueryDueThisWeek  QueryType = "duethisweek"
	QueryDueThisMonth QueryType = "duethismonth"
	QueryUrgent       QueryType = "urgent"
	QueryAll          QueryType = "all"
)

// CommandSource records where a structured command came from.
type CommandSource string

const (
	SourceTraditional CommandSource = "traditional"
	SourcePattern     CommandSource = "pattern"
	SourceModel       CommandSource = "model"
	SourceKeyword     CommandSource = "keyword"
	SourceCache       CommandSource = "cache"
	SourceLearned     CommandSource = "learned"
	SourceShortcut    CommandSource = "shortcut"
)

// StructuredCommand is the canonical, typed form of a user intent.
//
// When Compound is non-empty the command is a pure container: its own action
// fields are decorative and are never executed.
type StructuredCommand struct {
	Action        ActionType          `json:"action"`
	Content       string              `json:"content"`
	Category      string              `json:"category,omitempty"`
	Deadline      string              `json:"deadline,omitempty"`
	Schedule      string              `json:"schedule,omitempty"`
	Status        StatusType          `json:"status,omitempty"`
	QueryType     QueryType           `json:"query_type,omitempty"`
	Search        string              `json:"search,omitempty"`
	Filters       map[string]string   `json:"filters,omitempty"`
	Modifications map[string]string   `json:"modifications,omitempty"`
	Days          *int                `json:"days,omitempty"`
	Limit         *int                `json:"limit,omitempty"`
	Compound      []StructuredCommand `json:"compound,omitempty"`
	Condition     *Condition          `json:"condition,omitempty"`
	Confidence    *float64            `json:"confidence,omitempty"`
	Source        CommandSource       `json:"source,omitempty"`
}

// Actions lists every executable action type.
func Actions() []ActionType {
	return []ActionType{ActionTask, ActionRecord, ActionDone, ActionUpdate, ActionDelete, ActionList}
}

// Statuses lists every status value accepted in structured commands.
func Statuses() []StatusType {
	return []StatusType{
		StatusOngoing, StatusDone, StatusCancelled, StatusDuplicate, StatusSuspended,
		StatusPending, StatusOpen, StatusClosed, StatusAll,
	}
}

// QueryTypes lists every canned listing query.
func QueryTypes() []QueryType {
	return []QueryType{
		QueryOverdue, QueryUpcoming, QueryUnscheduled, QueryDueToday, QueryDueTomorrow,
		QueryDueThisWeek, QueryDueThisMonth, QueryUrgent, QueryAll,
	}
}

// IntPtr is a small helper for the optional numeric filters.
func IntPtr(v int) *int {
	return &v
}

// FloatPtr is a small helper for optional confidence scores.
func FloatPtr(v float64) *float64 {
	return &v
}
