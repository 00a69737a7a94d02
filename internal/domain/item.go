package domain

import "time"

// ItemKind separates tasks from records.
type ItemKind string

const (
	KindTask   ItemKind = "task"
	KindRecord ItemKind = "record"
)

// Item is a stored task or record.
type Item struct {
	ID         int64
	Kind       ItemKind
	Content    string
	Category   string
	Status     StatusType
	TargetTime *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Comment    string
}

// ItemFilter selects items for listing. Zero values mean "no constraint".
type ItemFilter struct {
	Kind          ItemKind
	Category      string
	Statuses      []StatusType
	Search        string
	Days          int
	Limit         int
	TargetTimeMin *time.Time
	TargetTimeMax *time.Time
	NoDeadline    bool
	IDs           []int64
}

// IsOpen reports whether the task still needs attention.
func (i Item) IsOpen() bool {
	switch i.Status {
	case StatusOngoing, StatusPending, StatusSuspended:
		return true
	default:
		return false
	}
}

// IsOverdue reports whether an open task's target time has passed.
func (i Item) IsOverdue(now time.Time) bool {
	return i.Kind == KindTask && i.IsOpen() && i.TargetTime != nil && i.TargetTime.Before(now)
}

// StatusRemoved marks soft-deleted items. It is never produced by interpretation.
const StatusRemoved StatusType = "removed"

var statusCodes = map[StatusType]int{
	StatusOngoing:   0,
	StatusDone:      1,
	StatusCancelled: 2,
	StatusDuplicate: 3,
	StatusSuspended: 4,
	StatusRemoved:   5,
	StatusPending:   6,
	StatusClosed:    253,
	StatusOpen:      254,
	StatusAll:       255,
}

// Code is the stored numeric status.
func (s StatusType) Code() (int, bool) {
	code, ok := statusCodes[s]
	return code, ok
}

// StatusFromCode maps a stored code back to its status.
func StatusFromCode(code int) (StatusType, bool) {
	for s, c := range statusCodes {
		if c == code {
			return s, true
		}
	}
	return "", false
}

// Expand turns aggregate statuses into the concrete ones they cover.
func (s StatusType) Expand() []StatusType {
	switch s {
	case StatusOpen:
		return []StatusType{StatusOngoing, StatusPending, StatusSuspended}
	case StatusClosed:
		return []StatusType{StatusDone, StatusCancelled, StatusDuplicate, StatusRemoved}
	case StatusAll:
		return []StatusType{StatusOngoing, StatusDone, StatusCancelled, StatusDuplicate, StatusSuspended, StatusPending}
	default:
		return []StatusType{s}
	}
}
