package domain

import "time"

// HistoryRecord captures one natural-language interaction.
type HistoryRecord struct {
	Timestamp       time.Time     `json:"timestamp"`
	Input           string        `json:"input"`
	Command         string        `json:"command"`
	Description     string        `json:"description"`
	Source          CommandSource `json:"source"`
	Commands        int           `json:"commands"`
	Executed        bool          `json:"executed"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
}

// HistoryStats summarizes the interaction log.
type HistoryStats struct {
	Total      int
	Executed   int
	Succeeded  int
	BySource   map[CommandSource]int
	FirstEntry time.Time
	LastEntry  time.Time
}
