package domain

import (
	"fmt"
	"strings"
	"time"
)

// LearnedCorrection maps an input the interpreter got wrong to the command the
// user meant. Confidence grows each time the same correction is taught again.
type LearnedCorrection struct {
	Input         string            `json:"input"`
	Command       StructuredCommand `json:"command"`
	Confirmations int               `json:"confirmations"`
	Confidence    float64           `json:"confidence"`
	LearnedAt     time.Time         `json:"learned_at"`
	LastUsedAt    time.Time         `json:"last_used_at"`
}

// Shortcut is a user-defined phrase that expands to a fixed command.
type Shortcut struct {
	Name      string            `json:"name"`
	Command   StructuredCommand `json:"command"`
	Uses      int               `json:"uses"`
	CreatedAt time.Time         `json:"created_at"`
}

// LearningStats summarizes stored corrections and shortcuts.
type LearningStats struct {
	Corrections       int
	Confirmations     int
	AverageConfidence float64
	Shortcuts         int
	ShortcutUses      int
}

// PersonalizationData is the document written by export and read by import.
type PersonalizationData struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Corrections []LearnedCorrection `json:"corrections"`
	Shortcuts   []Shortcut          `json:"shortcuts"`
}

// PersonalizationFormatVersion tags exported documents.
const PersonalizationFormatVersion = "1"

// NewTaughtCommand builds the command for `learn` and `create-shortcut` from
// a loose action word, content and optional category.
func NewTaughtCommand(action, content, category string) (StructuredCommand, bool) {
	act, ok := ParseActionType(action)
	if !ok || act == ActionNLP {
		return StructuredCommand{}, false
	}
	return StructuredCommand{
		Action:   act,
		Content:  strings.TrimSpace(content),
		Category: strings.TrimSpace(category),
	}, true
}

// LearningError wraps storage or serialization failures in the learning store.
type LearningError struct {
	Op  string
	Err error
}

func (e *LearningError) Error() string {
	return fmt.Sprintf("learning %s: %v", e.Op, e.Err)
}

func (e *LearningError) Unwrap() error {
	return e.Err
}
