package domain

import "time"

// SessionInfo is the bookkeeping for one REPL invocation. It is never persisted.
type SessionInfo struct {
	ID               string
	InteractionCount int
	StartedAt        time.Time
	LastActivity     time.Time
	Active           bool
}

// Touch records an accepted input line.
func (s *SessionInfo) Touch(now time.Time) {
	s.InteractionCount++
	s.LastActivity = now
}

// IdleFor reports how long the session had been idle at now.
func (s SessionInfo) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// Duration reports how long the session has been running.
func (s SessionInfo) Duration(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}
