package domain

import (
	"strings"
	"time"
)

// CacheStats summarizes the response cache.
type CacheStats struct {
	TotalEntries   int
	TotalBytes     int64
	ExpiredEntries int
	TotalAccesses  int64
	TTL            time.Duration
}

// ActiveEntries counts entries still inside the TTL.
func (s CacheStats) ActiveEntries() int {
	return s.TotalEntries - s.ExpiredEntries
}

// NormalizeInput trims, collapses whitespace runs and lower-cases text. Inputs
// that normalize identically are the same cache key.
func NormalizeInput(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
