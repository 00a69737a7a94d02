package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCacheTTL is how long an interpreted command stays reusable
	DefaultCacheTTL = 7 * 24 * time.Hour
	// DefaultHTTPClientTimeout is the timeout for provider requests
	DefaultHTTPClientTimeout = 30 * time.Second
	// RateLimitWindow is the sliding window for max_api_calls_per_minute
	RateLimitWindow = time.Minute
)

// NLP defaults
const (
	DefaultNLPModel             = "claude-3-5-haiku-latest"
	DefaultAPIKeyEnv            = "ANTHROPIC_API_KEY"
	DefaultContextWindow        = 10
	DefaultMaxAPICallsPerMinute = 20
	DefaultMaxTokens            = 1024
)

// Suggestion limits
const (
	// MaxSuggestions caps a ranked suggestion list
	MaxSuggestions = 8
	// ContextualHistoryDepth is how many recent commands contextual suggestions inspect
	ContextualHistoryDepth = 5
	// DefaultCompleterHistory is the AutoCompleter capacity
	DefaultCompleterHistory = 50
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 90
	// DefaultSessionHistory is the REPL in-memory history capacity
	DefaultSessionHistory = 100
)

// Item addressing limits
const (
	MinItemIndex = 1
	MaxItemIndex = 65536
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
	// DateFormat renders deadlines
	DateFormat = "2006-01-02"
	// DateTimeFormat renders record and deadline times with minutes
	DateTimeFormat = "2006-01-02 15:04"
)
