package commands

import "github.com/doeshing/tasq/internal/domain"

// CLI-specific constants
const (
	// DefaultEditorCommand is the default editor command
	DefaultEditorCommand = "vi"
	envKeyEditor         = "EDITOR"

	// TimestampFormat is how history and cache times are printed
	TimestampFormat = "2006-01-02 15:04"

	DefaultHistoryLimit       = domain.DefaultHistoryLimit
	DefaultHistorySearchLimit = 50
	DefaultHistoryRetainDays  = domain.DefaultHistoryRetainDays
	MaxHistoryAnalysisRecords = 1000
	topCommandCount           = 5
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrCacheStoreUnavailable    = "cache store unavailable"
	ErrLearningStoreUnavailable = "learning store unavailable"
	ErrKeyRequired              = "--key is required"
	ErrQueryRequired            = "--query required"
	ErrInvalidRetainDays        = "--days must be > 0"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoCachedResponses        = "No cached responses."
	MsgNoCorrections            = "No taught corrections."
	MsgNoShortcuts              = "No shortcuts defined."
)
