package domain

// Config mirrors ~/.tasq/config.yaml.
type Config struct {
	ConfigFormatVersion string              `yaml:"config_format_version"`
	NLP                 NLPSettings         `yaml:"nlp"`
	Cache               CacheSettings       `yaml:"cache"`
	Storage             StorageSettings     `yaml:"storage"`
	History             HistorySettings     `yaml:"history"`
	Learning            LearningSettings    `yaml:"learning"`
	Interactive         InteractiveSettings `yaml:"interactive"`
	Security            SecuritySettings    `yaml:"security"`
}

// NLPSettings controls natural-language interpretation and execution.
type NLPSettings struct {
	Enabled               bool   `yaml:"enabled"`
	Provider              string `yaml:"provider"`
	Model                 string `yaml:"model"`
	APIKey                string `yaml:"api_key,omitempty"`
	APIKeyEnv             string `yaml:"api_key_env"`
	APIBaseURL            string `yaml:"api_base_url,omitempty"`
	// FallbackToTraditional lets input that opens with an action keyword try
	// the traditional parser first, falling back to the interpreter on a
	// parse error. Off sends all non-traditional input to the interpreter.
	FallbackToTraditional bool   `yaml:"fallback_to_traditional"`
	CacheCommands         bool   `yaml:"cache_commands"`
	ContextWindow         int    `yaml:"context_window"`
	MaxAPICallsPerMinute  int    `yaml:"max_api_calls_per_minute"`
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
	PreviewEnabled        bool   `yaml:"preview_enabled"`
	AutoConfirm           bool   `yaml:"auto_confirm"`
	ShowTransparency      bool   `yaml:"show_transparency"`
	ExecutionMode         string `yaml:"execution_mode"`
}

// CacheSettings configures the interpreter response cache.
type CacheSettings struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// StorageSettings locates the task/record database.
type StorageSettings struct {
	Path string `yaml:"path"`
}

// HistorySettings configures the interaction log.
type HistorySettings struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
}

// LearningSettings locates taught corrections and shortcuts.
type LearningSettings struct {
	Path string `yaml:"path"`
}

// InteractiveSettings tunes the REPL.
type InteractiveSettings struct {
	Prompt             string `yaml:"prompt"`
	ShowInterpretation bool   `yaml:"show_interpretation"`
	ShowContextOnStart bool   `yaml:"show_context_on_start"`
	MaxHistory         int    `yaml:"max_history"`
	SessionTimeout     string `yaml:"session_timeout,omitempty"`
}

// SecuritySettings defines guard behavior.
type SecuritySettings struct {
	GuardEnabled bool   `yaml:"guard_enabled"`
	RulesFile    string `yaml:"rules_file"`
}
