package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/tasq/assets"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "TASQ_CONFIG"

// FileLoader loads YAML configuration from ~/.tasq/config.yaml (overridable via TASQ_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses TASQ_CONFIG or the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeConfig(path, cfg); err != nil {
				return domain.Config{}, fmt.Errorf("write default config: %w", err)
			}
			return cfg, nil
		}
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return hydrateDefaults(cfg), nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Save writes the given config back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

// Reset overwrites the config with defaults and returns the default snapshot.
func (l *FileLoader) Reset() (domain.Config, error) {
	cfg := defaultConfig()
	if err := l.Save(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Backup copies the current config file to a timestamped sibling.
func (l *FileLoader) Backup() (string, error) {
	path := l.resolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.DataDir(), "config.yaml")
}

func ensureConfigDir(path string) error {
	return filesystem.EnsureParentDir(path, domain.DirectoryPermissions)
}

func writeConfig(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig exposes the bootstrap configuration.
func DefaultConfig() domain.Config {
	return defaultConfig()
}

func defaultConfig() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		// Embedded defaults are compiled in; only a broken build gets here.
		return hydrateDefaults(domain.Config{
			ConfigFormatVersion: "1",
			NLP: domain.NLPSettings{
				FallbackToTraditional: true,
				CacheCommands:         true,
				PreviewEnabled:        true,
			},
			Interactive: domain.InteractiveSettings{ShowInterpretation: true, ShowContextOnStart: true},
			Security:    domain.SecuritySettings{GuardEnabled: true},
		})
	}
	return hydrateDefaults(cfg)
}

// hydrateDefaults fills zero values a hand-edited file may have left out.
// Booleans are taken as written.
func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.NLP.Provider == "" {
		cfg.NLP.Provider = domain.ProviderAuto
	}
	if cfg.NLP.Model == "" {
		cfg.NLP.Model = domain.DefaultNLPModel
	}
	if cfg.NLP.APIKeyEnv == "" {
		cfg.NLP.APIKeyEnv = domain.DefaultAPIKeyEnv
	}
	if cfg.NLP.ContextWindow == 0 {
		cfg.NLP.ContextWindow = domain.DefaultContextWindow
	}
	if cfg.NLP.MaxAPICallsPerMinute == 0 {
		cfg.NLP.MaxAPICallsPerMinute = domain.DefaultMaxAPICallsPerMinute
	}
	if cfg.NLP.TimeoutSeconds == 0 {
		cfg.NLP.TimeoutSeconds = int(domain.DefaultHTTPClientTimeout / time.Second)
	}
	if cfg.NLP.ExecutionMode == "" {
		cfg.NLP.ExecutionMode = string(domain.ModeContinueOnError)
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(filesystem.DataDir(), "cache.db")
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = domain.DefaultCacheTTL.String()
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(filesystem.DataDir(), "tasq.db")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(filesystem.DataDir(), "history.db")
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = domain.DefaultHistoryRetainDays
	}
	if cfg.History.MaxEntries == 0 {
		cfg.History.MaxEntries = domain.DefaultCompleterHistory
	}
	if cfg.Learning.Path == "" {
		cfg.Learning.Path = filepath.Join(filesystem.DataDir(), "learning.db")
	}
	if cfg.Interactive.Prompt == "" {
		cfg.Interactive.Prompt = "tasq> "
	}
	if cfg.Interactive.MaxHistory == 0 {
		cfg.Interactive.MaxHistory = domain.DefaultSessionHistory
	}
	if cfg.Security.RulesFile == "" {
		cfg.Security.RulesFile = filepath.Join(filesystem.DataDir(), "guard.yaml")
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
