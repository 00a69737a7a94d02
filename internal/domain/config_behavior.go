package domain

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in nlp.provider.
const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderOffline   = "offline"
)

// Providers lists every accepted nlp.provider value.
func Providers() []string {
	return []string{ProviderAuto, ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderOffline}
}

// ResolveAPIKey returns the configured credential. An explicit api_key wins
// over the api_key_env variable.
func (c *Config) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.NLP.APIKey); key != "" {
		return key
	}
	if c.NLP.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.NLP.APIKeyEnv))
}

// HasAPIKey checks whether any credential is available.
func (c *Config) HasAPIKey() bool {
	return c.ResolveAPIKey() != ""
}

// IsNLPEnabled checks if natural-language routing is switched on.
func (c *Config) IsNLPEnabled() bool {
	return c.NLP.Enabled
}

// EffectiveProvider resolves "auto" to a concrete provider: anthropic when a
// key is present, offline otherwise.
func (c *Config) EffectiveProvider() string {
	provider := strings.ToLower(strings.TrimSpace(c.NLP.Provider))
	if provider != "" && provider != ProviderAuto {
		return provider
	}
	if c.HasAPIKey() {
		return ProviderAnthropic
	}
	return ProviderOffline
}

// CacheTTL parses cache.ttl, falling back to the default on empty input.
func (c *Config) CacheTTL() (time.Duration, error) {
	if strings.TrimSpace(c.Cache.TTL) == "" {
		return DefaultCacheTTL, nil
	}
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", c.Cache.TTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return ttl, nil
}

// SessionTimeout parses interactive.session_timeout. Zero means no timeout.
func (c *Config) SessionTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Interactive.SessionTimeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Interactive.SessionTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid interactive.session_timeout %q: %w", c.Interactive.SessionTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("interactive.session_timeout must not be negative")
	}
	return d, nil
}

// RequestTimeout is the per-call provider timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.NLP.TimeoutSeconds <= 0 {
		return DefaultHTTPClientTimeout
	}
	return time.Duration(c.NLP.TimeoutSeconds) * time.Second
}

// DefaultExecutionMode parses nlp.execution_mode.
func (c *Config) DefaultExecutionMode() (ExecutionMode, error) {
	return ParseExecutionMode(c.NLP.ExecutionMode)
}

// ShouldPreview checks if compound commands are previewed before running.
func (c *Config) ShouldPreview() bool {
	return c.NLP.PreviewEnabled && !c.NLP.AutoConfirm
}

// IsGuardEnabled checks if destructive-command guarding is on.
func (c *Config) IsGuardEnabled() bool {
	return c.Security.GuardEnabled
}

// MaskedAPIKey renders the credential for display.
func (c *Config) MaskedAPIKey() string {
	key := c.ResolveAPIKey()
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
