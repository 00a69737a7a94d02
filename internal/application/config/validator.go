package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/tasq/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateNLP(cfg.NLP); err != nil {
		return err
	}
	if err := validateCache(cfg.Cache); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	if err := validateInteractive(cfg.Interactive); err != nil {
		return err
	}
	return nil
}

func validateNLP(nlp domain.NLPSettings) error {
	provider := strings.ToLower(strings.TrimSpace(nlp.Provider))
	if provider != "" && !knownProvider(provider) {
		return fmt.Errorf("nlp.provider must be one of %s, got %s", strings.Join(domain.Providers(), "|"), nlp.Provider)
	}
	if _, err := domain.ParseExecutionMode(nlp.ExecutionMode); err != nil {
		return fmt.Errorf("nlp.execution_mode invalid: %w", err)
	}
	if nlp.ContextWindow < 0 {
		return fmt.Errorf("nlp.context_window must be >= 0")
	}
	if nlp.MaxAPICallsPerMinute < 0 {
		return fmt.Errorf("nlp.max_api_calls_per_minute must be >= 0")
	}
	if nlp.TimeoutSeconds < 0 {
		return fmt.Errorf("nlp.timeout_seconds must be >= 0")
	}
	return nil
}

func validateCache(cache domain.CacheSettings) error {
	if cache.TTL == "" {
		return nil
	}
	ttl, err := time.ParseDuration(cache.TTL)
	if err != nil {
		return fmt.Errorf("cache.ttl invalid: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0")
	}
	if history.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must be >= 0")
	}
	return nil
}

func validateInteractive(interactive domain.InteractiveSettings) error {
	if interactive.MaxHistory < 0 {
		return fmt.Errorf("interactive.max_history must be >= 0")
	}
	if interactive.SessionTimeout == "" {
		return nil
	}
	timeout, err := time.ParseDuration(interactive.SessionTimeout)
	if err != nil {
		return fmt.Errorf("interactive.session_timeout invalid: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("interactive.session_timeout must be >= 0")
	}
	return nil
}

func knownProvider(name string) bool {
	for _, p := range domain.Providers() {
		if p == name {
			return true
		}
	}
	return false
}
