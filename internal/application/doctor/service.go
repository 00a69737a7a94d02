package doctor

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Items          ports.ItemRepository
	Cache          ports.ResponseCache
	History        ports.HistoryRepository
	Guard          ports.GuardService
	Learning       ports.LearningReporter
}

// Run executes checks and returns a report. Only a config failure aborts early.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	if s.ConfigProvider == nil {
		return domain.HealthReport{}, fmt.Errorf("doctor.Service dependencies not satisfied")
	}
	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))

	checks = append(checks, s.storeCheck(ctx))
	checks = append(checks, s.cacheCheck())
	checks = append(checks, s.historyCheck())
	checks = append(checks, s.learningCheck())
	checks = append(checks, nlpCheck(cfg))
	checks = append(checks, s.guardCheck(cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) storeCheck(ctx context.Context) domain.HealthCheck {
	if s.Items == nil {
		return fail("Task store", "not initialized")
	}
	categories, err := s.Items.Categories(ctx)
	if err != nil {
		return fail("Task store", err.Error())
	}
	return ok("Task store", fmt.Sprintf("%d categories", len(categories)))
}

func (s *Service) cacheCheck() domain.HealthCheck {
	if s.Cache == nil {
		return warn("Response cache", "disabled")
	}
	stats, err := s.Cache.Stats()
	if err != nil {
		return warn("Response cache", err.Error())
	}
	return ok("Response cache", fmt.Sprintf("%d active, %d expired, %s, ttl %s",
		stats.ActiveEntries(), stats.ExpiredEntries, humanize.Bytes(uint64(stats.TotalBytes)), s.Cache.TTL()))
}

func (s *Service) historyCheck() domain.HealthCheck {
	if s.History == nil {
		return warn("History", "disabled")
	}
	stats, err := s.History.Stats()
	if err != nil {
		return warn("History", err.Error())
	}
	return ok("History", fmt.Sprintf("%d entries at %s", stats.Total, s.History.Path()))
}

func (s *Service) learningCheck() domain.HealthCheck {
	if s.Learning == nil {
		return warn("Learning", "disabled")
	}
	stats, err := s.Learning.Stats()
	if err != nil {
		return warn("Learning", err.Error())
	}
	return ok("Learning", fmt.Sprintf("%d corrections, %d shortcuts at %s", stats.Corrections, stats.Shortcuts, s.Learning.Path()))
}

func nlpCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.IsNLPEnabled() {
		return warn("Natural language", "disabled; run 'tasq nlp config enable'")
	}
	provider := cfg.EffectiveProvider()
	switch provider {
	case domain.ProviderOffline:
		return warn("Natural language", "offline provider; only rule-based input is understood")
	case domain.ProviderOllama:
		return ok("Natural language", fmt.Sprintf("%s (%s)", provider, cfg.NLP.Model))
	}
	if !cfg.HasAPIKey() {
		return fail("Natural language", fmt.Sprintf("%s selected but %s is not set", provider, cfg.NLP.APIKeyEnv))
	}
	return ok("Natural language", fmt.Sprintf("%s (%s), key %s", provider, cfg.NLP.Model, cfg.MaskedAPIKey()))
}

func (s *Service) guardCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.IsGuardEnabled() {
		return warn("Guard", "disabled")
	}
	if s.Guard == nil {
		return warn("Guard", "not initialized")
	}
	if _, err := s.Guard.Evaluate([]string{"list", "task"}); err != nil {
		return fail("Guard", err.Error())
	}
	return ok("Guard", "rules loaded")
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
