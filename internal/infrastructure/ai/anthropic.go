package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

// AnthropicConfig holds the Messages API settings.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration

	// Retry settings; zero picks the default, negative disables retries.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// AnthropicProvider wraps the Anthropic SDK client.
type AnthropicProvider struct {
	cfg    AnthropicConfig
	client anthropic.Client
}

// NewAnthropicProvider creates the SDK client. Extra options are appended
// after the configured ones, which lets tests swap the HTTP transport.
func NewAnthropicProvider(cfg AnthropicConfig, opts ...option.RequestOption) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = domain.DefaultNLPModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 2
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}

	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.Timeout))
	}

	return &AnthropicProvider{
		cfg:    cfg,
		client: anthropic.NewClient(append(base, opts...)...),
	}
}

func (p *AnthropicProvider) Name() string {
	return domain.ProviderAnthropic
}

// Complete sends one system+user exchange, retrying transient failures with
// exponential backoff.
func (p *AnthropicProvider) Complete(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.cfg.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return ports.ProviderResponse{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		text, err := p.doRequest(ctx, req)
		if err == nil {
			return ports.ProviderResponse{Text: text}, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return ports.ProviderResponse{}, err
		}
	}

	return ports.ProviderResponse{}, fmt.Errorf("anthropic: max retries exceeded: %w", lastErr)
}

func (p *AnthropicProvider) doRequest(ctx context.Context, req ports.ProviderRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// isRetryable checks if an error should be retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()

	if strings.Contains(errStr, "rate_limit") || strings.Contains(errStr, "429") {
		return true
	}
	if strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "529") {
		return true
	}
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") {
		return true
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return true
	}

	return false
}

var _ ports.Provider = (*AnthropicProvider)(nil)
