// Package ai builds the language-model providers used by the interpreter.
//
// Anthropic goes through the official SDK. OpenAI-compatible endpoints
// (OpenAI itself and a local Ollama) share one chat-completions client.
// When no credentials are available the offline provider reports
// domain.ErrProviderOffline so the interpreter can fall back to local rules.
package ai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultOllamaEndpoint = "http://localhost:11434/v1/chat/completions"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOllamaModel    = "llama3.1"
)

// Factory creates providers from configuration.
type Factory struct {
	httpClient *http.Client
}

// NewFactory returns a factory whose HTTP client uses the default timeout.
func NewFactory() *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
	}
}

// NewFactoryWithClient lets callers share or stub the HTTP client.
func NewFactoryWithClient(client *http.Client) *Factory {
	return &Factory{httpClient: client}
}

// ForConfig picks the provider named by nlp.provider, resolving "auto".
func (f *Factory) ForConfig(cfg domain.Config) (ports.Provider, error) {
	if !cfg.IsNLPEnabled() {
		return newOfflineProvider("disabled"), nil
	}

	timeout := cfg.RequestTimeout()
	switch kind := cfg.EffectiveProvider(); kind {
	case domain.ProviderAnthropic:
		key := cfg.ResolveAPIKey()
		if key == "" {
			return newOfflineProvider("missing api key"), nil
		}
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:  key,
			Model:   defaultString(cfg.NLP.Model, domain.DefaultNLPModel),
			BaseURL: cfg.NLP.APIBaseURL,
			Timeout: timeout,
		}), nil

	case domain.ProviderOpenAI:
		key := cfg.ResolveAPIKey()
		if key == "" {
			return newOfflineProvider("missing api key"), nil
		}
		return newChatProvider(chatConfig{
			name:     domain.ProviderOpenAI,
			endpoint: defaultString(cfg.NLP.APIBaseURL, defaultOpenAIEndpoint),
			model:    defaultString(modelFor(cfg), defaultOpenAIModel),
			apiKey:   key,
			timeout:  timeout,
		}, f.httpClient), nil

	case domain.ProviderOllama:
		return newChatProvider(chatConfig{
			name:     domain.ProviderOllama,
			endpoint: defaultString(cfg.NLP.APIBaseURL, defaultOllamaEndpoint),
			model:    defaultString(modelFor(cfg), defaultOllamaModel),
			apiKey:   cfg.NLP.APIKey,
			timeout:  timeout,
		}, f.httpClient), nil

	case domain.ProviderOffline:
		return newOfflineProvider("offline"), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", kind)
	}
}

// modelFor ignores the Anthropic default model when another provider is
// selected, so switching providers does not send "claude-*" to OpenAI.
func modelFor(cfg domain.Config) string {
	if strings.HasPrefix(cfg.NLP.Model, "claude") {
		return ""
	}
	return cfg.NLP.Model
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

var _ ports.ProviderFactory = (*Factory)(nil)
