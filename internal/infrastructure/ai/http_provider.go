package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/ports"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatConfig struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
}

// chatProvider speaks the OpenAI chat-completions dialect, which Ollama
// also serves under /v1.
type chatProvider struct {
	cfg        chatConfig
	httpClient *http.Client
}

func newChatProvider(cfg chatConfig, client *http.Client) *chatProvider {
	if client == nil {
		client = &http.Client{Timeout: domain.DefaultHTTPClientTimeout}
	}
	return &chatProvider{cfg: cfg, httpClient: client}
}

func (p *chatProvider) Name() string {
	return p.cfg.name
}

func (p *chatProvider) Complete(ctx context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	if p.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeout)
		defer cancel()
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:     p.cfg.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return ports.ProviderResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	httpReq.Header.Set("content-type", "application/json")
	if p.cfg.apiKey != "" {
		httpReq.Header.Set("authorization", "Bearer "+p.cfg.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("%s: %w", p.cfg.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.ProviderResponse{}, err
	}
	if resp.StatusCode >= 400 {
		if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
			return ports.ProviderResponse{}, fmt.Errorf("%s: %s: %s", p.cfg.name, resp.Status, msg.String())
		}
		return ports.ProviderResponse{}, fmt.Errorf("%s: %s", p.cfg.name, resp.Status)
	}

	text, err := parseChatCompletion(raw)
	if err != nil {
		return ports.ProviderResponse{}, fmt.Errorf("%s: %w", p.cfg.name, err)
	}
	return ports.ProviderResponse{Text: text}, nil
}

// parseChatCompletion reads the first choice, accepting Ollama's native
// /api/chat shape as well.
func parseChatCompletion(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("invalid response body")
	}
	for _, path := range []string{"choices.0.message.content", "message.content"} {
		if v := gjson.GetBytes(raw, path); v.Exists() {
			return strings.TrimSpace(v.String()), nil
		}
	}
	return "", fmt.Errorf("response has no message content")
}

var _ ports.Provider = (*chatProvider)(nil)
