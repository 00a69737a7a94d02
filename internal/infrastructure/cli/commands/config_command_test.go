package commands

import (
	"strings"
	"testing"

	"github.com/doeshing/tasq/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/tasq/internal/infrastructure/config"
)

func TestNormalizeConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		raw     string
		want    string
		wantErr string
	}{
		{key: "nlp.execution_mode", raw: "stop-on-error", want: "stop_on_error"},
		{key: "nlp.execution_mode", raw: "eventually", wantErr: "nlp.execution_mode must be one of sequential, stop_on_error, continue_on_error, parallel, dependent"},
		{key: "nlp.execution_mode", raw: "", wantErr: "nlp.execution_mode must be one of"},
		{key: "nlp.provider", raw: "OpenAI", want: "openai"},
		{key: "nlp.provider", raw: "gpt", wantErr: "nlp.provider must be one of auto"},
		{key: "nlp.enabled", raw: "on", want: "true"},
		{key: "nlp.fallback_to_traditional", raw: "maybe", wantErr: "must be on or off"},
		{key: "nlp.max_api_calls_per_minute", raw: "-1", wantErr: "whole number"},
		{key: "cache.ttl", raw: "72h", want: "72h0m0s"},
		{key: "cache.ttl", raw: "0s", wantErr: "positive duration"},
		{key: "interactive.session_timeout", raw: "", want: `""`},
		{key: "nlp.model", raw: "  4  ", want: "4"},
		{key: "nlp.colour", raw: "blue", wantErr: "unknown key \"nlp.colour\""},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := normalizeConfigValue(tt.key, tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeConfigValue: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigKeysExistInDefaults(t *testing.T) {
	omitted := map[string]bool{"nlp.api_base_url": true, "interactive.session_timeout": true}
	tree, err := helpers.ConfigToMap(configinfra.DefaultConfig())
	if err != nil {
		t.Fatalf("ConfigToMap: %v", err)
	}
	for key := range configKeys {
		if omitted[key] {
			continue
		}
		if _, ok := helpers.TraverseNestedMap(tree, strings.Split(key, ".")); !ok {
			t.Errorf("settable key %s is not in the default config", key)
		}
	}
}

func TestListConfigKeysIsSorted(t *testing.T) {
	var out strings.Builder
	listConfigKeys(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(configKeys) {
		t.Fatalf("listed %d keys, want %d", len(lines), len(configKeys))
	}
	if !strings.HasPrefix(lines[0], "cache.path") {
		t.Fatalf("first line = %q", lines[0])
	}
}
