package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/tasq/internal/app"
	configapp "github.com/doeshing/tasq/internal/application/config"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/tasq/internal/infrastructure/config"
)

// configKey is one settable entry of config.yaml. normalize returns the
// canonical form of a raw value or an error naming the accepted values.
// literal values are stored as strings without YAML decoding.
type configKey struct {
	help      string
	normalize func(raw string) (string, error)
	literal   bool
}

var executionModes = []string{
	string(domain.ModeSequential),
	string(domain.ModeStopOnError),
	string(domain.ModeContinueOnError),
	string(domain.ModeParallel),
	string(domain.ModeDependent),
}

var configKeys = map[string]configKey{
	"nlp.enabled":                       {help: "Interpret plain-language input", normalize: boolValue},
	"nlp.provider":                      {help: "Model backend: " + strings.Join(domain.Providers(), ", "), normalize: providerValue},
	"nlp.model":                         {help: "Model name sent to the provider", normalize: textValue, literal: true},
	"nlp.api_key_env":                   {help: "Environment variable holding the API key", normalize: textValue, literal: true},
	"nlp.api_base_url":                  {help: "Override the provider endpoint", normalize: anyValue, literal: true},
	"nlp.fallback_to_traditional":       {help: "Keyword-led input tries the traditional parser before the interpreter; off sends everything to the interpreter", normalize: boolValue},
	"nlp.cache_commands":                {help: "Cache interpretations by normalized input", normalize: boolValue},
	"nlp.context_window":                {help: "Recent inputs offered to the model", normalize: countValue},
	"nlp.max_api_calls_per_minute":      {help: "Model calls allowed per minute (0 = unlimited)", normalize: countValue},
	"nlp.timeout_seconds":               {help: "Model request timeout", normalize: countValue},
	"nlp.preview_enabled":               {help: "Show the plan before running interpreted commands", normalize: boolValue},
	"nlp.auto_confirm":                  {help: "Skip preview and guard prompts", normalize: boolValue},
	"nlp.show_transparency":             {help: "Print how each input was interpreted", normalize: boolValue},
	"nlp.execution_mode":                {help: "Default compound mode: " + strings.Join(executionModes, ", "), normalize: executionModeValue},
	"cache.path":                        {help: "Interpretation cache database", normalize: textValue, literal: true},
	"cache.ttl":                         {help: "How long interpretations stay cached (e.g. 168h)", normalize: positiveDuration},
	"storage.path":                      {help: "Task and record database", normalize: textValue, literal: true},
	"history.path":                      {help: "Interaction history database", normalize: textValue, literal: true},
	"history.retention_days":            {help: "Days of history kept by 'history retain'", normalize: countValue},
	"history.max_entries":               {help: "History entries seeded into completion", normalize: countValue},
	"learning.path":                     {help: "Taught corrections and shortcuts database", normalize: textValue, literal: true},
	"interactive.prompt":                {help: "Interactive prompt text", normalize: anyValue, literal: true},
	"interactive.show_interpretation":   {help: "Echo interpretations in the interactive session", normalize: boolValue},
	"interactive.show_context_on_start": {help: "Print the session banner on start", normalize: boolValue},
	"interactive.max_history":           {help: "Inputs remembered for completion", normalize: countValue},
	"interactive.session_timeout":       {help: "Idle time before the session ends (empty = never)", normalize: timeoutValue},
	"security.guard_enabled":            {help: "Ask before risky commands", normalize: boolValue},
	"security.rules_file":               {help: "Guard rules YAML", normalize: textValue, literal: true},
}

// NewConfigCommand creates `config` and its subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit ~/.tasq/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (API key masked)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List settable keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				listConfigKeys(cmd.OutOrStdout())
				return nil
			},
		},
		newConfigGetCommand(container),
		newConfigSetCommand(container),
		newConfigEditCommand(container),
		newConfigValidateCommand(container),
		newConfigResetCommand(container),
		newConfigDiffCommand(container),
		newConfigPathCommand(container),
	)

	return configCmd
}

// newConfigGetCommand creates 'config get'
func newConfigGetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one value, e.g. nlp.execution_mode (no key lists keys)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listConfigKeys(cmd.OutOrStdout())
				return nil
			}
			return getConfigurationValue(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newConfigSetCommand creates 'config set'
func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value; run 'tasq config keys' for the list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stored, err := setConfigurationValue(cmd.Context(), container, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if err := container.Reload(cmd.Context()); err != nil {
				container.Logger.Warn("saved config not applied to this process", map[string]interface{}{"error": err.Error()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], stored)
			return nil
		},
	}
}

// newConfigEditCommand creates 'config edit'
func newConfigEditCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open config.yaml in $EDITOR and validate it afterwards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := helpers.GetConfigLoader(container)
			if err != nil {
				return err
			}
			editor := os.Getenv(envKeyEditor)
			if editor == "" {
				editor = DefaultEditorCommand
			}
			run := exec.Command(editor, loader.Path())
			run.Stdin, run.Stdout, run.Stderr = os.Stdin, os.Stdout, os.Stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("failed to run editor %s: %w", editor, err)
			}
			return validateConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigValidateCommand creates 'config validate'
func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check config.yaml without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigResetCommand creates 'config reset'
func newConfigResetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Back up config.yaml and restore the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := helpers.GetConfigLoader(container)
			if err != nil {
				return err
			}
			backup, err := loader.Backup()
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to back up configuration: %w", err)
			}
			if _, err := loader.Reset(); err != nil {
				return fmt.Errorf("failed to reset configuration: %w", err)
			}
			out := cmd.OutOrStdout()
			if backup != "" {
				fmt.Fprintf(out, "Previous configuration saved to %s\n", backup)
			}
			fmt.Fprintf(out, "Defaults written to %s\n", loader.Path())
			return nil
		},
	}
}

// newConfigDiffCommand creates 'config diff'
func newConfigDiffCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show settings that differ from the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := container.ConfigProvider.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			diff := cmp.Diff(configinfra.DefaultConfig(), current)
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoDifferencesFromDefault)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

// newConfigPathCommand creates 'config path'
func newConfigPathCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := helpers.GetConfigLoader(container)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loader.Path())
			return nil
		},
	}
}

// showConfiguration prints the loaded config as YAML with the key masked
func showConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.NLP.APIKey != "" {
		cfg.NLP.APIKey = cfg.MaskedAPIKey()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

func validateConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err == nil {
		err = configapp.Validate(cfg)
	}
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, MsgConfigurationValid)
	return nil
}

// getConfigurationValue prints a section or a single value. The API key is
// never printed in full.
func getConfigurationValue(ctx context.Context, out io.Writer, container *app.Container, keyPath string) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.NLP.APIKey != "" {
		cfg.NLP.APIKey = cfg.MaskedAPIKey()
	}
	tree, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return err
	}
	value, found := helpers.TraverseNestedMap(tree, strings.Split(keyPath, "."))
	if !found {
		return unknownKeyError(keyPath)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

// setConfigurationValue checks raw against the key's accepted values, then
// saves through the validator. It returns the stored form.
func setConfigurationValue(ctx context.Context, container *app.Container, keyPath, raw string) (string, error) {
	value, err := normalizeConfigValue(keyPath, raw)
	if err != nil {
		return "", err
	}
	var parsed interface{} = value
	if !configKeys[keyPath].literal {
		if parsed, err = helpers.ParseYAMLValue(value); err != nil {
			return "", fmt.Errorf("failed to parse value: %w", err)
		}
	}

	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	tree, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return "", err
	}
	if !helpers.SetNestedMapValue(tree, strings.Split(keyPath, "."), parsed) {
		return "", unknownKeyError(keyPath)
	}
	updated, err := helpers.MapToConfig(tree)
	if err != nil {
		return "", err
	}
	if err := helpers.SaveConfigWithValidation(container, updated); err != nil {
		return "", err
	}
	return value, nil
}

// normalizeConfigValue rejects unknown keys and out-of-range values with a
// message naming what the key accepts.
func normalizeConfigValue(keyPath, raw string) (string, error) {
	key, ok := configKeys[keyPath]
	if !ok {
		return "", unknownKeyError(keyPath)
	}
	value, err := key.normalize(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%s %w", keyPath, err)
	}
	return value, nil
}

func unknownKeyError(keyPath string) error {
	return fmt.Errorf("unknown key %q; run 'tasq config keys' to list settable keys", keyPath)
}

func listConfigKeys(out io.Writer) {
	names := make([]string, 0, len(configKeys))
	for name := range configKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%-34s %s\n", name, configKeys[name].help)
	}
}

func boolValue(raw string) (string, error) {
	switch strings.ToLower(raw) {
	case "true", "on", "yes", "1":
		return "true", nil
	case "false", "off", "no", "0":
		return "false", nil
	}
	return "", fmt.Errorf("must be on or off, got %q", raw)
}

func providerValue(raw string) (string, error) {
	p := strings.ToLower(raw)
	if !isKnownProvider(p) {
		return "", fmt.Errorf("must be one of %s, got %q", strings.Join(domain.Providers(), ", "), raw)
	}
	return p, nil
}

func executionModeValue(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("must be one of %s", strings.Join(executionModes, ", "))
	}
	mode, err := domain.ParseExecutionMode(raw)
	if err != nil {
		return "", fmt.Errorf("must be one of %s, got %q", strings.Join(executionModes, ", "), raw)
	}
	return string(mode), nil
}

func countValue(raw string) (string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return "", fmt.Errorf("must be a whole number >= 0, got %q", raw)
	}
	return strconv.Itoa(n), nil
}

func positiveDuration(raw string) (string, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return "", fmt.Errorf("must be a positive duration such as 72h, got %q", raw)
	}
	return d.String(), nil
}

func timeoutValue(raw string) (string, error) {
	if raw == "" {
		return `""`, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return "", fmt.Errorf("must be a duration such as 30m, or empty for no timeout, got %q", raw)
	}
	return d.String(), nil
}

func textValue(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("must not be empty")
	}
	return raw, nil
}

func anyValue(raw string) (string, error) {
	return raw, nil
}
