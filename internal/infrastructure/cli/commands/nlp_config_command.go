package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/cli/helpers"
	"github.com/doeshing/tasq/internal/infrastructure/interpreter"
)

// NewNLPConfigCommand creates `nlp config` and its toggles
func NewNLPConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configure natural-language interpretation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showNLPSettings(cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newNLPToggleCommand(container, "enable", "Turn natural-language interpretation on", func(n *domain.NLPSettings) { n.Enabled = true }),
		newNLPToggleCommand(container, "disable", "Turn natural-language interpretation off", func(n *domain.NLPSettings) { n.Enabled = false }),
		newNLPToggleCommand(container, "enable-preview", "Preview compound commands before running them", func(n *domain.NLPSettings) { n.PreviewEnabled = true }),
		newNLPToggleCommand(container, "disable-preview", "Run compound commands without a preview", func(n *domain.NLPSettings) { n.PreviewEnabled = false }),
		newNLPToggleCommand(container, "enable-auto-confirm", "Skip confirmation prompts", func(n *domain.NLPSettings) { n.AutoConfirm = true }),
		newNLPToggleCommand(container, "disable-auto-confirm", "Ask before running interpreted commands", func(n *domain.NLPSettings) { n.AutoConfirm = false }),
		newNLPToggleCommand(container, "enable-transparency", "Show how each request was interpreted", func(n *domain.NLPSettings) { n.ShowTransparency = true }),
		newNLPToggleCommand(container, "disable-transparency", "Hide interpretation details", func(n *domain.NLPSettings) { n.ShowTransparency = false }),
		newNLPSetKeyCommand(container),
		newNLPSetModelCommand(container),
		newNLPSetProviderCommand(container),
		newNLPShowCommand(container),
		newNLPClearCacheCommand(container),
		newNLPSuggestCommand(container),
		newNLPPatternsCommand(),
		newNLPLearnCommand(container),
		newNLPLearningStatsCommand(container),
		newNLPClearLearningCommand(container),
		newNLPCreateShortcutCommand(container),
		newNLPListShortcutsCommand(container),
		newNLPDeleteShortcutCommand(container),
	)
	configCmd.AddCommand(newNLPPersonalizationCommands(container)...)

	return configCmd
}

// newNLPToggleCommand builds one of the boolean switches
func newNLPToggleCommand(container *app.Container, name, short string, apply func(*domain.NLPSettings)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateNLPSettings(cmd.Context(), container, apply); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %s.\n", strings.ToLower(short))
			return nil
		},
	}
}

// newNLPSetKeyCommand creates 'nlp config set-key'
func newNLPSetKeyCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Store the provider API key in the config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				key = helpers.PromptForString(cmd.OutOrStdout(), bufio.NewReader(cmd.InOrStdin()), "API key", "")
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("api key cannot be empty")
			}
			if err := updateNLPSettings(cmd.Context(), container, func(n *domain.NLPSettings) { n.APIKey = key }); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
			return nil
		},
	}
}

// newNLPSetModelCommand creates 'nlp config set-model'
func newNLPSetModelCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set-model <model>",
		Short: "Choose the model used for interpretation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := strings.TrimSpace(args[0])
			if err := updateNLPSettings(cmd.Context(), container, func(n *domain.NLPSettings) { n.Model = model }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model set to %s.\n", model)
			return nil
		},
	}
}

// newNLPSetProviderCommand creates 'nlp config set-provider'
func newNLPSetProviderCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:       "set-provider <" + strings.Join(domain.Providers(), "|") + ">",
		Short:     "Choose the language-model backend",
		Args:      cobra.ExactArgs(1),
		ValidArgs: domain.Providers(),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(strings.TrimSpace(args[0]))
			if !isKnownProvider(provider) {
				return fmt.Errorf("unknown provider %q (want one of %s)", provider, strings.Join(domain.Providers(), ", "))
			}
			if err := updateNLPSettings(cmd.Context(), container, func(n *domain.NLPSettings) { n.Provider = provider }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Provider set to %s (active: %s).\n", provider, container.Interpreter.ProviderName())
			return nil
		},
	}
}

// newNLPShowCommand creates 'nlp config show'
func newNLPShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show natural-language settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showNLPSettings(cmd.OutOrStdout(), container)
		},
	}
}

// newNLPClearCacheCommand creates 'nlp config clear-cache'
func newNLPClearCacheCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Forget every cached interpretation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache(cmd.OutOrStdout(), cacheStore(container))
		},
	}
}

// newNLPSuggestCommand creates 'nlp config suggest'
func newNLPSuggestCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <partial input>",
		Short: "Show ranked completions and corrections for partial input",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Completer == nil {
				return fmt.Errorf("suggestions unavailable")
			}
			displaySuggestions(cmd.OutOrStdout(), container.Completer.Suggest(strings.Join(args, " ")))
			return nil
		},
	}
}

// newNLPPatternsCommand creates 'nlp config patterns'
func newNLPPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List phrasings understood without a language model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range interpreter.Patterns() {
				fmt.Fprintf(out, "%-20s %s\n", p.Name, p.Example)
			}
			return nil
		},
	}
}

// updateNLPSettings loads, mutates and saves the nlp section
func updateNLPSettings(ctx context.Context, container *app.Container, apply func(*domain.NLPSettings)) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	apply(&cfg.NLP)
	return helpers.SaveConfigWithValidation(container, cfg)
}

// showNLPSettings prints the effective interpretation settings
func showNLPSettings(out io.Writer, container *app.Container) error {
	cfg := container.Config
	fmt.Fprintf(out, "Enabled:          %s\n", onOff(cfg.NLP.Enabled))
	fmt.Fprintf(out, "Provider:         %s (effective: %s)\n", cfg.NLP.Provider, cfg.EffectiveProvider())
	fmt.Fprintf(out, "Model:            %s\n", cfg.NLP.Model)
	if cfg.HasAPIKey() {
		fmt.Fprintf(out, "API key:          %s\n", cfg.MaskedAPIKey())
	} else {
		fmt.Fprintf(out, "API key:          not set (config or $%s)\n", cfg.NLP.APIKeyEnv)
	}
	fmt.Fprintf(out, "Execution mode:   %s\n", cfg.NLP.ExecutionMode)
	fmt.Fprintf(out, "Fallback:         %s\n", onOff(cfg.NLP.FallbackToTraditional))
	fmt.Fprintf(out, "Cache:            %s\n", onOff(cfg.NLP.CacheCommands))
	fmt.Fprintf(out, "Preview:          %s\n", onOff(cfg.NLP.PreviewEnabled))
	fmt.Fprintf(out, "Auto-confirm:     %s\n", onOff(cfg.NLP.AutoConfirm))
	fmt.Fprintf(out, "Transparency:     %s\n", onOff(cfg.NLP.ShowTransparency))
	fmt.Fprintf(out, "Rate limit:       %d calls/min\n", cfg.NLP.MaxAPICallsPerMinute)
	return nil
}

// displaySuggestions prints one suggestion per line with its confidence
func displaySuggestions(out io.Writer, result domain.SuggestionResult) {
	if result.IsValid {
		fmt.Fprintln(out, "Input is already a complete command.")
	}
	if len(result.Suggestions) == 0 {
		fmt.Fprintln(out, "No suggestions.")
		return
	}
	for _, s := range result.Suggestions {
		fmt.Fprintf(out, "%3.0f%%  %-18s %-28q %s\n", s.Confidence*100, s.Kind, s.Text, s.Description)
	}
}

func isKnownProvider(name string) bool {
	for _, p := range domain.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
