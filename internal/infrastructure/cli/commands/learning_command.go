package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/learning"
)

// taughtFlags are shared by 'learn' and 'create-shortcut'
type taughtFlags struct {
	action   string
	content  string
	category string
}

func (f *taughtFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.action, "action", "a", "", "Action to run ("+strings.Join(taughtActions(), ", ")+")")
	cmd.Flags().StringVarP(&f.content, "content", "c", "", "Task or record content")
	cmd.Flags().StringVar(&f.category, "category", "", "Category for the command")
	_ = cmd.MarkFlagRequired("action")
}

func (f *taughtFlags) command() (domain.StructuredCommand, error) {
	cmd, ok := domain.NewTaughtCommand(f.action, f.content, f.category)
	if !ok {
		return domain.StructuredCommand{}, fmt.Errorf("unknown action %q (want one of %s)", f.action, strings.Join(taughtActions(), ", "))
	}
	return cmd, nil
}

func taughtActions() []string {
	var out []string
	for _, a := range domain.Actions() {
		out = append(out, string(a))
	}
	return out
}

// learningStore avoids handing out a nil store
func learningStore(container *app.Container) (*learning.SQLiteStore, error) {
	if container.Learning == nil {
		return nil, fmt.Errorf(ErrLearningStoreUnavailable)
	}
	return container.Learning, nil
}

// newNLPLearnCommand creates 'nlp config learn'
func newNLPLearnCommand(container *app.Container) *cobra.Command {
	var flags taughtFlags
	cmd := &cobra.Command{
		Use:   "learn <input>",
		Short: "Teach the command an input should mean",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			taught, err := flags.command()
			if err != nil {
				return err
			}
			return learnCorrection(cmd.OutOrStdout(), store, strings.Join(args, " "), taught)
		},
	}
	flags.register(cmd)
	return cmd
}

// newNLPLearningStatsCommand creates 'nlp config learning-stats'
func newNLPLearningStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "learning-stats",
		Short: "Show taught corrections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			return showLearning(cmd.OutOrStdout(), store)
		},
	}
}

// newNLPClearLearningCommand creates 'nlp config clear-learning'
func newNLPClearLearningCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-learning",
		Short: "Forget every taught correction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			if err := store.ClearCorrections(); err != nil {
				return fmt.Errorf("failed to clear corrections: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Taught corrections cleared.")
			return nil
		},
	}
}

// newNLPCreateShortcutCommand creates 'nlp config create-shortcut'
func newNLPCreateShortcutCommand(container *app.Container) *cobra.Command {
	var flags taughtFlags
	cmd := &cobra.Command{
		Use:   "create-shortcut <name>",
		Short: "Define a phrase that expands to a fixed command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			taught, err := flags.command()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			if err := store.CreateShortcut(name, taught); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Shortcut %q -> %s\n", name, learning.Describe(taught))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// newNLPListShortcutsCommand creates 'nlp config list-shortcuts'
func newNLPListShortcutsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list-shortcuts",
		Short: "List personal shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			return listShortcuts(cmd.OutOrStdout(), store)
		},
	}
}

// newNLPDeleteShortcutCommand creates 'nlp config delete-shortcut'
func newNLPDeleteShortcutCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-shortcut <name>",
		Short: "Remove a personal shortcut",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			removed, err := store.DeleteShortcut(name)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no shortcut named %q", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Shortcut %q deleted.\n", name)
			return nil
		},
	}
}

// newNLPPersonalizationCommands creates the personalization-* subcommands
func newNLPPersonalizationCommands(container *app.Container) []*cobra.Command {
	status := &cobra.Command{
		Use:   "personalization-status",
		Short: "Summarize corrections and shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			return showPersonalization(cmd.OutOrStdout(), store)
		},
	}

	var yes bool
	reset := &cobra.Command{
		Use:   "personalization-reset",
		Short: "Delete all corrections and shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("this deletes every correction and shortcut; rerun with --yes")
			}
			if err := store.Reset(); err != nil {
				return fmt.Errorf("failed to reset personalization: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Personalization reset.")
			return nil
		},
	}
	reset.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")

	export := &cobra.Command{
		Use:   "personalization-export [file]",
		Short: "Write corrections and shortcuts as JSON (stdout when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return store.Export(cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := store.Export(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "personalization-import <file>",
		Short: "Merge corrections and shortcuts from an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := learningStore(container)
			if err != nil {
				return err
			}
			return importPersonalization(cmd.OutOrStdout(), store, args[0])
		},
	}

	return []*cobra.Command{status, reset, export, importCmd}
}

// learnCorrection stores one correction and reports its confidence
func learnCorrection(out io.Writer, store *learning.SQLiteStore, input string, taught domain.StructuredCommand) error {
	if err := store.Learn(input, taught); err != nil {
		return err
	}
	fmt.Fprintf(out, "Learned: %q -> %s\n", strings.TrimSpace(input), learning.Describe(taught))
	return nil
}

// showLearning lists corrections, most confident first
func showLearning(out io.Writer, store *learning.SQLiteStore) error {
	corrections, err := store.Corrections()
	if err != nil {
		return fmt.Errorf("failed to read corrections: %w", err)
	}
	if len(corrections) == 0 {
		fmt.Fprintln(out, MsgNoCorrections)
		return nil
	}
	for _, c := range corrections {
		fmt.Fprintf(out, "%3.0f%%  %-28q %s (taught %dx, last used %s)\n",
			c.Confidence*100, c.Input, learning.Describe(c.Command), c.Confirmations, humanize.Time(c.LastUsedAt))
	}
	return nil
}

// listShortcuts prints shortcuts with their use counts
func listShortcuts(out io.Writer, store *learning.SQLiteStore) error {
	shortcuts, err := store.Shortcuts()
	if err != nil {
		return fmt.Errorf("failed to read shortcuts: %w", err)
	}
	if len(shortcuts) == 0 {
		fmt.Fprintln(out, MsgNoShortcuts)
		return nil
	}
	for _, s := range shortcuts {
		fmt.Fprintf(out, "%-20s %s (%d %s)\n", s.Name, learning.Describe(s.Command), s.Uses, pluralize(s.Uses, "use", "uses"))
	}
	return nil
}

// showPersonalization prints the combined summary
func showPersonalization(out io.Writer, store *learning.SQLiteStore) error {
	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to read personalization: %w", err)
	}
	fmt.Fprintf(out, "Store:              %s\n", store.Path())
	fmt.Fprintf(out, "Corrections:        %d (%d confirmations, avg confidence %.0f%%)\n",
		stats.Corrections, stats.Confirmations, stats.AverageConfidence*100)
	fmt.Fprintf(out, "Shortcuts:          %d (%s %s)\n",
		stats.Shortcuts, humanize.Comma(int64(stats.ShortcutUses)), pluralize(stats.ShortcutUses, "use", "uses"))
	return nil
}

// importPersonalization merges an export file into the store
func importPersonalization(out io.Writer, store *learning.SQLiteStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	n, err := store.Import(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d %s from %s\n", n, pluralize(n, "entry", "entries"), path)
	return nil
}
