package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/infrastructure/cli/helpers"
	"github.com/doeshing/tasq/internal/ports"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect plain-language request history",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
		newHistoryRetainCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, limit, "")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show")
	return cmd
}

// newHistorySearchCommand creates the 'history search' subcommand
func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var query string
	var searchLimit int

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search history inputs and commands for a keyword",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				query = args[0]
			}
			if query == "" {
				return fmt.Errorf(ErrQueryRequired)
			}
			return listHistoryEntries(cmd.OutOrStdout(), container.HistoryStore, searchLimit, query)
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&searchLimit, "limit", DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(cmd.OutOrStdout(), container.HistoryStore)
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.OutOrStdout(), container.HistoryStore, args[0])
		},
	}
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate, sources and top actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.OutOrStdout(), container.HistoryStore, time.Now())
		},
	}
}

// newHistoryRetainCommand creates the 'history retain' subcommand
func newHistoryRetainCommand(container *app.Container) *cobra.Command {
	var retainDays int

	cmd := &cobra.Command{
		Use:   "retain",
		Short: "Prune history older than N days and update retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if retainDays <= 0 {
				return fmt.Errorf(ErrInvalidRetainDays)
			}
			return updateHistoryRetention(cmd.Context(), cmd.OutOrStdout(), container, retainDays)
		},
	}

	cmd.Flags().IntVar(&retainDays, "days", DefaultHistoryRetainDays, "Days to retain history")
	return cmd
}

// listHistoryEntries lists recent entries, optionally filtered by keyword
func listHistoryEntries(out io.Writer, store ports.HistoryRepository, limit int, query string) error {
	if store == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}

	records, err := store.Records(limit, query)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s | %s | %s -> %s\n",
			rec.Timestamp.Local().Format(TimestampFormat),
			outcomeLabel(rec),
			rec.Source,
			rec.Input,
			rec.Command)
	}

	return nil
}

// outcomeLabel summarizes execution state for one record
func outcomeLabel(rec domain.HistoryRecord) string {
	switch {
	case !rec.Executed:
		return "skipped"
	case rec.Success:
		return "ok"
	default:
		return "failed"
	}
}

// clearHistory deletes every record
func clearHistory(out io.Writer, store ports.HistoryRepository) error {
	if store == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(out, "History cleared.")
	return nil
}

// exportHistory exports history to a JSON file
func exportHistory(out io.Writer, store ports.HistoryRepository, path string) error {
	if store == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}

	if err := store.ExportJSON(path); err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}

	fmt.Fprintf(out, "History exported to %s\n", path)
	return nil
}

// showHistoryStats displays success rate, source split and top actions
func showHistoryStats(out io.Writer, store ports.HistoryRepository, now time.Time) error {
	if store == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to compute history statistics: %w", err)
	}

	if stats.Total == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	fmt.Fprintf(out, "Entries: %d\nExecuted: %d\nSuccess rate: %.1f%%\n",
		stats.Total,
		stats.Executed,
		helpers.CalculateSuccessRate(stats.Succeeded, stats.Executed))
	fmt.Fprintf(out, "First entry: %s\nLast entry: %s\n",
		humanize.RelTime(stats.FirstEntry, now, "ago", "from now"),
		humanize.RelTime(stats.LastEntry, now, "ago", "from now"))

	fmt.Fprintln(out, "By source:")
	sources := make([]string, 0, len(stats.BySource))
	for source := range stats.BySource {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(out, "  %s: %d\n", source, stats.BySource[domain.CommandSource(source)])
	}

	records, err := store.Records(MaxHistoryAnalysisRecords, "")
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	top := helpers.CalculateTopCommands(helpers.ActionFrequency(records), topCommandCount)
	if len(top) > 0 {
		fmt.Fprintln(out, "Top actions:")
		for _, stat := range top {
			fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
		}
	}

	return nil
}

// updateHistoryRetention prunes old history and updates retention policy
func updateHistoryRetention(ctx context.Context, out io.Writer, container *app.Container, days int) error {
	store := container.HistoryStore
	if store == nil {
		return fmt.Errorf(ErrHistoryStoreUnavailable)
	}

	removed, err := store.Retain(days)
	if err != nil {
		return fmt.Errorf("failed to prune old history: %w", err)
	}

	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.History.RetentionDays = days

	if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Removed %d %s; keeping the last %d days of history.\n",
		removed, pluralize(removed, "entry", "entries"), days)
	return nil
}
