package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/doeshing/tasq/internal/app"
	"github.com/doeshing/tasq/internal/infrastructure/cli/helpers"
	"github.com/doeshing/tasq/internal/ports"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(container *app.Container) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the interpretation cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCacheStats(cmd.OutOrStdout(), cacheStore(container))
		},
	}

	cacheCmd.AddCommand(
		newCacheStatsCommand(container),
		newCacheClearCommand(container),
		newCacheCleanupCommand(container),
		newCacheTTLCommand(container),
	)

	return cacheCmd
}

// cacheStore avoids handing a typed nil pointer to the port.
func cacheStore(container *app.Container) ports.ResponseCache {
	if container.Cache == nil {
		return nil
	}
	return container.Cache
}

// newCacheStatsCommand creates the 'cache stats' subcommand
func newCacheStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts, size and TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCacheStats(cmd.OutOrStdout(), cacheStore(container))
		},
	}
}

// newCacheClearCommand creates the 'cache clear' subcommand
func newCacheClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached interpretation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache(cmd.OutOrStdout(), cacheStore(container))
		},
	}
}

// newCacheCleanupCommand creates the 'cache cleanup' subcommand
func newCacheCleanupCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove entries older than the TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cleanupCache(cmd.OutOrStdout(), cacheStore(container))
		},
	}
}

// newCacheTTLCommand creates the 'cache ttl' subcommand
func newCacheTTLCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "ttl [duration]",
		Short: "Show or change how long interpretations stay cached (e.g. 72h)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				store := cacheStore(container)
				if store == nil {
					return fmt.Errorf(ErrCacheStoreUnavailable)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cache TTL: %s\n", store.TTL())
				return nil
			}
			return updateCacheTTL(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// showCacheStats displays cache statistics
func showCacheStats(out io.Writer, cache ports.ResponseCache) error {
	if cache == nil {
		return fmt.Errorf(ErrCacheStoreUnavailable)
	}

	stats, err := cache.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache statistics: %w", err)
	}

	if stats.TotalEntries == 0 {
		fmt.Fprintln(out, MsgNoCachedResponses)
		fmt.Fprintf(out, "TTL: %s\n", stats.TTL)
		return nil
	}

	fmt.Fprintf(out, "Entries: %d (%d active, %d expired)\n",
		stats.TotalEntries,
		stats.ActiveEntries(),
		stats.ExpiredEntries)
	fmt.Fprintf(out, "Size: %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
	fmt.Fprintf(out, "Hits: %s\n", humanize.Comma(stats.TotalAccesses))
	fmt.Fprintf(out, "TTL: %s\n", stats.TTL)
	if stats.ExpiredEntries > 0 {
		fmt.Fprintln(out, "Run 'tasq cache cleanup' to remove expired entries.")
	}
	return nil
}

// clearCache removes every entry
func clearCache(out io.Writer, cache ports.ResponseCache) error {
	if cache == nil {
		return fmt.Errorf(ErrCacheStoreUnavailable)
	}

	if err := cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Fprintln(out, "Cache cleared.")
	return nil
}

// cleanupCache removes expired entries
func cleanupCache(out io.Writer, cache ports.ResponseCache) error {
	if cache == nil {
		return fmt.Errorf(ErrCacheStoreUnavailable)
	}

	removed, err := cache.Cleanup()
	if err != nil {
		return fmt.Errorf("failed to clean up cache: %w", err)
	}

	fmt.Fprintf(out, "Removed %d expired %s.\n", removed, pluralize(removed, "entry", "entries"))
	return nil
}

// updateCacheTTL validates the duration, persists it and applies it to the
// open cache.
func updateCacheTTL(ctx context.Context, out io.Writer, container *app.Container, raw string) error {
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Cache.TTL = ttl.String()

	if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
		return err
	}

	if store := cacheStore(container); store != nil {
		store.SetTTL(ttl)
	}
	fmt.Fprintf(out, "Cache TTL set to %s.\n", ttl)
	return nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
