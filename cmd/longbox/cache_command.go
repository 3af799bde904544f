package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"longbox/internal/seriescache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the series cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheCleanCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show series cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *seriescache.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				size := "unknown"
				if info, err := os.Stat(stats.Path); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache: %s\n", stats.Path)
				fmt.Fprintln(out, renderTable(
					[]string{"Metric", "Value"},
					[][]string{
						{"Entries", strconv.Itoa(stats.Size)},
						{"Issue lists", strconv.Itoa(stats.EntriesWithIssues)},
						{"Expired", strconv.Itoa(stats.Expired)},
						{"File size", size},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newCacheCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove expired series cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *seriescache.Store) error {
				removed, err := store.CleanExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s expired %s\n", humanize.Comma(int64(removed)), plural(removed, "entry", "entries"))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every series cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *seriescache.Store) error {
				removed, err := store.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s %s\n", humanize.Comma(int64(removed)), plural(removed, "entry", "entries"))
				return nil
			})
		},
	}
}

func withCache(ctx *commandContext, fn func(*seriescache.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return errors.New("series cache is disabled (cache.enabled = false)")
	}
	store, err := seriescache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open series cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
