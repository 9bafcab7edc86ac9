package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"titlevault/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the server's result cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats cache.Stats
			if err := ctx.do(cmd.Context(), "GET", "/cache/stats", nil, nil, &stats); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			printCacheStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired entries (privileged callers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Removed int         `json:"removed"`
				Stats   cache.Stats `json:"stats"`
			}
			if err := ctx.do(cmd.Context(), "POST", "/cache/sweep", nil, nil, &result); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed: %d\n", result.Removed)
			printCacheStats(out, result.Stats)
			return nil
		},
	}
}

func printCacheStats(out io.Writer, stats cache.Stats) {
	fmt.Fprintf(out, "Backend: %s\n", stats.Backend)
	fmt.Fprintf(out, "Entries: %d / %d\n", stats.TotalEntries, stats.MaxEntries)
	fmt.Fprintf(out, "Expired: %d\n", stats.ExpiredEntries)
}
