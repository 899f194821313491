package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Long: `Display statistics about the store:
- Size (all keys in the Redis database, not only this prefix)
- Hits and misses of this cachectl invocation
- Hit rate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.store.Stats(ctxOrBackground(cmd))
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			text := fmt.Sprintf("Size:     %d\nHits:     %d\nMisses:   %d\nHit rate: %.2f",
				stats.Size, stats.Hits, stats.Misses, stats.HitRate)
			return a.print(cmd.OutOrStdout(), stats, text)
		},
	}
}

func newFlushCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove every cache entry and rate limit counter",
		Long: `Remove every cache entry and rate limit counter.

With --prefix only keys in that namespace are removed. Without a prefix the
whole Redis database is flushed, including keys that belong to other
applications, so --force is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.prefix == "" && !force {
				return fmt.Errorf("refusing to flush the whole database without --prefix; pass --force to confirm")
			}
			if err := a.store.Clear(ctxOrBackground(cmd)); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			return a.print(cmd.OutOrStdout(), map[string]bool{"flushed": true}, "OK")
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "allow flushing the whole database")
	return cmd
}
