package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the catalog response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than their freshness window",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newCache(cfg)
		total := 0
		for _, k := range cache.Kinds {
			n, err := c.Prune(k)
			total += n
			if err != nil {
				return fmt.Errorf("pruning %s: %w", k, err)
			}
			if n > 0 {
				fmt.Printf("pruned %d %s entries\n", n, k)
			}
		}
		fmt.Printf("%d expired entries removed from %s\n", total, c.Dir())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
