// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the hidden-gems CLI. Harvest keeps a
// pool of obscure, well-reviewed Steam games fresh; pick draws one game a
// day from the pool and renders it as a Markdown post.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/config"
	"github.com/pdiddy/hidden-gems/internal/secrets"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the configuration loaded before every subcommand runs.
	cfg types.Config

	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets
)

var rootCmd = &cobra.Command{
	Use:   "hidden-gems",
	Short: "Discover obscure, well-reviewed Steam games",
	Long: `hidden-gems samples the Steam catalog for small games with strongly
positive reviews, keeps the survivors in a candidate pool, and publishes one
pick per day as a Markdown post.

harvest refreshes the candidate pool when it is stale or too small. pick draws
from the pool without touching the network except for optional review
snippets and prose. serve runs both on cron schedules.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.Dir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		loaded, err := config.Load(config.Options{
			Path:      flagString(cmd, "config"),
			Overrides: rootOverrides(cmd),
		})
		if err != nil {
			return err
		}
		if loaded.File != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", loaded.File)
		}
		cfg = loaded.Config
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./hidden-gems.yaml or ~/.config/hidden-gems/hidden-gems.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the pool, history, ledger and cache")
	rootCmd.PersistentFlags().Bool("offline", false, "serve catalog data from the cache only")
}

// rootOverrides maps explicitly set persistent flags onto config keys.
func rootOverrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		out["data_dir"] = f.Value.String()
	}
	if f := cmd.Flags().Lookup("offline"); f != nil && f.Changed {
		out["catalog.offline"] = f.Value.String() == "true"
	}
	return out
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
