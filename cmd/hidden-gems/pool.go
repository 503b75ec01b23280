// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/score"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect and maintain the candidate pool",
	Long: `Pool lists the candidates gathered by harvest, ranked by GemScore, and
migrates pool files written in older layouts.`,
}

// --- list subcommand ---

var poolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates ranked by GemScore",
	RunE:  runPoolList,
}

func runPoolList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	recs, err := newStore(cfg, os.Stderr).List()
	if err != nil {
		return err
	}
	ranked := score.FromConfig(cfg.Score, cfg.Filter).Rank(recs)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if jsonOutput {
		return formatPoolJSON(os.Stdout, ranked)
	}

	meta, err := newStore(cfg, os.Stderr).Meta()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: reading pool meta: %v\n", err)
	}
	formatPoolTable(os.Stdout, ranked)
	if !meta.LastRefresh.IsZero() {
		fmt.Fprintf(os.Stdout, "last refresh: %s\n", meta.LastRefresh.Local().Format(time.RFC3339))
	}
	return nil
}

type rankedJSON struct {
	Rank            int      `json:"rank"`
	Score           float64  `json:"score"`
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	TotalReviews    int      `json:"total_reviews"`
	PositiveReviews int      `json:"positive_reviews"`
	Genres          []string `json:"genres,omitempty"`
	Price           string   `json:"price,omitempty"`
}

func formatPoolJSON(w io.Writer, ranked []score.Ranked) error {
	out := make([]rankedJSON, len(ranked))
	for i, r := range ranked {
		out[i] = rankedJSON{
			Rank:            i + 1,
			Score:           r.Score,
			ID:              r.Record.ID,
			Name:            r.Record.Name,
			TotalReviews:    r.Record.TotalReviews,
			PositiveReviews: r.Record.PositiveReviews,
			Genres:          r.Record.Genres,
			Price:           r.Record.Price,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatPoolTable(w io.Writer, ranked []score.Ranked) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "Pool is empty. Run harvest first.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-5s  %-8s  %-7s  %-5s  %-40s  %s\n",
		"Rank", "Score", "AppID", "Reviews", "Pos%", "Name", "Genres")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, r := range ranked {
		rec := r.Record
		name := rec.Name
		if r := []rune(name); len(r) > 40 {
			name = string(r[:37]) + "..."
		}
		pos := 0.0
		if rec.TotalReviews > 0 {
			pos = 100 * float64(rec.PositiveReviews) / float64(rec.TotalReviews)
		}
		fmt.Fprintf(w, "%-4d  %5.1f  %-8d  %7d  %5.1f  %-40s  %s\n",
			i+1, r.Score, rec.ID, rec.TotalReviews, pos, name, strings.Join(rec.Genres, ", "))
	}

	fmt.Fprintf(w, "\n%d candidates\n", len(ranked))
}

// --- migrate subcommand ---

var poolMigrateCmd = &cobra.Command{
	Use:   "migrate [legacy-file]",
	Short: "Convert a pool file of any historical layout into the current one",
	Long: `Migrate reads a pool file written as a bare id list, a record list, or a
wrapped object (YAML or JSON), normalizes it, and merges it into the pool.
Without an argument the pool file itself is rewritten in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPoolMigrate,
}

func runPoolMigrate(cmd *cobra.Command, args []string) error {
	store := newStore(cfg, os.Stderr)
	src := store.Path()
	if len(args) == 1 {
		src = args[0]
	}
	if err := ensureDataDir(cfg); err != nil {
		return err
	}

	kind, added, err := store.Migrate(src)
	if err != nil {
		return err
	}
	meta, err := store.Meta()
	if err != nil {
		return err
	}
	fmt.Printf("migrated %s (%s layout): %d added, pool size %d\n", src, kind, added, meta.Size)
	return nil
}

func init() {
	poolListCmd.Flags().Int("limit", 0, "show at most this many candidates")
	poolListCmd.Flags().Bool("json", false, "output as JSON")

	poolCmd.AddCommand(poolListCmd)
	poolCmd.AddCommand(poolMigrateCmd)
	rootCmd.AddCommand(poolCmd)
}
