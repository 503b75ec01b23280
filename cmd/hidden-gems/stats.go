package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/cache"
	"github.com/pdiddy/hidden-gems/internal/history"
	"github.com/pdiddy/hidden-gems/internal/ledger"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the pool, cache and recent probe outcomes",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Duration("since", 30*24*time.Hour, "probe window to summarize")
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

// stats is everything the stats command reports.
type stats struct {
	Pool   types.PoolMeta     `json:"pool"`
	Picks  int                `json:"picks"`
	Cache  map[cache.Kind]int `json:"cache"`
	Probes ledger.Summary     `json:"probes"`
	Since  time.Time          `json:"since"`
	Ledger bool               `json:"ledger"`
}

func runStats(cmd *cobra.Command, args []string) error {
	since, _ := cmd.Flags().GetDuration("since")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := collectStats(cmd, cfg, time.Now().Add(-since))
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	formatStats(os.Stdout, s)
	return nil
}

func collectStats(cmd *cobra.Command, c types.Config, since time.Time) (stats, error) {
	p := dataPaths(c)
	s := stats{Since: since, Cache: make(map[cache.Kind]int)}

	meta, err := newStore(c, os.Stderr).Meta()
	if err != nil {
		return s, err
	}
	s.Pool = meta

	hist, err := history.Load(p.History, c.Pick.HistoryMax, os.Stderr)
	if err != nil {
		return s, err
	}
	s.Picks = hist.Len()

	ch := newCache(c)
	for _, k := range cache.Kinds {
		s.Cache[k] = ch.Count(k)
	}

	if _, err := os.Stat(p.Ledger); err != nil {
		return s, nil
	}
	led, err := ledger.Open(p.Ledger)
	if err != nil {
		return s, err
	}
	defer led.Close()
	s.Probes, err = led.Summarize(cmd.Context(), since)
	if err != nil {
		return s, err
	}
	s.Ledger = true
	return s, nil
}

func formatStats(w io.Writer, s stats) {
	refreshed := "never"
	if !s.Pool.LastRefresh.IsZero() {
		refreshed = s.Pool.LastRefresh.Local().Format(time.RFC3339)
	}
	fmt.Fprintf(w, "pool:    %d candidates, last refresh %s\n", s.Pool.Size, refreshed)
	fmt.Fprintf(w, "picks:   %d in history\n", s.Picks)
	fmt.Fprintf(w, "cache:   %d index, %d details, %d reviews, %d summaries\n",
		s.Cache[cache.KindIndex], s.Cache[cache.KindDetail], s.Cache[cache.KindReviews], s.Cache[cache.KindSummary])

	if !s.Ledger {
		fmt.Fprintln(w, "probes:  no harvest recorded yet")
		return
	}
	fmt.Fprintf(w, "probes:  %d since %s over %d runs (passed %d, rejected %d, errors %d)\n",
		s.Probes.Probes, s.Since.Local().Format("2006-01-02"), s.Probes.Runs,
		s.Probes.Passed, s.Probes.Rejected, s.Probes.Errors)

	stages := make([]string, 0, len(s.Probes.ByStage))
	for st := range s.Probes.ByStage {
		stages = append(stages, st)
	}
	sort.Strings(stages)
	for _, st := range stages {
		name := st
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %-12s %d\n", name, s.Probes.ByStage[st])
	}
	if !s.Probes.LastProbe.IsZero() {
		fmt.Fprintf(w, "last probe: %s\n", s.Probes.LastProbe.Local().Format(time.RFC3339))
	}
}
