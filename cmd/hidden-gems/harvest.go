package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/filter"
	"github.com/pdiddy/hidden-gems/internal/harvest"
	"github.com/pdiddy/hidden-gems/internal/ledger"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Refresh the candidate pool from the Steam catalog",
	Long: `Harvest checks whether the candidate pool is stale or too small. When it
is, harvest loads the catalog index (from cache when fresh), samples a random
subset, probes each id through the filter pipeline, and appends survivors to
the pool. Only one harvest runs at a time per data directory.

Interrupting a harvest keeps the survivors found so far.`,
	RunE: runHarvestCmd,
}

func init() {
	harvestCmd.Flags().Bool("force", false, "refresh even when the pool is fresh")
	harvestCmd.Flags().Bool("rebuild", false, "re-probe the existing pool and replace it with the survivors")
	harvestCmd.Flags().Int("max-probe", 0, "maximum ids to probe this run (default from config)")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvestCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	rebuild, _ := cmd.Flags().GetBool("rebuild")
	if n, _ := cmd.Flags().GetInt("max-probe"); n > 0 {
		cfg.Harvest.MaxProbe = n
	}

	_, err := runHarvest(cmd.Context(), cfg, harvest.Options{Force: force, Rebuild: rebuild}, os.Stdout)
	return err
}

// runHarvest wires the catalog, filter pipeline, pool and probe ledger and
// runs one locked harvest cycle.
func runHarvest(ctx context.Context, c types.Config, opts harvest.Options, w io.Writer) (harvest.Summary, error) {
	if err := ensureDataDir(c); err != nil {
		return harvest.Summary{}, err
	}
	p := dataPaths(c)

	led, err := ledger.Open(p.Ledger)
	if err != nil {
		return harvest.Summary{}, err
	}
	defer led.Close()

	steam := newSteam(c, w)
	pipeline := filter.New(steam, nil, c.Filter)
	h := harvest.New(steam, pipeline, newStore(c, w), led, c.Harvest, w)

	sum, err := h.RunLocked(ctx, p.Lock, opts)
	if err != nil {
		return sum, err
	}
	if !sum.Skipped {
		printRejections(w, sum.Rejected)
	}
	return sum, nil
}

func printRejections(w io.Writer, rejected map[filter.Stage]int) {
	if len(rejected) == 0 {
		return
	}
	stages := make([]string, 0, len(rejected))
	for s := range rejected {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)
	fmt.Fprintf(w, "rejected:")
	for _, s := range stages {
		fmt.Fprintf(w, " %s=%d", s, rejected[filter.Stage(s)])
	}
	fmt.Fprintln(w)
}
