package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently picked games",
	Long: `History lists the most recent picks, newest first. Picks inside the
configured exclusion window are skipped by the next pick.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of picks to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	hist, err := history.Load(dataPaths(cfg).History, cfg.Pick.HistoryMax, os.Stderr)
	if err != nil {
		return err
	}
	recent := hist.Recent(limit)
	if len(recent) == 0 {
		fmt.Println("No picks yet.")
		return nil
	}

	names := make(map[int]string)
	if recs, err := newStore(cfg, os.Stderr).List(); err == nil {
		for _, r := range recs {
			names[r.ID] = r.Name
		}
	} else {
		fmt.Fprintf(os.Stderr, "warning: reading pool: %v\n", err)
	}

	fmt.Printf("%-4s  %-8s  %s\n", "#", "AppID", "Name")
	fmt.Println(strings.Repeat("-", 60))
	for i := len(recent) - 1; i >= 0; i-- {
		id := recent[i]
		name := names[id]
		if name == "" {
			name = "(no longer pooled)"
		}
		fmt.Printf("%-4d  %-8d  %s\n", len(recent)-i, id, name)
	}
	fmt.Printf("\n%d of %d picks shown\n", len(recent), hist.Len())
	return nil
}
