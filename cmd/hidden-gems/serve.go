package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/harvest"
	"github.com/pdiddy/hidden-gems/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run harvest and pick on cron schedules",
	Long: `Serve stays in the foreground and runs harvest on schedule.harvest and
pick on schedule.pick, both interpreted in schedule.timezone. Harvest itself
skips work while the pool is fresh, so a frequent schedule is cheap.

Stop with Ctrl-C; running jobs are cancelled and survivors are kept.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("run-now", false, "run harvest then pick once at startup")
	serveCmd.Flags().Duration("job-timeout", scheduler.DefaultTimeout, "maximum duration of a single job")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runNow, _ := cmd.Flags().GetBool("run-now")
	timeout, _ := cmd.Flags().GetDuration("job-timeout")
	ctx := cmd.Context()
	c := cfg

	s, err := scheduler.New(c.Schedule.Timezone, timeout, os.Stderr)
	if err != nil {
		return err
	}

	harvestJob := func(ctx context.Context) error {
		_, err := runHarvest(ctx, c, harvest.Options{}, os.Stdout)
		return err
	}
	pickJob := func(ctx context.Context) error {
		return runPick(ctx, c, pickOptions{}, os.Stdout)
	}
	if err := s.AddJob("harvest", c.Schedule.Harvest, harvestJob); err != nil {
		return err
	}
	if err := s.AddJob("pick", c.Schedule.Pick, pickJob); err != nil {
		return err
	}

	s.Start(ctx)
	if runNow {
		if err := s.RunNow("harvest", harvestJob); err != nil {
			fmt.Fprintf(os.Stderr, "harvest: %v\n", err)
		}
		if err := s.RunNow("pick", pickJob); err != nil {
			fmt.Fprintf(os.Stderr, "pick: %v\n", err)
		}
	}
	for _, j := range s.Jobs() {
		fmt.Printf("%-8s next run %s\n", j.Name, j.NextRun.Format(time.RFC1123))
	}

	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}
