package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/hidden-gems/internal/history"
	"github.com/pdiddy/hidden-gems/internal/picker"
	"github.com/pdiddy/hidden-gems/internal/render"
	"github.com/pdiddy/hidden-gems/internal/score"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick one game from the pool and write a post",
	Long: `Pick draws one candidate from the pool, skipping recently picked games,
verifies its store detail (from cache when fresh), and renders a Markdown
post into the posts directory. When the pool is empty a fallback post is
written instead.

Candidates with fewer reviews are favored unless --uniform is given.`,
	RunE: runPickCmd,
}

func init() {
	pickCmd.Flags().Bool("uniform", false, "draw uniformly instead of favoring less-reviewed games")
	pickCmd.Flags().Bool("dry-run", false, "print the post instead of writing it; history is not updated")
	pickCmd.Flags().Bool("no-prose", false, "skip prose generation and use extractive text")
	pickCmd.Flags().String("posts-dir", "", "directory receiving posts (default from config)")

	rootCmd.AddCommand(pickCmd)
}

// pickOptions modify one pick run.
type pickOptions struct {
	Uniform bool
	DryRun  bool
	NoProse bool
}

func runPickCmd(cmd *cobra.Command, args []string) error {
	var opts pickOptions
	opts.Uniform, _ = cmd.Flags().GetBool("uniform")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.NoProse, _ = cmd.Flags().GetBool("no-prose")
	if dir := flagString(cmd, "posts-dir"); dir != "" {
		cfg.Pick.PostsDir = dir
	}
	return runPick(cmd.Context(), cfg, opts, os.Stdout)
}

// runPick performs one pick: choose, verify, render, record.
func runPick(ctx context.Context, c types.Config, opts pickOptions, w io.Writer) error {
	if err := ensureDataDir(c); err != nil {
		return err
	}
	p := dataPaths(c)
	store := newStore(c, w)
	steam := newSteam(c, w)

	prose := newSummarizer(c, w)
	if opts.NoProse {
		prose = nil
	}
	r, err := render.New(prose, c.Pick.PostsDir, c.Pick.Timezone)
	if err != nil {
		return err
	}
	r.Cache = newCache(c)

	sh, err := store.Shape()
	if err != nil {
		return fmt.Errorf("reading pool: %w", err)
	}
	hist, err := history.Load(p.History, c.Pick.HistoryMax, w)
	if err != nil {
		return err
	}

	details := make(map[int]types.ItemDetail)
	verify := func(ctx context.Context, id int) error {
		d, err := steam.Detail(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "skipped  %d: %v\n", id, err)
			return err
		}
		details[id] = d
		return nil
	}

	useWeights := c.Pick.UseWeights && !opts.Uniform
	id, err := picker.New(nil).PickVerified(ctx, sh, hist.Exclusion(c.Pick.ExcludeRecent), useWeights, verify)
	if err != nil {
		// Empty pools and failed verification still publish a post.
		if !errors.Is(err, context.Canceled) {
			if werr := writePost(r, r.Fallback(""), opts.DryRun, w); werr != nil {
				return errors.Join(err, werr)
			}
		}
		return fmt.Errorf("picking: %w", err)
	}

	d := details[id]
	reviews, err := steam.Reviews(ctx, id)
	if err != nil {
		fmt.Fprintf(w, "warning: review summary for %d: %v\n", id, err)
	}
	var snippets []string
	if c.Pick.SnippetCount > 0 && !opts.NoProse {
		snippets, err = steam.ReviewSnippets(ctx, id, c.Pick.SnippetCount)
		if err != nil {
			fmt.Fprintf(w, "warning: review snippets for %d: %v\n", id, err)
		}
	}

	rec := pooledRecord(sh.Normalize(), id)
	if rec.ID == 0 || rec.TotalReviews == 0 {
		rec = types.NewCandidateRecord(id, d, reviews)
	}
	gem := score.FromConfig(c.Score, c.Filter).Score(rec)

	post, err := r.Render(ctx, render.Input{AppID: id, Detail: d, Reviews: reviews, Snippets: snippets, GemScore: gem})
	if err != nil {
		return err
	}
	if err := writePost(r, post, opts.DryRun, w); err != nil {
		return err
	}
	fmt.Fprintf(w, "picked   %d %s (GemScore %.1f)\n", id, post.Title, gem)

	if opts.DryRun {
		return nil
	}
	hist.Add(id)
	if err := hist.Save(); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

func writePost(r *render.Renderer, post render.Post, dryRun bool, w io.Writer) error {
	if dryRun {
		_, err := io.WriteString(w, post.Content)
		return err
	}
	path, err := r.Write(post)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote    %s\n", path)
	return nil
}

func pooledRecord(recs []types.CandidateRecord, id int) types.CandidateRecord {
	for _, r := range recs {
		if r.ID == id {
			return r
		}
	}
	return types.CandidateRecord{}
}
