// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes the daily pick as a Markdown post with Pelican
// front matter. Prose sections are generated concurrently and fall back to
// fixed text when generation is unavailable.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/hidden-gems/internal/cache"
	"github.com/pdiddy/hidden-gems/internal/fsutil"
	"github.com/pdiddy/hidden-gems/internal/inference"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

const (
	category   = "Games"
	dateLayout = "2006-01-02 15:04"
	slugLayout = "2006-01-02-150405"
	storeURL   = "https://store.steampowered.com/app/%d/"

	// snippetChars caps the review text handed to the prose backend.
	snippetChars = 900
)

const systemNote = "You write compact, connected editorial prose for a games website. " +
	"Use plain, neutral language. Avoid marketing tone and bullet points.\n\n"

// Section is one prose block of a post.
type Section struct {
	// Key names the section in the prose cache.
	Key       string
	Heading   string
	Prompt    string
	MaxTokens int
	// FromDescription makes the extractive fallback use the store
	// description instead of the fixed Fallback text.
	FromDescription bool
	Fallback        string
}

// Sections are rendered in this order.
var Sections = []Section{
	{
		Key:             "overview",
		Heading:         "Overview",
		Prompt:          "Write a 2-4 sentence neutral overview of the game based on the description and review snippets. Explain what you do in the game and its key mechanics without hype.",
		MaxTokens:       220,
		FromDescription: true,
		Fallback:        "Overview not available.",
	},
	{
		Key:       "why",
		Heading:   "Why it's a hidden gem",
		Prompt:    "In 1-2 sentences, explain why this could be a hidden gem for some players, focusing on specific qualities such as mechanics, mood, art or depth.",
		MaxTokens: 140,
		Fallback:  "Well-liked niche qualities and a focused premise can make this one stand out.",
	},
	{
		Key:       "likes",
		Heading:   "What players like",
		Prompt:    "Summarize in 2-3 sentences what players like about this game. Write connected prose, no lists. Be specific but concise.",
		MaxTokens: 160,
		Fallback:  "Players respond positively to its core loop and presentation.",
	},
	{
		Key:       "dislikes",
		Heading:   "What players don't like",
		Prompt:    "Summarize in 2-3 sentences what players criticize about this game. Write connected prose, no lists. Be specific but concise.",
		MaxTokens: 160,
		Fallback:  "Criticism tends to focus on rough edges and limited depth.",
	},
}

// Input is everything known about the picked item.
type Input struct {
	AppID    int
	Detail   types.ItemDetail
	Reviews  types.ReviewAggregate
	Snippets []string
	GemScore float64
}

// Post is a rendered post ready to be written.
type Post struct {
	Title    string
	Slug     string
	FileName string
	Content  string
}

// Renderer builds posts and writes them into PostsDir.
type Renderer struct {
	Summarizer inference.Summarizer
	PostsDir   string
	Location   *time.Location

	// Cache keeps generated prose per item and section so a repeat pick
	// does not spend inference quota again. Nil disables it.
	Cache *cache.Cache

	now func() time.Time
}

// New returns a renderer for the named time zone. An empty zone means UTC.
func New(s inference.Summarizer, postsDir, timezone string) (*Renderer, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("loading time zone %q: %w", timezone, err)
		}
	}
	return &Renderer{Summarizer: s, PostsDir: postsDir, Location: loc, now: time.Now}, nil
}

// Render builds the post for in. Prose generation never fails the render.
func (r *Renderer) Render(ctx context.Context, in Input) (Post, error) {
	if in.AppID <= 0 {
		in.AppID = in.Detail.AppID
	}
	name := in.Detail.Name
	if name == "" {
		name = fmt.Sprintf("App %d", in.AppID)
	}

	prose, err := r.prose(ctx, in)
	if err != nil {
		return Post{}, err
	}

	now := r.now().In(r.Location)
	stamp := now.Format(slugLayout)
	p := Post{
		Title:    name,
		Slug:     fmt.Sprintf("%d-%s", in.AppID, stamp),
		FileName: stamp + "-auto.md",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", name)
	fmt.Fprintf(&b, "Date: %s\n", now.Format(dateLayout))
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Tags: auto, steam\n")
	fmt.Fprintf(&b, "Slug: %s\n", p.Slug)
	if in.Detail.HeaderImage != "" {
		fmt.Fprintf(&b, "Cover: %s\n", in.Detail.HeaderImage)
		fmt.Fprintf(&b, "\n![](%s)\n", in.Detail.HeaderImage)
	}
	fmt.Fprintf(&b, "\n%s\n", MetaBlock(name, in))
	for i, s := range Sections {
		fmt.Fprintf(&b, "\n### %s\n%s\n", s.Heading, prose[i])
	}
	fmt.Fprintf(&b, "\n*Auto-generated; daily pick from a cached candidate pool refreshed weekly.*\n")

	p.Content = b.String()
	return p, nil
}

// prose generates every section concurrently.
func (r *Renderer) prose(ctx context.Context, in Input) ([]string, error) {
	short := clean(in.Detail.ShortDescription, 500)
	corpus := Corpus(short, in.Snippets)

	out := make([]string, len(Sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range Sections {
		g.Go(func() error {
			source := ""
			if s.FromDescription {
				source = short
			}
			key := fmt.Sprintf("%d_%s", in.AppID, s.Key)
			if text, ok := r.cachedProse(key); ok {
				out[i] = text
				return nil
			}
			prompt := systemNote + s.Prompt + "\n\n=== INPUT ===\n" + corpus + "\n=== END ==="
			text, generated := inference.BestEffort(gctx, r.Summarizer, prompt, source, s.MaxTokens)
			if generated && r.Cache != nil {
				// A failed write only costs a regeneration next time.
				_ = r.Cache.Put(cache.KindSummary, key, text)
			}
			if text == "" {
				text = s.Fallback
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Renderer) cachedProse(key string) (string, bool) {
	if r.Cache == nil {
		return "", false
	}
	var text string
	ok, err := r.Cache.Get(cache.KindSummary, key, &text)
	if err != nil || !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// MetaBlock returns the link line and bullet list shown under the cover.
func MetaBlock(name string, in Input) string {
	review := "Reviews: n/a"
	switch desc := in.Reviews.ReviewScoreDesc; {
	case desc != "" && in.Reviews.TotalReviews > 0:
		review = fmt.Sprintf("Reviews: **%s** (%s total)", desc, thousands(in.Reviews.TotalReviews))
	case desc != "":
		review = fmt.Sprintf("Reviews: **%s**", desc)
	}

	release := in.Detail.ReleaseDate.Date
	if release == "" {
		release = "n/a"
	}
	genres := in.Detail.GenreNames()
	if len(genres) > 5 {
		genres = genres[:5]
	}
	genreList := strings.Join(genres, ", ")
	if genreList == "" {
		genreList = "n/a"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**[%s]("+storeURL+")**\n\n", name, in.AppID)
	fmt.Fprintf(&b, "- %s\n", review)
	fmt.Fprintf(&b, "- Release: **%s**\n", release)
	fmt.Fprintf(&b, "- Genres: **%s**\n", genreList)
	fmt.Fprintf(&b, "- Price: **%s**\n", in.Detail.PriceLabel())
	fmt.Fprintf(&b, "- Steam AppID: `%d`\n", in.AppID)
	fmt.Fprintf(&b, "- GemScore: **%.1f**", in.GemScore)
	return b.String()
}

// Fallback returns the post written when no pick could be made.
func (r *Renderer) Fallback(reason string) Post {
	now := r.now().In(r.Location)
	stamp := now.Format(slugLayout)
	if reason == "" {
		reason = "Could not pick a game this run. Will try again next time."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: No pick for %s\n", now.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Date: %s\n", now.Format(dateLayout))
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Tags: auto\n")
	fmt.Fprintf(&b, "Slug: fallback-%s\n", stamp)
	fmt.Fprintf(&b, "\n%s\n", reason)

	return Post{
		Title:    "No pick",
		Slug:     "fallback-" + stamp,
		FileName: stamp + "-auto.md",
		Content:  b.String(),
	}
}

// Write stores p in PostsDir and returns its path.
func (r *Renderer) Write(p Post) (string, error) {
	if err := os.MkdirAll(r.PostsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating posts directory: %w", err)
	}
	path := filepath.Join(r.PostsDir, p.FileName)
	if err := fsutil.WriteFileAtomic(path, []byte(p.Content), 0o644); err != nil {
		return "", fmt.Errorf("writing post: %w", err)
	}
	return path, nil
}

// Corpus is the bounded input shared by every prose prompt.
func Corpus(description string, snippets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Description:\n%s\n", strings.TrimSpace(description))
	if sample := SampleReviews(snippets, snippetChars); sample != "" {
		fmt.Fprintf(&b, "\nSelected Review Snippets:\n%s", sample)
	}
	return b.String()
}

// SampleReviews joins cleaned snippets, one per line, until capChars.
func SampleReviews(snippets []string, capChars int) string {
	var out []string
	total := 0
	for _, s := range snippets {
		s = clean(s, 300)
		if s == "" {
			continue
		}
		if total+len(s)+1 > capChars {
			break
		}
		out = append(out, s)
		total += len(s) + 1
	}
	return strings.Join(out, "\n")
}

func clean(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return strings.TrimSpace(string(r[:n-1])) + "…"
	}
	return s
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
