// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a sliding-window request budget: at most budget requests
// may start within any window. The state is owned by the Gate instance, so
// two clients never share a budget unless they share the Gate.
type Gate struct {
	mu     sync.Mutex
	budget int
	window time.Duration
	times  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate returns a Gate allowing budget requests per window. A budget of
// zero or less disables gating.
func NewGate(budget int, window time.Duration) *Gate {
	if window <= 0 {
		window = time.Minute
	}
	return &Gate{
		budget: budget,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks until a request may start and records its timestamp. When
// the window already holds budget entries it sleeps until the oldest entry
// leaves the window. It returns ctx.Err() if cancelled while waiting.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.budget <= 0 {
		return nil
	}
	for {
		g.mu.Lock()
		now := g.now()
		g.prune(now)
		if len(g.times) < g.budget {
			g.times = append(g.times, now)
			g.mu.Unlock()
			return nil
		}
		wait := g.times[0].Add(g.window).Sub(now)
		g.mu.Unlock()

		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InWindow reports how many requests are currently counted.
func (g *Gate) InWindow() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.times)
}

func (g *Gate) prune(now time.Time) {
	i := 0
	for i < len(g.times) && now.Sub(g.times[i]) >= g.window {
		i++
	}
	if i > 0 {
		g.times = append(g.times[:0], g.times[i:]...)
	}
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
