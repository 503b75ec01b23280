// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the gate sleeps or the test moves it.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func fakeGate(budget int, window time.Duration) (*Gate, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := NewGate(budget, window)
	g.now = clock.now
	g.sleep = clock.sleep
	return g, clock
}

func TestGate_AllowsBudgetWithoutWaiting(t *testing.T) {
	g, clock := fakeGate(3, time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 3, g.InWindow())
}

func TestGate_DelaysRequestBeyondBudget(t *testing.T) {
	g, clock := fakeGate(3, time.Minute)
	start := clock.t

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(context.Background()))
		clock.t = clock.t.Add(10 * time.Second)
	}

	// The 4th request arrives at +30s and must wait for the oldest (at +0s)
	// to leave the window.
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, []time.Duration{30 * time.Second}, clock.sleeps)
	assert.False(t, clock.t.Before(start.Add(time.Minute)))
}

func TestGate_WindowSlides(t *testing.T) {
	g, clock := fakeGate(2, time.Minute)

	require.NoError(t, g.Wait(context.Background()))
	clock.t = clock.t.Add(45 * time.Second)
	require.NoError(t, g.Wait(context.Background()))

	// Oldest exits at +60s; the second stays counted until +105s.
	clock.t = clock.t.Add(20 * time.Second)
	assert.Equal(t, 1, g.InWindow())
	require.NoError(t, g.Wait(context.Background()))
	assert.Empty(t, clock.sleeps)
}

func TestGate_DisabledWhenBudgetZero(t *testing.T) {
	g, clock := fakeGate(0, time.Minute)
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	assert.Empty(t, clock.sleeps)

	var nilGate *Gate
	assert.NoError(t, nilGate.Wait(context.Background()))
}

func TestGate_RealClockDelay(t *testing.T) {
	window := 80 * time.Millisecond
	g := NewGate(2, window)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), window)
}

func TestGate_CancelledWhileWaiting(t *testing.T) {
	g := NewGate(1, time.Hour)
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.InWindow(), "a cancelled wait must not be counted")
}
