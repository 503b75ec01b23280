// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer shared with cron goroutines.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New("Nowhere/Land", 0, &syncBuffer{})
	assert.Error(t, err)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s, err := New("UTC", 0, &syncBuffer{})
	require.NoError(t, err)
	assert.Error(t, s.AddJob("bad", "not a schedule", func(context.Context) error { return nil }))
	assert.Empty(t, s.Jobs())
}

func TestJobs(t *testing.T) {
	buf := &syncBuffer{}
	s, err := New("UTC", 0, buf)
	require.NoError(t, err)

	noop := func(context.Context) error { return nil }
	require.NoError(t, s.AddJob("pick", "0 9 * * *", noop))
	require.NoError(t, s.AddJob("harvest", "0 3 * * 1", noop))
	require.NoError(t, s.AddJob("pick", "30 9 * * *", noop))

	s.Start(context.Background())
	defer s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "harvest", jobs[0].Name)
	assert.Equal(t, "pick", jobs[1].Name)
	assert.Equal(t, "30 9 * * *", jobs[1].Schedule)
	assert.False(t, jobs[1].NextRun.IsZero())

	s.RemoveJob("pick")
	assert.Len(t, s.Jobs(), 1)
	assert.Contains(t, buf.String(), "[scheduler] added job harvest")
	assert.Contains(t, buf.String(), "removed job pick")
}

func TestRunNow(t *testing.T) {
	s, err := New("UTC", 50*time.Millisecond, &syncBuffer{})
	require.NoError(t, err)

	var deadline bool
	err = s.RunNow("probe", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.True(t, deadline)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow("fail", func(context.Context) error { return boom }), boom)

	err = s.RunNow("panic", func(context.Context) error { panic("bad") })
	assert.ErrorContains(t, err, "panicked")
}

func TestScheduledRun(t *testing.T) {
	buf := &syncBuffer{}
	s, err := New("UTC", time.Second, buf)
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(buf.String()), []byte("job tick completed"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_CancelReachesJobs(t *testing.T) {
	s, err := New("UTC", time.Minute, &syncBuffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	defer s.Stop()
	cancel()

	err = s.RunNow("after-cancel", func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
}
