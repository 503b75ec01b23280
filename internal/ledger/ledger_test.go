// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "data", File))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

var base = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestRecentlyRejected(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	probes := []Probe{
		{AppID: 1, RunID: "a", Stage: "viability", Outcome: OutcomeRejected, ProbedAt: base.Add(-60 * 24 * time.Hour)},
		{AppID: 2, RunID: "a", Stage: "popularity", Outcome: OutcomeRejected, ProbedAt: base.Add(-2 * time.Hour)},
		{AppID: 3, RunID: "a", Stage: "popularity", Outcome: OutcomeError, ProbedAt: base.Add(-2 * time.Hour)},
		{AppID: 4, RunID: "a", Stage: "popularity", Outcome: OutcomeRejected, ProbedAt: base.Add(-3 * time.Hour)},
		{AppID: 4, RunID: "b", Stage: "popularity", Outcome: OutcomePassed, ProbedAt: base.Add(-time.Hour)},
	}
	if err := l.Record(ctx, probes); err != nil {
		t.Fatal(err)
	}

	got, err := l.RecentlyRejected(ctx, base.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[2] {
		t.Errorf("RecentlyRejected() = %v, want only id 2", got)
	}
}

func TestRecordEmpty(t *testing.T) {
	l := testLedger(t)
	if err := l.Record(context.Background(), nil); err != nil {
		t.Errorf("Record(nil) = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	probes := []Probe{
		{AppID: 1, RunID: "r1", Stage: "viability", Outcome: OutcomeRejected, ProbedAt: base},
		{AppID: 2, RunID: "r1", Stage: "safety", Outcome: OutcomeRejected, ProbedAt: base},
		{AppID: 3, RunID: "r1", Stage: "viability", Outcome: OutcomeRejected, ProbedAt: base},
		{AppID: 4, RunID: "r2", Stage: "popularity", Outcome: OutcomePassed, ProbedAt: base.Add(time.Minute)},
		{AppID: 5, RunID: "r2", Stage: "viability", Outcome: OutcomeError, ProbedAt: base.Add(2 * time.Minute)},
		{AppID: 6, RunID: "old", Stage: "viability", Outcome: OutcomeRejected, ProbedAt: base.Add(-48 * time.Hour)},
	}
	if err := l.Record(ctx, probes); err != nil {
		t.Fatal(err)
	}

	s, err := l.Summarize(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if s.Probes != 5 || s.Passed != 1 || s.Rejected != 3 || s.Errors != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.Runs != 2 {
		t.Errorf("Runs = %d, want 2", s.Runs)
	}
	if s.ByStage["viability"] != 3 || s.ByStage["safety"] != 1 {
		t.Errorf("ByStage = %v", s.ByStage)
	}
	if !s.LastProbe.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("LastProbe = %v", s.LastProbe)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	l := testLedger(t)
	s, err := l.Summarize(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Probes != 0 || s.Runs != 0 || !s.LastProbe.IsZero() {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), File)
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record(context.Background(), []Probe{{AppID: 9, Outcome: OutcomeRejected, ProbedAt: base}}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	got, err := l.RecentlyRejected(context.Background(), base.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !got[9] {
		t.Errorf("id 9 missing after reopen: %v", got)
	}
}
