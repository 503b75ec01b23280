// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest runs one harvest cycle: decide whether the candidate pool
// is stale, sample the catalog, probe the sample through the filter
// pipeline, and persist survivors.
//
//	IDLE → CHECK_STALENESS → SKIP → IDLE
//	IDLE → CHECK_STALENESS → REFRESH_INDEX → SAMPLE → FILTER_LOOP → PERSIST → IDLE
package harvest

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/hidden-gems/internal/filter"
	"github.com/pdiddy/hidden-gems/internal/ledger"
	"github.com/pdiddy/hidden-gems/internal/lock"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// State is a step of the harvest cycle.
type State string

const (
	StateIdle           State = "IDLE"
	StateCheckStaleness State = "CHECK_STALENESS"
	StateSkip           State = "SKIP"
	StateRefreshIndex   State = "REFRESH_INDEX"
	StateSample         State = "SAMPLE"
	StateFilterLoop     State = "FILTER_LOOP"
	StatePersist        State = "PERSIST"
)

// Catalog lists every catalog id.
type Catalog interface {
	Index(ctx context.Context) ([]types.CatalogEntry, error)
}

// Evaluator runs the filter pipeline for one id.
type Evaluator interface {
	Evaluate(ctx context.Context, id int) (types.CandidateRecord, filter.Verdict)
}

// Store is the candidate store.
type Store interface {
	List() ([]types.CandidateRecord, error)
	AppendAll(recs []types.CandidateRecord) (int, error)
	Rewrite(recs []types.CandidateRecord) error
	Meta() (types.PoolMeta, error)
	Touch() (types.PoolMeta, error)
}

// ProbeLog records probe outcomes and reports recent rejections.
type ProbeLog interface {
	Record(ctx context.Context, probes []ledger.Probe) error
	RecentlyRejected(ctx context.Context, since time.Time) (map[int]bool, error)
}

// Options modify a single run.
type Options struct {
	// Force refreshes even when the pool is fresh and large enough.
	Force bool

	// Rebuild re-probes the current pool ahead of the new sample and
	// replaces the store with the survivors. Implies Force.
	Rebuild bool
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Trace     []State
	Skipped   bool
	Reason    string
	IndexSize int
	Sampled   int
	Probed    int
	Passed    int
	Added     int
	NotFound  int
	Errors    int
	Rejected  map[filter.Stage]int
	PoolSize  int
	Cancelled bool
}

// Harvester holds the collaborators of a harvest cycle.
type Harvester struct {
	Catalog Catalog
	Filter  Evaluator
	Store   Store
	// Ledger is optional.
	Ledger ProbeLog
	Config types.HarvestConfig
	Log    io.Writer
	RunID  string

	// OnProbe, when set, is called after every probe.
	OnProbe func()

	rng *rand.Rand
	now func() time.Time
}

// New returns a harvester with a clock-seeded random source.
func New(c Catalog, f Evaluator, s Store, l ProbeLog, cfg types.HarvestConfig, w io.Writer) *Harvester {
	seed := uint64(time.Now().UnixNano())
	return &Harvester{
		Catalog: c,
		Filter:  f,
		Store:   s,
		Ledger:  l,
		Config:  cfg,
		Log:     w,
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		now:     time.Now,
	}
}

// Run executes one cycle. Adding nothing is not an error. If the catalog
// index cannot be obtained the run aborts with nothing written. When ctx is
// cancelled during probing, survivors found so far are persisted and
// ctx.Err() is returned.
func (h *Harvester) Run(ctx context.Context, opts Options) (sum Summary, err error) {
	sum = Summary{RunID: h.RunID, Rejected: make(map[filter.Stage]int)}
	sum.Trace = append(sum.Trace, StateIdle)
	defer func() { sum.Trace = append(sum.Trace, StateIdle) }()

	// CHECK_STALENESS
	sum.Trace = append(sum.Trace, StateCheckStaleness)
	current, err := h.Store.List()
	if err != nil {
		return sum, fmt.Errorf("reading pool: %w", err)
	}
	sum.PoolSize = len(current)
	meta, err := h.Store.Meta()
	if err != nil {
		h.logf("warning: reading pool meta: %v\n", err)
	}
	reason := h.staleness(meta, len(current), opts)
	if reason == "" {
		sum.Trace = append(sum.Trace, StateSkip)
		sum.Skipped = true
		sum.Reason = "pool is fresh"
		h.logf("harvest: pool fresh (%d candidates, refreshed %s); skipping\n",
			len(current), meta.LastRefresh.Format(time.RFC3339))
		return sum, nil
	}
	sum.Reason = reason
	h.logf("harvest: refreshing (%s)\n", reason)

	// REFRESH_INDEX
	sum.Trace = append(sum.Trace, StateRefreshIndex)
	index, err := h.Catalog.Index(ctx)
	if err != nil {
		return sum, fmt.Errorf("loading catalog index: %w", err)
	}
	sum.IndexSize = len(index)

	// SAMPLE
	sum.Trace = append(sum.Trace, StateSample)
	sample := h.sample(ctx, index, current, opts)
	sum.Sampled = len(sample)
	h.logf("harvest: sampled %d of %d catalog ids\n", len(sample), len(index))

	// FILTER_LOOP
	sum.Trace = append(sum.Trace, StateFilterLoop)
	limit := h.Config.MaxProbe
	if opts.Rebuild && limit > 0 {
		limit += len(current)
	}
	survivors, probes := h.probe(ctx, sample, limit, &sum)
	if h.Ledger != nil && len(probes) > 0 {
		if err := h.Ledger.Record(context.WithoutCancel(ctx), probes); err != nil {
			h.logf("warning: recording probes: %v\n", err)
		}
	}

	// PERSIST
	sum.Trace = append(sum.Trace, StatePersist)
	if sum.Cancelled {
		added, err := h.Store.AppendAll(survivors)
		sum.Added = added
		if err != nil {
			return sum, fmt.Errorf("persisting after cancel: %w", err)
		}
		h.logf("harvest: cancelled after %d probes; kept %d new candidates\n", sum.Probed, added)
		return sum, ctx.Err()
	}

	if opts.Rebuild {
		if err := h.Store.Rewrite(survivors); err != nil {
			return sum, fmt.Errorf("rewriting pool: %w", err)
		}
		sum.Added = len(survivors)
	} else {
		added, err := h.Store.AppendAll(survivors)
		if err != nil {
			return sum, fmt.Errorf("appending to pool: %w", err)
		}
		sum.Added = added
	}
	m, err := h.Store.Touch()
	if err != nil {
		return sum, fmt.Errorf("updating pool meta: %w", err)
	}
	sum.PoolSize = m.Size

	if sum.Added == 0 && !opts.Rebuild {
		h.logf("harvest: no new candidates (no-op)\n")
	}
	h.logf("\nprobed: %d, passed: %d, added: %d, not found: %d, errors: %d, pool: %d\n",
		sum.Probed, sum.Passed, sum.Added, sum.NotFound, sum.Errors, sum.PoolSize)
	return sum, nil
}

// staleness returns why a refresh is needed, or "" when the pool is fresh.
func (h *Harvester) staleness(meta types.PoolMeta, size int, opts Options) string {
	switch {
	case opts.Rebuild:
		return "rebuild requested"
	case opts.Force || h.Config.Force:
		return "forced"
	case size < h.Config.PoolMinSize:
		return fmt.Sprintf("pool size %d below %d", size, h.Config.PoolMinSize)
	case meta.LastRefresh.IsZero():
		return "never refreshed"
	case h.Config.PoolTTL > 0 && h.now().Sub(meta.LastRefresh) > h.Config.PoolTTL:
		return fmt.Sprintf("last refresh %s ago", h.now().Sub(meta.LastRefresh).Round(time.Minute))
	}
	return ""
}

// sample draws up to SampleCap ids at random, skipping pooled ids and ids
// rejected within RejectTTL. In rebuild mode the pooled ids come first.
func (h *Harvester) sample(ctx context.Context, index []types.CatalogEntry, current []types.CandidateRecord, opts Options) []int {
	pooled := make(map[int]bool, len(current))
	for _, r := range current {
		pooled[r.ID] = true
	}

	var rejected map[int]bool
	if h.Ledger != nil && h.Config.RejectTTL > 0 {
		var err error
		rejected, err = h.Ledger.RecentlyRejected(ctx, h.now().Add(-h.Config.RejectTTL))
		if err != nil {
			h.logf("warning: reading probe ledger: %v\n", err)
		}
	}

	var pool []int
	for _, e := range index {
		if pooled[e.ID] || rejected[e.ID] {
			continue
		}
		pool = append(pool, e.ID)
	}
	h.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	capN := h.Config.SampleCap
	if capN <= 0 || capN > len(pool) {
		capN = len(pool)
	}
	sample := pool[:capN]

	if opts.Rebuild {
		ids := make([]int, 0, len(current)+len(sample))
		for _, r := range current {
			ids = append(ids, r.ID)
		}
		sample = append(ids, sample...)
	}
	return sample
}

// probe evaluates ids until limit probes have run or ctx is cancelled.
// A limit of zero or less probes every id.
func (h *Harvester) probe(ctx context.Context, ids []int, limit int, sum *Summary) ([]types.CandidateRecord, []ledger.Probe) {
	var survivors []types.CandidateRecord
	var probes []ledger.Probe

	for _, id := range ids {
		if limit > 0 && sum.Probed >= limit {
			break
		}
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}

		rec, v := h.Filter.Evaluate(ctx, id)
		if v.Err != nil && ctx.Err() != nil {
			// The probe was cut short; it is neither a pass nor a rejection.
			sum.Cancelled = true
			break
		}
		sum.Probed++

		p := ledger.Probe{AppID: id, RunID: h.RunID, Stage: string(v.Stage), Reason: v.Reason, ProbedAt: h.now()}
		switch {
		case v.Passed:
			p.Outcome = ledger.OutcomePassed
			sum.Passed++
			survivors = append(survivors, rec)
			h.logf("passed   %d %s (%d reviews)\n", id, rec.Name, rec.TotalReviews)
		case v.NotFound():
			p.Outcome = ledger.OutcomeRejected
			sum.NotFound++
			sum.Rejected[v.Stage]++
		case v.Err != nil:
			p.Outcome = ledger.OutcomeError
			sum.Errors++
			h.logf("failed   %d: %v\n", id, v.Err)
		default:
			p.Outcome = ledger.OutcomeRejected
			sum.Rejected[v.Stage]++
		}
		probes = append(probes, p)

		if h.OnProbe != nil {
			h.OnProbe()
		}
	}
	return survivors, probes
}

func (h *Harvester) logf(format string, args ...any) {
	if h.Log == nil {
		return
	}
	fmt.Fprintf(h.Log, format, args...)
}

// RunLocked acquires the harvest lock at lockPath, runs one cycle under
// the lock's run id, and releases the lock. The lock is refreshed as
// probes complete.
func (h *Harvester) RunLocked(ctx context.Context, lockPath string, opts Options) (Summary, error) {
	l, err := lock.Acquire(lockPath, h.Config.LockTTL)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := l.Release(); err != nil {
			h.logf("warning: releasing lock: %v\n", err)
		}
	}()

	h.RunID = l.RunID
	prev := h.OnProbe
	h.OnProbe = func() {
		if prev != nil {
			prev()
		}
		if err := l.Refresh(); err != nil {
			h.logf("warning: refreshing lock: %v\n", err)
		}
	}
	defer func() { h.OnProbe = prev }()

	return h.Run(ctx, opts)
}
