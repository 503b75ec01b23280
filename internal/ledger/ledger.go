// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records the outcome of every filter probe in SQLite. The
// harvest uses it to skip ids that were rejected recently, and the stats
// command reports rejection counts per stage.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// File is the ledger database name inside the data directory.
const File = "probes.db"

// timestamps are stored as fixed-width UTC text so they sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// Outcome classifies a probe.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeRejected Outcome = "rejected"
	// OutcomeError marks a probe that failed on a fetch error. Errors are
	// not treated as rejections when sampling.
	OutcomeError Outcome = "error"
)

// Probe is one evaluated id.
type Probe struct {
	AppID    int
	RunID    string
	Stage    string
	Outcome  Outcome
	Reason   string
	ProbedAt time.Time
}

// Ledger is the probe database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS probes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			app_id INTEGER NOT NULL,
			run_id TEXT,
			stage TEXT,
			outcome TEXT NOT NULL,
			reason TEXT,
			probed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_app_id ON probes(app_id)`,
		`CREATE INDEX IF NOT EXISTS idx_probes_probed_at ON probes(probed_at)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores probes in one transaction.
func (l *Ledger) Record(ctx context.Context, probes []Probe) error {
	if len(probes) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO probes (app_id, run_id, stage, outcome, reason, probed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range probes {
		at := p.ProbedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			p.AppID, p.RunID, p.Stage, string(p.Outcome), p.Reason, at.UTC().Format(tsLayout),
		); err != nil {
			return fmt.Errorf("inserting probe %d: %w", p.AppID, err)
		}
	}
	return tx.Commit()
}

// RecentlyRejected returns ids whose latest probe since the given time
// was a rejection. An id that later passed is not included.
func (l *Ledger) RecentlyRejected(ctx context.Context, since time.Time) (map[int]bool, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT app_id, outcome FROM probes
		 WHERE probed_at >= ? AND outcome != ?
		 ORDER BY probed_at, rowid`,
		since.UTC().Format(tsLayout), string(OutcomeError))
	if err != nil {
		return nil, fmt.Errorf("querying probes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var id int
		var outcome string
		if err := rows.Scan(&id, &outcome); err != nil {
			return nil, fmt.Errorf("scanning probe: %w", err)
		}
		if Outcome(outcome) == OutcomeRejected {
			out[id] = true
		} else {
			delete(out, id)
		}
	}
	return out, rows.Err()
}

// Summary aggregates probes recorded since a point in time.
type Summary struct {
	Runs     int
	Probes   int
	Passed   int
	Rejected int
	Errors   int
	// ByStage counts rejections and errors per pipeline stage.
	ByStage   map[string]int
	LastProbe time.Time
}

// Summarize counts probes since the given time.
func (l *Ledger) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	s := Summary{ByStage: make(map[string]int)}
	cutoff := since.UTC().Format(tsLayout)

	rows, err := l.db.QueryContext(ctx,
		`SELECT outcome, COALESCE(stage, ''), count(*) FROM probes
		 WHERE probed_at >= ? GROUP BY outcome, stage`, cutoff)
	if err != nil {
		return s, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome, stage string
		var n int
		if err := rows.Scan(&outcome, &stage, &n); err != nil {
			return s, fmt.Errorf("scanning summary: %w", err)
		}
		s.Probes += n
		switch Outcome(outcome) {
		case OutcomePassed:
			s.Passed += n
		case OutcomeRejected:
			s.Rejected += n
			s.ByStage[stage] += n
		case OutcomeError:
			s.Errors += n
			s.ByStage[stage] += n
		}
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	var last sql.NullString
	if err := l.db.QueryRowContext(ctx,
		`SELECT count(DISTINCT run_id), max(probed_at) FROM probes WHERE probed_at >= ?`, cutoff,
	).Scan(&s.Runs, &last); err != nil {
		return s, fmt.Errorf("querying runs: %w", err)
	}
	if last.Valid {
		if t, err := time.Parse(tsLayout, last.String); err == nil {
			s.LastProbe = t
		}
	}
	return s, nil
}
