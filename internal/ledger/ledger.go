// Package ledger keeps per-scenario progress records and the aggregate
// totals derived from them. Totals are updated incrementally by
// MergeSubmission so that replaying the same result never counts twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrInvalidScore is returned for negative scores or a score above the
	// maximum; nothing is merged
	ErrInvalidScore = errors.New("invalid score")

	// ErrPersist wraps storage failures. The in-memory ledger is already
	// updated when it is returned.
	ErrPersist = errors.New("persist ledger")
)

// Record is the progress of a single scenario
type Record struct {
	ScenarioID   string     `json:"scenario_id"`
	Completed    bool       `json:"completed"`
	BestScore    int        `json:"best_score"`
	MaxScore     int        `json:"max_score"`
	Attempts     int        `json:"attempts"`
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`
	LastSolution string     `json:"last_solution,omitempty"`
}

// Totals are the aggregates across all records
type Totals struct {
	TotalPoints    int       `json:"total_points"`
	CompletedCount int       `json:"completed_count"`
	LastActivity   time.Time `json:"last_activity"`
	Scenarios      int       `json:"scenarios"`
}

// MergeOutcome describes what a merge changed
type MergeOutcome struct {
	Record        Record
	Credited      int
	NewCompletion bool
	Totals        Totals
}

// Persister writes ledger snapshots to durable storage
type Persister interface {
	Persist(ctx context.Context, snap Snapshot) error
}

// Option configures a Ledger
type Option func(*Ledger)

// WithPersister flushes a snapshot after every mutation
func WithPersister(p Persister) Option {
	return func(l *Ledger) { l.persister = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// Ledger is the progress state container. All methods are safe for
// concurrent use; each mutation runs to completion under one lock.
type Ledger struct {
	mu             sync.Mutex
	records        map[string]Record
	totalPoints    int
	completedCount int
	lastActivity   time.Time
	generation     uint64

	// flushMu orders snapshot writes; flushed is the newest generation written
	flushMu sync.Mutex
	flushed uint64

	persister Persister
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		records: make(map[string]Record),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastActivity = l.now().UTC()
	return l
}

// CheckScore returns ErrInvalidScore unless 0 <= score <= maxScore
func CheckScore(score, maxScore int) error {
	if score < 0 || maxScore < 0 || score > maxScore {
		return fmt.Errorf("%w: score %d of %d", ErrInvalidScore, score, maxScore)
	}
	return nil
}

// MergeSubmission folds a checker result into the record for id.
// solution becomes the record's draft.
func (l *Ledger) MergeSubmission(ctx context.Context, id string, score, maxScore int, solution string) (MergeOutcome, error) {
	if err := CheckScore(score, maxScore); err != nil {
		return MergeOutcome{}, err
	}

	l.mu.Lock()
	now := l.now().UTC()

	record, ok := l.records[id]
	if !ok {
		record = Record{ScenarioID: id}
	}
	prevBest := record.BestScore

	isNewCompletion := score == maxScore && !record.Completed
	isBetterScore := score > prevBest

	record.Completed = record.Completed || score == maxScore
	record.BestScore = max(score, prevBest)
	record.MaxScore = maxScore
	record.Attempts++
	record.LastAttempt = &now
	record.LastSolution = solution

	// A fresh record counts as best score 0, so partial credit is granted
	// once and completion only adds the remainder.
	credited := 0
	if isNewCompletion || isBetterScore {
		credited = max(0, score-prevBest)
	}
	l.totalPoints += credited
	if isNewCompletion {
		l.completedCount++
	}

	l.records[id] = record
	l.lastActivity = now

	outcome := MergeOutcome{
		Record:        record,
		Credited:      credited,
		NewCompletion: isNewCompletion,
		Totals:        l.totalsLocked(),
	}
	snap, gen := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.Info("submission merged",
		"scenario_id", id,
		"score", score,
		"max_score", maxScore,
		"credited", credited,
		"new_completion", isNewCompletion,
		"attempts", record.Attempts,
	)

	return outcome, l.flush(ctx, snap, gen)
}

// SaveDraft stores content as the draft for id, creating an empty record
// when needed. Scores, attempts and totals are left alone.
func (l *Ledger) SaveDraft(ctx context.Context, id, content string) error {
	l.mu.Lock()
	record, ok := l.records[id]
	if !ok {
		record = Record{ScenarioID: id}
	}
	record.LastSolution = content
	l.records[id] = record
	snap, gen := l.snapshotLocked()
	l.mu.Unlock()

	return l.flush(ctx, snap, gen)
}

// LoadDraft returns the saved draft for id. An empty draft counts as none.
func (l *Ledger) LoadDraft(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[id]
	if !ok || record.LastSolution == "" {
		return "", false
	}
	return record.LastSolution, true
}

// Record returns a copy of the record for id
func (l *Ledger) Record(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[id]
	return record, ok
}

// IsCompleted reports whether id has ever reached full score
func (l *Ledger) IsCompleted(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.records[id].Completed
}

// Totals returns the current aggregates
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totalsLocked()
}

// Snapshot returns a deep copy of the ledger in its serialized shape
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, _ := l.snapshotLocked()
	return snap
}

func (l *Ledger) totalsLocked() Totals {
	return Totals{
		TotalPoints:    l.totalPoints,
		CompletedCount: l.completedCount,
		LastActivity:   l.lastActivity,
		Scenarios:      len(l.records),
	}
}

func (l *Ledger) snapshotLocked() (Snapshot, uint64) {
	l.generation++
	records := make(map[string]Record, len(l.records))
	for id, r := range l.records {
		records[id] = r
	}
	return Snapshot{
		SchemaVersion:  SchemaVersion,
		Scenarios:      records,
		TotalPoints:    l.totalPoints,
		CompletedCount: l.completedCount,
		LastActivity:   l.lastActivity,
	}, l.generation
}

// restore replaces the in-memory state with snap
func (l *Ledger) restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = make(map[string]Record, len(snap.Scenarios))
	for id, r := range snap.Scenarios {
		r.ScenarioID = id
		l.records[id] = r
	}
	l.totalPoints = snap.TotalPoints
	l.completedCount = snap.CompletedCount
	if !snap.LastActivity.IsZero() {
		l.lastActivity = snap.LastActivity
	}

	if n := countCompleted(l.records); n != l.completedCount {
		l.logger.Warn("stored completed count disagrees with records, repairing",
			"stored", l.completedCount, "actual", n)
		l.completedCount = n
	}
}

// flush writes snap unless a newer generation has already been written
func (l *Ledger) flush(ctx context.Context, snap Snapshot, gen uint64) error {
	if l.persister == nil {
		return nil
	}

	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	if gen <= l.flushed {
		return nil
	}
	if err := l.persister.Persist(ctx, snap); err != nil {
		l.logger.Error("ledger flush failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	l.flushed = gen
	return nil
}

func countCompleted(records map[string]Record) int {
	n := 0
	for _, r := range records {
		if r.Completed {
			n++
		}
	}
	return n
}
