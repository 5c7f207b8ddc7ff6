package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestMergeSubmission_EndToEnd(t *testing.T) {
	l := New(WithClock(fixedClock()))
	ctx := context.Background()

	steps := []struct {
		score          int
		wantBest       int
		wantCompleted  bool
		wantTotal      int
		wantCount      int
		wantAttempts   int
		wantCredited   int
		wantNewComplet bool
	}{
		{score: 6, wantBest: 6, wantTotal: 6, wantAttempts: 1, wantCredited: 6},
		{score: 10, wantBest: 10, wantCompleted: true, wantTotal: 10, wantCount: 1, wantAttempts: 2, wantCredited: 4, wantNewComplet: true},
		{score: 10, wantBest: 10, wantCompleted: true, wantTotal: 10, wantCount: 1, wantAttempts: 3},
	}

	for i, step := range steps {
		out, err := l.MergeSubmission(ctx, "A", step.score, 10, "openapi: 3.0.0")
		if err != nil {
			t.Fatalf("step %d: MergeSubmission() error = %v", i, err)
		}
		if out.Record.BestScore != step.wantBest {
			t.Errorf("step %d: BestScore = %d; want %d", i, out.Record.BestScore, step.wantBest)
		}
		if out.Record.Completed != step.wantCompleted {
			t.Errorf("step %d: Completed = %v; want %v", i, out.Record.Completed, step.wantCompleted)
		}
		if out.Record.Attempts != step.wantAttempts {
			t.Errorf("step %d: Attempts = %d; want %d", i, out.Record.Attempts, step.wantAttempts)
		}
		if out.Totals.TotalPoints != step.wantTotal {
			t.Errorf("step %d: TotalPoints = %d; want %d", i, out.Totals.TotalPoints, step.wantTotal)
		}
		if out.Totals.CompletedCount != step.wantCount {
			t.Errorf("step %d: CompletedCount = %d; want %d", i, out.Totals.CompletedCount, step.wantCount)
		}
		if out.Credited != step.wantCredited {
			t.Errorf("step %d: Credited = %d; want %d", i, out.Credited, step.wantCredited)
		}
		if out.NewCompletion != step.wantNewComplet {
			t.Errorf("step %d: NewCompletion = %v; want %v", i, out.NewCompletion, step.wantNewComplet)
		}
	}
}

func TestMergeSubmission_CompletedNeverReverts(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.MergeSubmission(ctx, "A", 10, 10, "")
	out, _ := l.MergeSubmission(ctx, "A", 2, 10, "")

	if !out.Record.Completed {
		t.Error("Completed reverted to false")
	}
	if out.Record.BestScore != 10 {
		t.Errorf("BestScore = %d; want 10", out.Record.BestScore)
	}
	if out.Totals.TotalPoints != 10 {
		t.Errorf("TotalPoints = %d; want 10", out.Totals.TotalPoints)
	}
	if out.Totals.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d; want 1", out.Totals.CompletedCount)
	}
}

func TestMergeSubmission_BestScoreNonDecreasing(t *testing.T) {
	l := New()
	ctx := context.Background()

	prev := 0
	for _, score := range []int{3, 7, 1, 7, 5, 9, 0} {
		out, err := l.MergeSubmission(ctx, "A", score, 12, "")
		if err != nil {
			t.Fatalf("MergeSubmission() error = %v", err)
		}
		if out.Record.BestScore < prev {
			t.Fatalf("BestScore decreased from %d to %d", prev, out.Record.BestScore)
		}
		prev = out.Record.BestScore
	}
	if prev != 9 {
		t.Errorf("final BestScore = %d; want 9", prev)
	}
	if got := l.Totals().TotalPoints; got != 9 {
		t.Errorf("TotalPoints = %d; want 9", got)
	}
}

func TestMergeSubmission_Idempotent(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		maxScore int
	}{
		{"partial", 4, 10},
		{"full", 10, 10},
		{"zero", 0, 10},
		{"zero max", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			ctx := context.Background()

			first, _ := l.MergeSubmission(ctx, "A", tt.score, tt.maxScore, "x")
			second, _ := l.MergeSubmission(ctx, "A", tt.score, tt.maxScore, "x")

			if first.Totals.TotalPoints != second.Totals.TotalPoints {
				t.Errorf("TotalPoints changed: %d -> %d", first.Totals.TotalPoints, second.Totals.TotalPoints)
			}
			if first.Totals.CompletedCount != second.Totals.CompletedCount {
				t.Errorf("CompletedCount changed: %d -> %d", first.Totals.CompletedCount, second.Totals.CompletedCount)
			}
			if second.Record.Attempts != 2 {
				t.Errorf("Attempts = %d; want 2", second.Record.Attempts)
			}
			if second.Credited != 0 {
				t.Errorf("second Credited = %d; want 0", second.Credited)
			}
		})
	}
}

func TestMergeSubmission_AfterDraftNoDoubleCount(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.SaveDraft(ctx, "A", "draft")
	out, _ := l.MergeSubmission(ctx, "A", 10, 10, "final")

	if out.Totals.TotalPoints != 10 {
		t.Errorf("TotalPoints = %d; want 10", out.Totals.TotalPoints)
	}
	if out.Totals.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d; want 1", out.Totals.CompletedCount)
	}
	if draft, _ := l.LoadDraft("A"); draft != "final" {
		t.Errorf("LoadDraft() = %q; want final", draft)
	}
}

func TestMergeSubmission_InvalidScore(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		maxScore int
	}{
		{"negative score", -1, 10},
		{"negative max", 0, -1},
		{"score above max", 11, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()

			_, err := l.MergeSubmission(context.Background(), "A", tt.score, tt.maxScore, "")
			if !errors.Is(err, ErrInvalidScore) {
				t.Fatalf("error = %v; want ErrInvalidScore", err)
			}
			if _, ok := l.Record("A"); ok {
				t.Error("invalid submission created a record")
			}
			if totals := l.Totals(); totals.TotalPoints != 0 {
				t.Errorf("TotalPoints = %d, want 0", totals.TotalPoints)
			}
		})
	}
}

func TestCheckScore(t *testing.T) {
	if err := CheckScore(10, 10); err != nil {
		t.Errorf("CheckScore(10, 10) = %v", err)
	}
	if err := CheckScore(0, 0); err != nil {
		t.Errorf("CheckScore(0, 0) = %v", err)
	}
	if err := CheckScore(3, 2); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("CheckScore(3, 2) = %v; want ErrInvalidScore", err)
	}
}

func TestSaveDraft_LeavesScoresAlone(t *testing.T) {
	l := New()
	ctx := context.Background()

	l.MergeSubmission(ctx, "A", 5, 10, "v1")
	before, _ := l.Record("A")
	totalsBefore := l.Totals()

	if err := l.SaveDraft(ctx, "A", "v2"); err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}

	after, _ := l.Record("A")
	if after.Completed != before.Completed || after.BestScore != before.BestScore ||
		after.Attempts != before.Attempts || after.MaxScore != before.MaxScore {
		t.Errorf("record changed: before %+v, after %+v", before, after)
	}
	totalsAfter := l.Totals()
	if totalsAfter.TotalPoints != totalsBefore.TotalPoints || totalsAfter.CompletedCount != totalsBefore.CompletedCount {
		t.Errorf("totals changed: before %+v, after %+v", totalsBefore, totalsAfter)
	}
	if after.LastSolution != "v2" {
		t.Errorf("LastSolution = %q; want v2", after.LastSolution)
	}
}

func TestSaveDraft_CreatesZeroRecord(t *testing.T) {
	l := New()

	l.SaveDraft(context.Background(), "B", "paths: {}")

	r, ok := l.Record("B")
	if !ok {
		t.Fatal("record not created")
	}
	if r.Attempts != 0 || r.BestScore != 0 || r.Completed || r.MaxScore != 0 {
		t.Errorf("draft record = %+v; want zero scores", r)
	}
	if r.LastAttempt != nil {
		t.Error("LastAttempt should be unset for a draft-only record")
	}
}

func TestLoadDraft(t *testing.T) {
	l := New()
	ctx := context.Background()

	if _, ok := l.LoadDraft("missing"); ok {
		t.Error("LoadDraft() on unknown id should report none")
	}

	l.SaveDraft(ctx, "A", "")
	if _, ok := l.LoadDraft("A"); ok {
		t.Error("empty draft should report none")
	}

	l.SaveDraft(ctx, "A", "info: {}")
	if got, ok := l.LoadDraft("A"); !ok || got != "info: {}" {
		t.Errorf("LoadDraft() = %q, %v", got, ok)
	}
}

func TestCompletedCountMatchesRecords(t *testing.T) {
	l := New()
	ctx := context.Background()

	ops := []struct {
		id    string
		score int
		max   int
	}{
		{"a", 10, 10}, {"b", 3, 5}, {"a", 10, 10}, {"c", 0, 0}, {"b", 5, 5}, {"b", 1, 5},
	}
	for _, op := range ops {
		l.MergeSubmission(ctx, op.id, op.score, op.max, "")
		l.SaveDraft(ctx, op.id, "draft")

		snap := l.Snapshot()
		if got := countCompleted(snap.Scenarios); got != snap.CompletedCount {
			t.Fatalf("CompletedCount = %d; records say %d", snap.CompletedCount, got)
		}
	}
	if got := l.Totals().CompletedCount; got != 3 {
		t.Errorf("CompletedCount = %d; want 3", got)
	}
}

func TestLedger_ConcurrentMerges(t *testing.T) {
	l := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", n%4)
			l.MergeSubmission(ctx, id, 5, 5, "")
		}(i)
	}
	wg.Wait()

	totals := l.Totals()
	if totals.CompletedCount != 4 {
		t.Errorf("CompletedCount = %d; want 4", totals.CompletedCount)
	}
	if totals.TotalPoints != 20 {
		t.Errorf("TotalPoints = %d; want 20", totals.TotalPoints)
	}

	attempts := 0
	for _, r := range l.Snapshot().Scenarios {
		attempts += r.Attempts
	}
	if attempts != 20 {
		t.Errorf("total attempts = %d; want 20", attempts)
	}
}

type recordingPersister struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (p *recordingPersister) Persist(_ context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.snaps = append(p.snaps, snap)
	return nil
}

func TestLedger_PersistsEveryMutation(t *testing.T) {
	p := &recordingPersister{}
	l := New(WithPersister(p))
	ctx := context.Background()

	l.SaveDraft(ctx, "A", "one")
	l.MergeSubmission(ctx, "A", 1, 2, "two")
	l.SaveDraft(ctx, "A", "three")

	if len(p.snaps) != 3 {
		t.Fatalf("persisted %d snapshots; want 3", len(p.snaps))
	}
	last := p.snaps[2]
	if last.Scenarios["A"].LastSolution != "three" {
		t.Errorf("last snapshot draft = %q", last.Scenarios["A"].LastSolution)
	}
	if last.TotalPoints != 1 {
		t.Errorf("last snapshot TotalPoints = %d; want 1", last.TotalPoints)
	}
}

func TestLedger_PersistFailureKeepsMemoryState(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	l := New(WithPersister(p))

	out, err := l.MergeSubmission(context.Background(), "A", 4, 4, "")
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("error = %v; want ErrPersist", err)
	}
	if !out.Record.Completed {
		t.Error("outcome should reflect the merge")
	}
	if !l.IsCompleted("A") {
		t.Error("in-memory ledger should keep the merge")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	l := New()
	l.SaveDraft(context.Background(), "A", "x")

	snap := l.Snapshot()
	snap.Scenarios["A"] = Record{ScenarioID: "A", Completed: true}

	if l.IsCompleted("A") {
		t.Error("mutating a snapshot changed the ledger")
	}
}
