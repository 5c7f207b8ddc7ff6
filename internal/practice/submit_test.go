package practice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
)

type fakeChecker struct {
	mu       sync.Mutex
	score    int
	maxScore int
	err      error
	gate     chan struct{}
	started  chan struct{}
	received []string
}

func (f *fakeChecker) Validate(ctx context.Context, id, solution string) (*domain.ValidationResult, error) {
	f.mu.Lock()
	f.received = append(f.received, solution)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ValidationResult{
		Valid:    true,
		Score:    f.score,
		MaxScore: f.maxScore,
		Results:  []domain.RequirementResult{{RequirementID: "r1", Passed: f.score == f.maxScore}},
	}, nil
}

func newSubmitFixture(checker *fakeChecker) (*Editor, *Submitter, *ledger.Ledger, *domain.EventDispatcher) {
	l := ledger.New()
	events := domain.NewEventDispatcher()
	editor := NewEditor(l, nil)
	return editor, NewSubmitter(editor, checker, l, events, nil), l, events
}

func TestSubmitter_Submit(t *testing.T) {
	checker := &fakeChecker{score: 10, maxScore: 10}
	editor, submitter, l, events := newSubmitFixture(checker)
	ctx := context.Background()

	var got []domain.Event
	events.SubscribeAll(func(e domain.Event) { got = append(got, e) })

	editor.Open(sampleDetail("a"))
	editor.Edit(ctx, "openapi: 3.0.0\ninfo: {}\n")

	sub, err := submitter.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Outcome.Totals.TotalPoints != 10 || !sub.Outcome.NewCompletion {
		t.Errorf("outcome = %+v", sub.Outcome)
	}
	if !l.IsCompleted("a") {
		t.Error("ledger not updated")
	}
	if editor.State().Result == nil || editor.State().Result.Score != 10 {
		t.Errorf("editor result = %+v", editor.State().Result)
	}
	if submitter.Submitting() {
		t.Error("Submitting() should be false after completion")
	}
	if checker.received[0] != "openapi: 3.0.0\ninfo: {}\n" {
		t.Errorf("checker received %q", checker.received[0])
	}

	if len(got) != 2 {
		t.Fatalf("published %d events; want 2", len(got))
	}
	recorded, ok := got[0].(domain.SubmissionRecordedEvent)
	if !ok || recorded.TotalPoints != 10 || recorded.Attempts != 1 {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].EventType() != domain.EventScenarioCompleted {
		t.Errorf("second event type = %s", got[1].EventType())
	}
}

func TestSubmitter_NoActiveScenario(t *testing.T) {
	_, submitter, _, _ := newSubmitFixture(&fakeChecker{})

	if _, err := submitter.Submit(context.Background()); !errors.Is(err, ErrNoActiveScenario) {
		t.Errorf("Submit() error = %v; want ErrNoActiveScenario", err)
	}
}

func TestSubmitter_FailureLeavesLedgerUntouched(t *testing.T) {
	boom := errors.New("connection refused")
	checker := &fakeChecker{err: boom}
	editor, submitter, l, _ := newSubmitFixture(checker)
	ctx := context.Background()

	editor.Open(sampleDetail("a"))
	before := l.Snapshot()

	_, err := submitter.Submit(ctx)

	var svcErr *ValidationServiceError
	if !errors.As(err, &svcErr) || svcErr.ScenarioID != "a" {
		t.Fatalf("Submit() error = %v; want *ValidationServiceError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("error should unwrap to the cause")
	}
	if submitter.Submitting() {
		t.Error("Submitting() should be cleared after failure")
	}
	if editor.State().Result != nil {
		t.Error("result should be absent after failure")
	}
	after := l.Snapshot()
	if len(after.Scenarios) != len(before.Scenarios) || after.TotalPoints != before.TotalPoints {
		t.Errorf("ledger changed: %+v", after)
	}
}

func TestSubmitter_InvalidScoreLeavesNoResult(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		maxScore int
	}{
		{"negative score", -1, 10},
		{"score above max", 12, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{score: tt.score, maxScore: tt.maxScore}
			editor, submitter, l, _ := newSubmitFixture(checker)
			ctx := context.Background()
			editor.Open(sampleDetail("a"))

			sub, err := submitter.Submit(ctx)

			var svcErr *ValidationServiceError
			if !errors.As(err, &svcErr) || !errors.Is(err, ledger.ErrInvalidScore) {
				t.Fatalf("Submit() error = %v; want *ValidationServiceError wrapping ErrInvalidScore", err)
			}
			if sub != nil {
				t.Errorf("Submit() submission = %+v; want nil", sub)
			}
			if editor.State().Result != nil {
				t.Error("rejected result should not be stored in the editor")
			}
			if _, ok := l.Record("a"); ok {
				t.Error("rejected result should not create a record")
			}
			if submitter.Submitting() {
				t.Error("Submitting() should be cleared")
			}
		})
	}
}

func TestSubmitter_SingleFlight(t *testing.T) {
	checker := &fakeChecker{score: 5, maxScore: 10, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	editor, submitter, l, _ := newSubmitFixture(checker)
	ctx := context.Background()
	editor.Open(sampleDetail("a"))

	done := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(ctx)
		done <- err
	}()
	<-checker.started

	if !submitter.Submitting() {
		t.Error("Submitting() should be true while in flight")
	}
	if _, err := submitter.Submit(ctx); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("concurrent Submit() error = %v; want ErrSubmitInFlight", err)
	}

	close(checker.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	r, _ := l.Record("a")
	if r.Attempts != 1 {
		t.Errorf("Attempts = %d; want 1", r.Attempts)
	}
	if len(checker.received) != 1 {
		t.Errorf("checker called %d times; want 1", len(checker.received))
	}
}

func TestSubmitter_MergesBufferAtArrival(t *testing.T) {
	checker := &fakeChecker{score: 3, maxScore: 10, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	editor, submitter, l, _ := newSubmitFixture(checker)
	ctx := context.Background()
	editor.Open(sampleDetail("a"))
	editor.Edit(ctx, "submitted")

	done := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(ctx)
		done <- err
	}()
	<-checker.started

	editor.Edit(ctx, "typed while waiting")
	close(checker.gate)
	<-done

	r, _ := l.Record("a")
	if r.LastSolution != "typed while waiting" {
		t.Errorf("LastSolution = %q; want the buffer at arrival", r.LastSolution)
	}
}

func TestSubmitter_ScenarioChangedWhileInFlight(t *testing.T) {
	checker := &fakeChecker{score: 10, maxScore: 10, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	editor, submitter, l, _ := newSubmitFixture(checker)
	ctx := context.Background()
	editor.Open(sampleDetail("a"))
	editor.Edit(ctx, "solution for a")

	done := make(chan *Submission, 1)
	go func() {
		sub, _ := submitter.Submit(ctx)
		done <- sub
	}()
	<-checker.started

	editor.Open(sampleDetail("b"))
	editor.Edit(ctx, "work on b")
	close(checker.gate)

	select {
	case sub := <-done:
		if sub == nil || sub.ScenarioID != "a" {
			t.Fatalf("submission = %+v", sub)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit() did not return")
	}

	a, _ := l.Record("a")
	if a.LastSolution != "solution for a" || !a.Completed {
		t.Errorf("record a = %+v", a)
	}
	if b, _ := l.LoadDraft("b"); b != "work on b" {
		t.Errorf("draft b = %q", b)
	}
	if editor.State().Result != nil {
		t.Error("result for a must not be shown on b")
	}
}
