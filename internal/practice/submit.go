package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
)

// ErrSubmitInFlight is returned when a submission is already running
var ErrSubmitInFlight = errors.New("submission already in flight")

// ValidationServiceError is returned when the checker could not be reached
// or answered with an error. The ledger is left untouched.
type ValidationServiceError struct {
	ScenarioID string
	Err        error
}

func (e *ValidationServiceError) Error() string {
	return fmt.Sprintf("validate scenario %s: %v", e.ScenarioID, e.Err)
}

func (e *ValidationServiceError) Unwrap() error {
	return e.Err
}

// Checker validates a solution for a scenario
type Checker interface {
	Validate(ctx context.Context, id, solution string) (*domain.ValidationResult, error)
}

// Recorder merges checked submissions into progress
type Recorder interface {
	MergeSubmission(ctx context.Context, id string, score, maxScore int, solution string) (ledger.MergeOutcome, error)
}

// Submission is the result of an accepted submit
type Submission struct {
	ScenarioID string
	Result     domain.ValidationResult
	Outcome    ledger.MergeOutcome
}

// Submitter sends the editor buffer to the checker, one submission at a time
type Submitter struct {
	mu         sync.Mutex
	submitting bool

	editor   *Editor
	checker  Checker
	recorder Recorder
	events   *domain.EventDispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewSubmitter creates a submitter. events may be nil.
func NewSubmitter(editor *Editor, checker Checker, recorder Recorder, events *domain.EventDispatcher, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		editor:   editor,
		checker:  checker,
		recorder: recorder,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Submitting reports whether a submission is in flight
func (s *Submitter) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Submit checks the current buffer and merges the result into the ledger.
// The merged solution is the buffer when the response arrives; if the
// editor moved to another scenario meanwhile, the submitted text is used.
func (s *Submitter) Submit(ctx context.Context) (*Submission, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	id, content, ok := s.editor.current()
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoActiveScenario
	}
	s.submitting = true
	s.mu.Unlock()

	s.logger.Debug("submitting solution", "scenario_id", id, "bytes", len(content))
	result, err := s.checker.Validate(ctx, id, content)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("validation failed", "scenario_id", id, "error", err)
		return nil, &ValidationServiceError{ScenarioID: id, Err: err}
	}

	// a rejected result never becomes session state
	if err := ledger.CheckScore(result.Score, result.MaxScore); err != nil {
		s.logger.Warn("checker returned an invalid score", "scenario_id", id, "error", err)
		return nil, &ValidationServiceError{ScenarioID: id, Err: err}
	}

	solution := content
	if buffer, bound := s.editor.deliver(id, result); bound {
		solution = buffer
	}

	outcome, err := s.recorder.MergeSubmission(ctx, id, result.Score, result.MaxScore, solution)
	if errors.Is(err, ledger.ErrInvalidScore) {
		return nil, &ValidationServiceError{ScenarioID: id, Err: err}
	}

	sub := &Submission{ScenarioID: id, Result: *result, Outcome: outcome}
	s.publish(sub)

	if err != nil {
		return sub, fmt.Errorf("record submission: %w", err)
	}
	return sub, nil
}

func (s *Submitter) publish(sub *Submission) {
	if s.events == nil {
		return
	}
	at := s.now().UTC()
	o := sub.Outcome
	s.events.Publish(domain.NewSubmissionRecordedEvent(
		sub.ScenarioID,
		sub.Result.Score,
		sub.Result.MaxScore,
		o.Record.Completed,
		o.Totals.TotalPoints,
		o.Totals.CompletedCount,
		o.Record.Attempts,
		at,
	))
	if o.NewCompletion {
		s.events.Publish(domain.NewScenarioCompletedEvent(sub.ScenarioID, o.Record.BestScore, o.Record.Attempts, at))
	}
}
