// Package practice holds the interactive session state: the browse/practice
// mode, the editor buffer bound to one scenario, and submission handling.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// ErrNoActiveScenario is returned when an editor operation needs a bound scenario
var ErrNoActiveScenario = errors.New("no active scenario")

// DraftStore persists editor drafts
type DraftStore interface {
	SaveDraft(ctx context.Context, id, content string) error
	LoadDraft(id string) (string, bool)
}

// EditorState is a copy of the editor's state
type EditorState struct {
	Detail       *domain.ScenarioDetail
	Buffer       string
	SyntaxErrors []domain.SyntaxError
	Result       *domain.ValidationResult
}

// ScenarioID returns the bound scenario id, or "" when none
func (s EditorState) ScenarioID() string {
	if s.Detail == nil {
		return ""
	}
	return s.Detail.ID
}

// Editor holds the buffer of at most one bound scenario
type Editor struct {
	mu           sync.Mutex
	detail       *domain.ScenarioDetail
	buffer       string
	syntaxErrors []domain.SyntaxError
	result       *domain.ValidationResult

	// saveMu keeps draft writes in buffer order
	saveMu sync.Mutex

	drafts DraftStore
	logger *slog.Logger
}

// NewEditor creates an editor with no bound scenario
func NewEditor(drafts DraftStore, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{drafts: drafts, logger: logger}
}

// Open binds detail, loading the saved draft or falling back to the
// starter code. It returns the initial buffer.
func (e *Editor) Open(detail domain.ScenarioDetail) string {
	buffer := detail.StarterCode
	if draft, ok := e.drafts.LoadDraft(detail.ID); ok {
		buffer = draft
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d := detail
	e.detail = &d
	e.buffer = buffer
	e.syntaxErrors = nil
	e.result = nil
	return buffer
}

// Edit replaces the buffer and saves it as the scenario's draft
func (e *Editor) Edit(ctx context.Context, text string) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	if e.detail == nil {
		e.mu.Unlock()
		return ErrNoActiveScenario
	}
	id := e.detail.ID
	e.buffer = text
	e.mu.Unlock()

	if err := e.drafts.SaveDraft(ctx, id, text); err != nil {
		e.logger.Error("save draft failed", "scenario_id", id, "error", err)
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Reset restores the starter code. The saved draft is kept until the
// next edit or submission.
func (e *Editor) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detail == nil {
		return ErrNoActiveScenario
	}
	e.buffer = e.detail.StarterCode
	e.syntaxErrors = nil
	e.result = nil
	return nil
}

// Close unbinds the scenario
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.detail = nil
	e.buffer = ""
	e.syntaxErrors = nil
	e.result = nil
}

// ApplySyntaxCheck records errs if content is still the current buffer
func (e *Editor) ApplySyntaxCheck(content string, errs []domain.SyntaxError) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detail == nil || content != e.buffer {
		return false
	}
	e.syntaxErrors = slices.Clone(errs)
	return true
}

// CanSubmit reports whether a scenario is bound and the buffer has no
// known syntax errors
func (e *Editor) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.detail != nil && len(e.syntaxErrors) == 0
}

// State returns a copy of the editor state
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := EditorState{
		Buffer:       e.buffer,
		SyntaxErrors: slices.Clone(e.syntaxErrors),
	}
	if e.detail != nil {
		d := *e.detail
		state.Detail = &d
	}
	if e.result != nil {
		r := *e.result
		state.Result = &r
	}
	return state
}

// current returns the bound id and buffer
func (e *Editor) current() (id, buffer string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detail == nil {
		return "", "", false
	}
	return e.detail.ID, e.buffer, true
}

// deliver stores result if id is still bound and returns the buffer at
// arrival time
func (e *Editor) deliver(id string, result *domain.ValidationResult) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detail == nil || e.detail.ID != id {
		return "", false
	}
	r := *result
	e.result = &r
	return e.buffer, true
}
