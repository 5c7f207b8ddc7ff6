package practice

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
)

func sampleDetail(id string) domain.ScenarioDetail {
	return domain.ScenarioDetail{
		ScenarioSummary: domain.ScenarioSummary{ID: id, Title: "Scenario " + id, Points: 10},
		Requirements: []domain.Requirement{
			{ID: "r1", Description: "Add info"},
		},
		StarterCode: "openapi: 3.0.0\n",
	}
}

func TestEditor_Open_UsesStarterCode(t *testing.T) {
	e := NewEditor(ledger.New(), nil)

	got := e.Open(sampleDetail("a"))
	if got != "openapi: 3.0.0\n" {
		t.Errorf("Open() = %q; want starter code", got)
	}
	if id := e.State().ScenarioID(); id != "a" {
		t.Errorf("ScenarioID() = %q", id)
	}
}

func TestEditor_Open_RestoresDraft(t *testing.T) {
	l := ledger.New()
	l.SaveDraft(context.Background(), "a", "info:\n  title: Draft\n")
	e := NewEditor(l, nil)

	if got := e.Open(sampleDetail("a")); got != "info:\n  title: Draft\n" {
		t.Errorf("Open() = %q; want the draft", got)
	}
}

func TestEditor_Edit_SavesDraft(t *testing.T) {
	l := ledger.New()
	e := NewEditor(l, nil)
	e.Open(sampleDetail("a"))

	if err := e.Edit(context.Background(), "paths: {}"); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if e.State().Buffer != "paths: {}" {
		t.Errorf("Buffer = %q", e.State().Buffer)
	}
	if draft, ok := l.LoadDraft("a"); !ok || draft != "paths: {}" {
		t.Errorf("LoadDraft() = %q, %v", draft, ok)
	}
	if r, _ := l.Record("a"); r.Attempts != 0 {
		t.Errorf("draft save changed attempts to %d", r.Attempts)
	}
}

func TestEditor_Edit_NoScenario(t *testing.T) {
	e := NewEditor(ledger.New(), nil)

	if err := e.Edit(context.Background(), "x"); !errors.Is(err, ErrNoActiveScenario) {
		t.Errorf("Edit() error = %v; want ErrNoActiveScenario", err)
	}
}

type failingDrafts struct{}

func (failingDrafts) SaveDraft(context.Context, string, string) error { return errors.New("disk full") }
func (failingDrafts) LoadDraft(string) (string, bool)                 { return "", false }

func TestEditor_Edit_SaveFailureKeepsBuffer(t *testing.T) {
	e := NewEditor(failingDrafts{}, nil)
	e.Open(sampleDetail("a"))

	if err := e.Edit(context.Background(), "new"); err == nil {
		t.Fatal("Edit() should report the save failure")
	}
	if e.State().Buffer != "new" {
		t.Errorf("Buffer = %q; want new", e.State().Buffer)
	}
}

func TestEditor_Reset_KeepsDraft(t *testing.T) {
	l := ledger.New()
	e := NewEditor(l, nil)
	ctx := context.Background()

	e.Open(sampleDetail("a"))
	e.Edit(ctx, "edited")
	e.ApplySyntaxCheck("edited", []domain.SyntaxError{{Line: 1, Column: 1, Message: "bad"}})

	if err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	state := e.State()
	if state.Buffer != "openapi: 3.0.0\n" {
		t.Errorf("Buffer = %q; want starter code", state.Buffer)
	}
	if len(state.SyntaxErrors) != 0 || state.Result != nil {
		t.Errorf("Reset() should clear errors and result: %+v", state)
	}
	if draft, _ := l.LoadDraft("a"); draft != "edited" {
		t.Errorf("draft = %q; want edited", draft)
	}
}

func TestEditor_ApplySyntaxCheck(t *testing.T) {
	e := NewEditor(ledger.New(), nil)
	ctx := context.Background()
	e.Open(sampleDetail("a"))
	e.Edit(ctx, "a: b: c")

	errs := []domain.SyntaxError{{Line: 1, Column: 5, Message: "mapping values are not allowed in this context"}}

	if e.ApplySyntaxCheck("stale", errs) {
		t.Error("stale content should not apply")
	}
	if !e.CanSubmit() {
		t.Error("CanSubmit() should be true before errors apply")
	}
	if !e.ApplySyntaxCheck("a: b: c", errs) {
		t.Fatal("current content should apply")
	}
	if e.CanSubmit() {
		t.Error("CanSubmit() should be false with syntax errors")
	}

	e.Edit(ctx, "a: 1")
	e.ApplySyntaxCheck("a: 1", nil)
	if !e.CanSubmit() {
		t.Error("CanSubmit() should be true once errors clear")
	}
}

func TestEditor_Close(t *testing.T) {
	e := NewEditor(ledger.New(), nil)
	e.Open(sampleDetail("a"))
	e.Close()

	state := e.State()
	if state.Detail != nil || state.Buffer != "" {
		t.Errorf("state after Close() = %+v", state)
	}
	if e.CanSubmit() {
		t.Error("CanSubmit() should be false without a scenario")
	}
	if err := e.Reset(); !errors.Is(err, ErrNoActiveScenario) {
		t.Errorf("Reset() error = %v", err)
	}
}
