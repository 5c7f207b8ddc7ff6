package tui

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/client"
	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/daemon"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
	"github.com/felixgeelhaar/oaspractice/internal/scenario"
	"github.com/felixgeelhaar/oaspractice/scenarios"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupModel(t *testing.T) (Model, *ledger.Ledger, *scenario.Registry) {
	t.Helper()

	dir := t.TempDir()
	if _, err := scenario.Install(scenarios.FS, dir); err != nil {
		t.Fatalf("install scenarios: %v", err)
	}
	d, err := daemon.NewServer(context.Background(), daemon.ServerConfig{
		Config:        config.DefaultLocalConfig(),
		ScenariosPath: dir,
		Version:       "test",
		Logger:        testLogger,
	})
	if err != nil {
		t.Fatalf("create daemon: %v", err)
	}
	ts := httptest.NewServer(d.Handler())
	t.Cleanup(ts.Close)

	api := client.New(client.Config{BaseURL: ts.URL + daemon.APIPrefix, Logger: testLogger})
	l := ledger.New(ledger.WithLogger(testLogger))
	editor := practice.NewEditor(l, testLogger)
	submitter := practice.NewSubmitter(editor, api, l, nil, testLogger)
	ctrl := practice.NewController(catalog.NewCache(api, l, testLogger), api, editor, submitter, testLogger)

	m := New(ctrl, l, Options{SyntaxDelay: time.Hour})
	t.Cleanup(m.Close)

	m = update(t, m, m.loadCatalog()())
	return m, l, d.Registry()
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs the resulting command once, feeding its
// message back into the model
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case catalogLoadedMsg, scenarioOpenedMsg, submittedMsg:
		return update(t, m, msg)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func visibleIDs(m Model) []string {
	var ids []string
	for _, s := range m.ctrl.Visible() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestModel_BrowseFilters(t *testing.T) {
	m, _, _ := setupModel(t)

	if got := len(m.ctrl.Visible()); got != 4 {
		t.Fatalf("visible = %d, want 4", got)
	}

	tests := []struct {
		name string
		key  tea.KeyMsg
		want []string
	}{
		{"difficulty beginner", runes("d"), []string{"first-endpoint", "path-parameters"}},
		{"difficulty intermediate", runes("d"), []string{"request-bodies"}},
		{"topic paths and intermediate", runes("t"), nil},
		{"clear", runes("x"), []string{"first-endpoint", "path-parameters", "request-bodies", "bearer-security"}},
		{"topic paths", runes("t"), []string{"first-endpoint", "path-parameters"}},
	}

	for _, tt := range tests {
		m = press(t, m, tt.key)
		if got := visibleIDs(m); strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("%s: visible = %v, want %v", tt.name, got, tt.want)
		}
	}

	if view := m.View(); !strings.Contains(view, "topic: paths") {
		t.Errorf("view should show the topic filter:\n%s", view)
	}
}

func TestModel_CursorNavigation(t *testing.T) {
	m, _, _ := setupModel(t)

	m = press(t, m, runes("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at top, want 0", m.cursor)
	}
	for range 10 {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.cursor != 3 {
		t.Errorf("cursor = %d, want 3", m.cursor)
	}

	// narrowing the listing pulls the cursor back in range
	m = press(t, m, runes("d"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d after filter, want 1", m.cursor)
	}
}

func TestModel_PracticeFlow(t *testing.T) {
	m, l, registry := setupModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.ctrl.Mode() != practice.ModePractice {
		t.Fatalf("mode = %v, want practice", m.ctrl.Mode())
	}
	if !strings.Contains(m.editor.Value(), "paths: {}") {
		t.Errorf("editor = %q, want starter code", m.editor.Value())
	}

	// a reported syntax error blocks submission
	m.setContent("paths: [\n")
	m = update(t, m, syntaxCheckedMsg{content: "paths: [\n", errs: []domain.SyntaxError{{Line: 2, Column: 1, Message: "bad"}}})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.statusErr || !strings.Contains(m.status, "syntax") {
		t.Errorf("status = %q, want syntax gate", m.status)
	}
	if !strings.Contains(m.View(), "Line 2, column 1: bad") {
		t.Error("view should show the syntax error")
	}

	f, err := registry.Get("first-endpoint")
	if err != nil {
		t.Fatal(err)
	}
	m.editor.SetValue(f.ExampleSolution)
	m.setContent(f.ExampleSolution)
	m = update(t, m, syntaxCheckedMsg{content: f.ExampleSolution})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.submitting {
		t.Error("submitting should be cleared after the result arrives")
	}
	if !strings.HasPrefix(m.status, "Completed!") {
		t.Errorf("status = %q", m.status)
	}
	if totals := l.Totals(); totals.CompletedCount != 1 || totals.TotalPoints != 10 {
		t.Errorf("totals = %+v", totals)
	}
	view := m.View()
	if !strings.Contains(view, "Score: 10/10") || !strings.Contains(view, "✓ 1 completed · 10 pts") {
		t.Errorf("view missing result or header:\n%s", view)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !strings.Contains(m.editor.Value(), "paths: {}") {
		t.Errorf("reset editor = %q", m.editor.Value())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.ctrl.Mode() != practice.ModeBrowse {
		t.Fatalf("mode = %v, want browse", m.ctrl.Mode())
	}

	// completed scenarios can be hidden without refetching
	m = press(t, m, runes("c"))
	if got := visibleIDs(m); len(got) != 3 || got[0] != "path-parameters" {
		t.Errorf("visible = %v, want completed hidden", got)
	}
}

func TestModel_TypingSavesDraft(t *testing.T) {
	m, l, _ := setupModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, runes("#"))

	draft, ok := l.LoadDraft("first-endpoint")
	if !ok || !strings.Contains(draft, "#") {
		t.Errorf("draft = %q, %v", draft, ok)
	}
	if m.ctrl.Editor().State().Buffer != m.editor.Value() {
		t.Error("editor buffer should follow the textarea")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := setupModel(t)

	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !strings.Contains(next.(Model).View(), "Bye") {
		t.Error("quitting view should say goodbye")
	}
}
