package mcp

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/client"
	"github.com/felixgeelhaar/oaspractice/internal/config"
	"github.com/felixgeelhaar/oaspractice/internal/daemon"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
	"github.com/felixgeelhaar/oaspractice/internal/scenario"
	"github.com/felixgeelhaar/oaspractice/scenarios"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// setupTestServer wires an MCP server to a daemon serving the bundled scenarios
func setupTestServer(t *testing.T) (*Server, *ledger.Ledger, *scenario.Registry) {
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
	cache := catalog.NewCache(api, l, testLogger)
	controller := practice.NewController(cache, api, editor, submitter, testLogger)

	s := NewServer(Config{
		Controller: controller,
		Progress:   l,
		Version:    "test",
		Logger:     testLogger,
	})
	return s, l, d.Registry()
}

func TestNewServer(t *testing.T) {
	server, _, _ := setupTestServer(t)

	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.controller == nil {
		t.Fatal("expected non-nil controller")
	}
	if server.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestServerConfig(t *testing.T) {
	// nil dependencies must not panic at construction
	if NewServer(Config{}) == nil {
		t.Fatal("expected non-nil server even with empty config")
	}
}

func TestHandleList(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   ListInput
		wantIDs []string
		wantErr bool
	}{
		{"all", ListInput{}, []string{"first-endpoint", "path-parameters", "request-bodies", "bearer-security"}, false},
		{"by difficulty", ListInput{Difficulty: "beginner"}, []string{"first-endpoint", "path-parameters"}, false},
		{"by topic", ListInput{Topics: []string{"security"}}, []string{"bearer-security"}, false},
		{"unknown topic", ListInput{Topics: []string{"webhooks"}}, nil, true},
		{"unknown difficulty", ListInput{Difficulty: "expert"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := server.handleList(ctx, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handleList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var ids []string
			for _, s := range out.Scenarios {
				ids = append(ids, s.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestPracticeFlow(t *testing.T) {
	server, l, registry := setupTestServer(t)
	ctx := context.Background()

	if _, err := server.handleList(ctx, ListInput{}); err != nil {
		t.Fatalf("handleList() error = %v", err)
	}

	open, err := server.handleOpen(ctx, OpenInput{ScenarioID: "first-endpoint"})
	if err != nil {
		t.Fatalf("handleOpen() error = %v", err)
	}
	if open.FromDraft || !strings.Contains(open.Content, "paths: {}") {
		t.Errorf("open = %+v, want starter code", open)
	}
	if len(open.Requirements) != 4 {
		t.Errorf("requirements = %d, want 4", len(open.Requirements))
	}

	// starter code earns the version requirement only
	sub, err := server.handleSubmit(ctx, SubmitInput{})
	if err != nil {
		t.Fatalf("handleSubmit() error = %v", err)
	}
	if sub.Score != 2 || sub.Credited != 2 || sub.NewCompletion {
		t.Errorf("starter submit = %+v", sub)
	}

	edit, err := server.handleEdit(ctx, EditInput{Content: "paths: [\n"})
	if err != nil {
		t.Fatalf("handleEdit() error = %v", err)
	}
	if edit.CanSubmit || len(edit.SyntaxErrors) == 0 {
		t.Errorf("broken edit = %+v, want syntax errors", edit)
	}

	f, err := registry.Get("first-endpoint")
	if err != nil {
		t.Fatal(err)
	}
	edit, err = server.handleEdit(ctx, EditInput{Content: f.ExampleSolution})
	if err != nil {
		t.Fatalf("handleEdit() error = %v", err)
	}
	if !edit.CanSubmit {
		t.Errorf("valid edit = %+v, want can_submit", edit)
	}

	sub, err = server.handleSubmit(ctx, SubmitInput{})
	if err != nil {
		t.Fatalf("handleSubmit() error = %v", err)
	}
	if sub.Score != sub.MaxScore || sub.Credited != sub.MaxScore-2 || !sub.NewCompletion {
		t.Errorf("solution submit = %+v", sub)
	}
	if sub.TotalPoints != sub.MaxScore || sub.CompletedCount != 1 {
		t.Errorf("totals = %d/%d", sub.TotalPoints, sub.CompletedCount)
	}

	reset, err := server.handleReset(ctx, ResetInput{})
	if err != nil {
		t.Fatalf("handleReset() error = %v", err)
	}
	if !strings.Contains(reset.Content, "paths: {}") {
		t.Errorf("reset content = %q", reset.Content)
	}

	closed, err := server.handleClose(ctx, CloseInput{})
	if err != nil || !strings.Contains(closed.Message, "first-endpoint") {
		t.Errorf("handleClose() = %+v, %v", closed, err)
	}

	// reopening restores the last submitted solution
	open, err = server.handleOpen(ctx, OpenInput{ScenarioID: "first-endpoint"})
	if err != nil {
		t.Fatal(err)
	}
	if !open.FromDraft || open.Content != f.ExampleSolution {
		t.Errorf("reopen content = %q", open.Content)
	}

	progress, err := server.handleProgress(ctx, ProgressInput{})
	if err != nil {
		t.Fatalf("handleProgress() error = %v", err)
	}
	if progress.TotalPoints != l.Totals().TotalPoints || len(progress.Records) != 1 {
		t.Errorf("progress = %+v", progress)
	}
	if progress.Records[0].LastSolution != "" {
		t.Error("progress should not include solutions")
	}
}

func TestHandleOpen_NotFound(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	if _, err := server.handleList(ctx, ListInput{}); err != nil {
		t.Fatal(err)
	}

	_, err := server.handleOpen(ctx, OpenInput{ScenarioID: "first-endpont"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "first-endpoint"`) {
		t.Errorf("handleOpen() error = %v, want suggestion", err)
	}

	if _, err := server.handleOpen(ctx, OpenInput{}); err == nil {
		t.Error("expected error for empty scenario_id")
	}
}

func TestHandlersWithoutOpenScenario(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	if _, err := server.handleEdit(ctx, EditInput{Content: "openapi: 3.0.3"}); err == nil {
		t.Error("handleEdit() should fail without an open scenario")
	}
	if _, err := server.handleSubmit(ctx, SubmitInput{}); err == nil {
		t.Error("handleSubmit() should fail without an open scenario")
	}
	if _, err := server.handleReset(ctx, ResetInput{}); err == nil {
		t.Error("handleReset() should fail without an open scenario")
	}

	out, err := server.handleClose(ctx, CloseInput{})
	if err != nil || out.Message != "No scenario was open." {
		t.Errorf("handleClose() = %+v, %v", out, err)
	}
}
