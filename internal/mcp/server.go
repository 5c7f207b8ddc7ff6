package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
	"github.com/felixgeelhaar/oaspractice/internal/syntax"
)

// Progress is the read side of the ledger
type Progress interface {
	Totals() ledger.Totals
	Record(id string) (ledger.Record, bool)
	Snapshot() ledger.Snapshot
}

// Server exposes a practice session over MCP
type Server struct {
	mcpServer  *server.Server
	controller *practice.Controller
	progress   Progress
	logger     *slog.Logger
}

// Config contains configuration for the MCP server
type Config struct {
	Controller *practice.Controller
	Progress   Progress
	Version    string
	Logger     *slog.Logger
}

// NewServer creates a new MCP server bound to one practice session
func NewServer(cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		controller: cfg.Controller,
		progress:   cfg.Progress,
		logger:     logger,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "oaspractice",
		Version: version,
	}, server.WithInstructions(`
oaspractice is a hands-on trainer for writing OpenAPI documents.
Each scenario asks for a document meeting a set of scored requirements.

Typical flow:
- practice_list: browse scenarios, optionally filtered by topic and difficulty
- practice_open: open a scenario; the saved draft or starter code is loaded
- practice_edit: replace the editor content; syntax errors are reported
- practice_submit: check the content and record progress
- practice_reset: restore the starter code
- practice_close: return to browsing
- practice_progress: show points and per-scenario records

Only one scenario is open at a time. Drafts are saved on every edit.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("practice_list").
		Description("List practice scenarios, optionally filtered by topics and difficulty.").
		Handler(s.handleList)

	s.mcpServer.Tool("practice_open").
		Description("Open a scenario for editing. Loads the saved draft or the starter code.").
		Handler(s.handleOpen)

	s.mcpServer.Tool("practice_edit").
		Description("Replace the content of the open scenario's editor and save it as a draft.").
		Handler(s.handleEdit)

	s.mcpServer.Tool("practice_submit").
		Description("Check the editor content against the scenario requirements and record progress.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("practice_reset").
		Description("Restore the starter code of the open scenario.").
		Handler(s.handleReset)

	s.mcpServer.Tool("practice_close").
		Description("Close the open scenario and return to browsing.").
		Handler(s.handleClose)

	s.mcpServer.Tool("practice_progress").
		Description("Show total points, completed scenarios and per-scenario records.").
		Handler(s.handleProgress)
}

// Input/Output types for tools

type ListInput struct {
	Topics        []string `json:"topics,omitempty" jsonschema:"description=Topic ids; a scenario matches if it covers any of them"`
	Difficulty    string   `json:"difficulty,omitempty" jsonschema:"description=Difficulty level,enum=beginner,enum=intermediate,enum=advanced"`
	ShowCompleted *bool    `json:"show_completed,omitempty" jsonschema:"description=Include completed scenarios (default: true)"`
}

type ScenarioItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Topics     []string `json:"topics"`
	Points     int      `json:"points"`
	Completed  bool     `json:"completed"`
	BestScore  int      `json:"best_score,omitempty"`
}

type ListOutput struct {
	Scenarios      []ScenarioItem `json:"scenarios"`
	TotalPoints    int            `json:"total_points"`
	CompletedCount int            `json:"completed_count"`
}

type OpenInput struct {
	ScenarioID string `json:"scenario_id" jsonschema:"description=Scenario ID from practice_list"`
}

type RequirementItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Hint        string `json:"hint,omitempty"`
	Points      int    `json:"points,omitempty"`
}

type OpenOutput struct {
	ScenarioID   string            `json:"scenario_id"`
	Title        string            `json:"title"`
	Instructions string            `json:"instructions"`
	Requirements []RequirementItem `json:"requirements"`
	Content      string            `json:"content"`
	FromDraft    bool              `json:"from_draft"`
}

type EditInput struct {
	Content string `json:"content" jsonschema:"description=Full OpenAPI document in YAML or JSON"`
}

type EditOutput struct {
	ScenarioID   string               `json:"scenario_id"`
	SyntaxErrors []domain.SyntaxError `json:"syntax_errors"`
	CanSubmit    bool                 `json:"can_submit"`
}

type SubmitInput struct{}

type SubmitOutput struct {
	ScenarioID     string                     `json:"scenario_id"`
	Valid          bool                       `json:"valid"`
	Score          int                        `json:"score"`
	MaxScore       int                        `json:"max_score"`
	Feedback       string                     `json:"feedback"`
	Results        []domain.RequirementResult `json:"results"`
	SyntaxErrors   []domain.SyntaxError       `json:"syntax_errors,omitempty"`
	Warnings       []domain.Warning           `json:"warnings,omitempty"`
	Credited       int                        `json:"credited"`
	NewCompletion  bool                       `json:"new_completion"`
	TotalPoints    int                        `json:"total_points"`
	CompletedCount int                        `json:"completed_count"`
	Summary        string                     `json:"summary"`
}

type ResetInput struct{}

type ResetOutput struct {
	ScenarioID string `json:"scenario_id"`
	Content    string `json:"content"`
}

type CloseInput struct{}

type CloseOutput struct {
	Message string `json:"message"`
}

type ProgressInput struct {
	ScenarioID string `json:"scenario_id,omitempty" jsonschema:"description=Limit the records to one scenario"`
}

type ProgressOutput struct {
	TotalPoints    int             `json:"total_points"`
	CompletedCount int             `json:"completed_count"`
	Records        []ledger.Record `json:"records"`
}

// Tool handlers

func (s *Server) handleList(ctx context.Context, input ListInput) (ListOutput, error) {
	filter := catalog.Filter{Difficulty: domain.Difficulty(input.Difficulty)}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return ListOutput{}, fmt.Errorf("unknown difficulty %q", input.Difficulty)
	}
	for _, t := range input.Topics {
		topic := domain.Topic(strings.TrimSpace(t))
		if !topic.Valid() {
			return ListOutput{}, fmt.Errorf("unknown topic %q", t)
		}
		filter.Topics = append(filter.Topics, topic)
	}

	if input.ShowCompleted != nil {
		s.controller.SetShowCompleted(*input.ShowCompleted)
	}
	if err := s.controller.SetFilter(ctx, filter); err != nil {
		return ListOutput{}, fmt.Errorf("failed to load scenarios: %w", err)
	}

	out := ListOutput{Scenarios: []ScenarioItem{}}
	for _, sc := range s.controller.Visible() {
		item := ScenarioItem{
			ID:         sc.ID,
			Title:      sc.Title,
			Difficulty: string(sc.Difficulty),
			Points:     sc.Points,
		}
		for _, t := range sc.Topics {
			item.Topics = append(item.Topics, string(t))
		}
		if rec, ok := s.progress.Record(sc.ID); ok {
			item.Completed = rec.Completed
			item.BestScore = rec.BestScore
		}
		out.Scenarios = append(out.Scenarios, item)
	}

	totals := s.progress.Totals()
	out.TotalPoints = totals.TotalPoints
	out.CompletedCount = totals.CompletedCount
	return out, nil
}

func (s *Server) handleOpen(ctx context.Context, input OpenInput) (OpenOutput, error) {
	if input.ScenarioID == "" {
		return OpenOutput{}, fmt.Errorf("scenario_id is required")
	}

	err := s.controller.Select(ctx, input.ScenarioID)
	if errors.Is(err, domain.ErrScenarioNotFound) {
		if guess := s.controller.Catalog().Suggest(input.ScenarioID); guess != "" {
			return OpenOutput{}, fmt.Errorf("scenario %q not found; did you mean %q?", input.ScenarioID, guess)
		}
		return OpenOutput{}, fmt.Errorf("scenario %q not found", input.ScenarioID)
	}
	if err != nil {
		return OpenOutput{}, fmt.Errorf("failed to open scenario: %w", err)
	}

	state := s.controller.Editor().State()
	d := state.Detail
	out := OpenOutput{
		ScenarioID:   d.ID,
		Title:        d.Title,
		Instructions: d.Instructions,
		Requirements: make([]RequirementItem, 0, len(d.Requirements)),
		Content:      state.Buffer,
		FromDraft:    state.Buffer != d.StarterCode,
	}
	for _, r := range d.Requirements {
		out.Requirements = append(out.Requirements, RequirementItem{
			ID:          r.ID,
			Description: r.Description,
			Hint:        r.Hint,
			Points:      r.Points,
		})
	}
	return out, nil
}

func (s *Server) handleEdit(ctx context.Context, input EditInput) (EditOutput, error) {
	editor := s.controller.Editor()
	if err := editor.Edit(ctx, input.Content); err != nil {
		if errors.Is(err, practice.ErrNoActiveScenario) {
			return EditOutput{}, fmt.Errorf("no scenario open; call practice_open first")
		}
		// the buffer is updated even when the draft could not be saved
		s.logger.Warn("draft not saved", "error", err)
	}

	errs := syntax.Check(input.Content)
	editor.ApplySyntaxCheck(input.Content, errs)

	state := editor.State()
	return EditOutput{
		ScenarioID:   state.ScenarioID(),
		SyntaxErrors: state.SyntaxErrors,
		CanSubmit:    editor.CanSubmit(),
	}, nil
}

func (s *Server) handleSubmit(ctx context.Context, _ SubmitInput) (SubmitOutput, error) {
	sub, err := s.controller.Submit(ctx)
	switch {
	case errors.Is(err, practice.ErrNoActiveScenario):
		return SubmitOutput{}, fmt.Errorf("no scenario open; call practice_open first")
	case errors.Is(err, practice.ErrSubmitInFlight):
		return SubmitOutput{}, fmt.Errorf("a submission is already running")
	case sub == nil && err != nil:
		return SubmitOutput{}, fmt.Errorf("submission failed: %w", err)
	case err != nil:
		s.logger.Warn("progress not saved", "scenario_id", sub.ScenarioID, "error", err)
	}

	r := sub.Result
	o := sub.Outcome
	return SubmitOutput{
		ScenarioID:     sub.ScenarioID,
		Valid:          r.Valid,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
		Feedback:       r.Feedback,
		Results:        r.Results,
		SyntaxErrors:   r.SyntaxErrors,
		Warnings:       r.Warnings,
		Credited:       o.Credited,
		NewCompletion:  o.NewCompletion,
		TotalPoints:    o.Totals.TotalPoints,
		CompletedCount: o.Totals.CompletedCount,
		Summary:        fmt.Sprintf("Score: %d/%d | Requirements: %d/%d | Points: +%d", r.Score, r.MaxScore, r.PassedCount(), len(r.Results), o.Credited),
	}, nil
}

func (s *Server) handleReset(_ context.Context, _ ResetInput) (ResetOutput, error) {
	editor := s.controller.Editor()
	if err := editor.Reset(); err != nil {
		return ResetOutput{}, fmt.Errorf("no scenario open; call practice_open first")
	}
	state := editor.State()
	return ResetOutput{ScenarioID: state.ScenarioID(), Content: state.Buffer}, nil
}

func (s *Server) handleClose(_ context.Context, _ CloseInput) (CloseOutput, error) {
	id := s.controller.Editor().State().ScenarioID()
	s.controller.Close()
	if id == "" {
		return CloseOutput{Message: "No scenario was open."}, nil
	}
	return CloseOutput{Message: fmt.Sprintf("Closed %s. Your draft is saved.", id)}, nil
}

func (s *Server) handleProgress(_ context.Context, input ProgressInput) (ProgressOutput, error) {
	totals := s.progress.Totals()
	out := ProgressOutput{
		TotalPoints:    totals.TotalPoints,
		CompletedCount: totals.CompletedCount,
		Records:        []ledger.Record{},
	}

	if input.ScenarioID != "" {
		if rec, ok := s.progress.Record(input.ScenarioID); ok {
			rec.LastSolution = ""
			out.Records = append(out.Records, rec)
		}
		return out, nil
	}

	for _, rec := range s.progress.Snapshot().Scenarios {
		rec.LastSolution = ""
		out.Records = append(out.Records, rec)
	}
	slices.SortFunc(out.Records, func(a, b ledger.Record) int {
		return strings.Compare(a.ScenarioID, b.ScenarioID)
	})
	return out, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
