// Package tui is the terminal front end of a practice session. All state
// lives in the practice controller; the model only renders it and turns key
// presses into controller calls.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
	"github.com/felixgeelhaar/oaspractice/internal/syntax"
)

// DefaultRequestTimeout bounds each service call made from the UI
const DefaultRequestTimeout = 30 * time.Second

// Progress is the read side of the ledger
type Progress interface {
	Totals() ledger.Totals
	Record(id string) (ledger.Record, bool)
}

// Options tunes the model
type Options struct {
	SyntaxDelay    time.Duration
	RequestTimeout time.Duration
}

// Messages

type catalogLoadedMsg struct{ err error }

type scenarioOpenedMsg struct {
	id  string
	err error
}

type syntaxCheckedMsg struct {
	content string
	errs    []domain.SyntaxError
}

type submittedMsg struct {
	sub *practice.Submission
	err error
}

// Model is the bubbletea model
type Model struct {
	ctrl     *practice.Controller
	progress Progress
	keys     keyMap
	timeout  time.Duration

	editor    textarea.Model
	debouncer *syntax.Debouncer
	syntaxCh  chan syntaxCheckedMsg

	cursor     int
	topicIdx   int
	diffIdx    int
	status     string
	statusErr  bool
	submitting bool

	width    int
	height   int
	quitting bool
}

// New creates the model. Call Close when the program exits.
func New(ctrl *practice.Controller, progress Progress, opts Options) Model {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}

	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Placeholder = "openapi: \"3.0.3\""
	ta.SetWidth(80)
	ta.SetHeight(16)

	ch := make(chan syntaxCheckedMsg, 1)
	report := func(content string, errs []domain.SyntaxError) {
		msg := syntaxCheckedMsg{content: content, errs: errs}
		// keep only the newest result
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}

	return Model{
		ctrl:      ctrl,
		progress:  progress,
		keys:      defaultKeyMap(),
		timeout:   opts.RequestTimeout,
		editor:    ta,
		debouncer: syntax.NewDebouncer(opts.SyntaxDelay, report),
		syntaxCh:  ch,
	}
}

// Close stops background work
func (m Model) Close() {
	m.debouncer.Stop()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCatalog(), waitForSyntax(m.syntaxCh))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(max(20, msg.Width-4))
		m.editor.SetHeight(max(5, msg.Height/2))
		return m, nil

	case catalogLoadedMsg:
		if errors.Is(msg.err, catalog.ErrSuperseded) {
			return m, nil
		}
		if msg.err != nil {
			m.setError(fmt.Sprintf("Could not load scenarios: %v", msg.err))
			return m, nil
		}
		m.clampCursor()
		m.setStatus(fmt.Sprintf("%d scenarios", len(m.ctrl.Visible())))
		return m, nil

	case scenarioOpenedMsg:
		return m.scenarioOpened(msg)

	case syntaxCheckedMsg:
		m.ctrl.Editor().ApplySyntaxCheck(msg.content, msg.errs)
		return m, waitForSyntax(m.syntaxCh)

	case submittedMsg:
		return m.submitted(msg)

	case tea.KeyMsg:
		if m.ctrl.Mode() == practice.ModePractice {
			return m.updatePractice(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.ctrl.Mode() == practice.ModePractice {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.ctrl.Visible()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		if m.ctrl.Selecting() || len(visible) == 0 {
			return m, nil
		}
		id := visible[m.cursor].ID
		m.setStatus("Opening " + id + "...")
		return m, m.openScenario(id)

	case key.Matches(msg, m.keys.Topic):
		m.topicIdx = (m.topicIdx + 1) % (len(domain.Topics) + 1)
		return m, m.applyFilter()

	case key.Matches(msg, m.keys.Difficulty):
		m.diffIdx = (m.diffIdx + 1) % (len(domain.Difficulties) + 1)
		return m, m.applyFilter()

	case key.Matches(msg, m.keys.ShowCompleted):
		m.ctrl.ToggleShowCompleted()
		m.clampCursor()

	case key.Matches(msg, m.keys.ClearFilters):
		m.topicIdx, m.diffIdx = 0, 0
		return m, m.clearFilters()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadCatalog()
	}

	return m, nil
}

func (m Model) updatePractice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Close):
		m.ctrl.Close()
		m.editor.Blur()
		m.editor.SetValue("")
		m.submitting = false
		m.clampCursor()
		m.setStatus("Draft saved")
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.submitting {
			return m, nil
		}
		if !m.ctrl.Editor().CanSubmit() {
			m.setError("Fix the syntax errors before submitting")
			return m, nil
		}
		m.submitting = true
		m.setStatus("Checking...")
		return m, m.submit()

	case key.Matches(msg, m.keys.Reset):
		editor := m.ctrl.Editor()
		if err := editor.Reset(); err != nil {
			return m, nil
		}
		buffer := editor.State().Buffer
		m.editor.SetValue(buffer)
		m.debouncer.Trigger(buffer)
		m.setStatus("Starter code restored")
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.setContent(after)
	}
	return m, cmd
}

// setContent pushes the textarea content into the editor and schedules
// a syntax check
func (m *Model) setContent(content string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.ctrl.Editor().Edit(ctx, content); err != nil {
		m.setError(fmt.Sprintf("Draft not saved: %v", err))
	}
	m.debouncer.Trigger(content)
}

func (m Model) scenarioOpened(msg scenarioOpenedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, catalog.ErrSuperseded):
		return m, nil
	case errors.Is(msg.err, domain.ErrScenarioNotFound):
		m.setError(fmt.Sprintf("Scenario %s no longer exists", msg.id))
		return m, m.loadCatalog()
	case msg.err != nil:
		m.setError(fmt.Sprintf("Could not open %s: %v", msg.id, msg.err))
		return m, nil
	}

	buffer := m.ctrl.Editor().State().Buffer
	m.editor.SetValue(buffer)
	m.debouncer.Trigger(buffer)
	m.setStatus("Editing " + msg.id)
	cmd := m.editor.Focus()
	return m, cmd
}

func (m Model) submitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	m.submitting = false

	var svcErr *practice.ValidationServiceError
	switch {
	case errors.As(msg.err, &svcErr):
		m.setError(fmt.Sprintf("Validation service unavailable: %v", svcErr.Err))
		return m, nil
	case msg.sub == nil && msg.err != nil:
		m.setError(msg.err.Error())
		return m, nil
	case msg.err != nil:
		m.setError(fmt.Sprintf("Progress not saved: %v", msg.err))
		return m, nil
	}

	r := msg.sub.Result
	o := msg.sub.Outcome
	switch {
	case o.NewCompletion:
		m.setStatus(fmt.Sprintf("Completed! +%d points", o.Credited))
	case o.Credited > 0:
		m.setStatus(fmt.Sprintf("Score %d/%d, +%d points", r.Score, r.MaxScore, o.Credited))
	default:
		m.setStatus(fmt.Sprintf("Score %d/%d", r.Score, r.MaxScore))
	}
	return m, nil
}

// Commands

func (m Model) loadCatalog() tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return catalogLoadedMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m Model) applyFilter() tea.Cmd {
	filter := catalog.Filter{}
	if m.topicIdx > 0 {
		filter.Topics = []domain.Topic{domain.Topics[m.topicIdx-1]}
	}
	if m.diffIdx > 0 {
		filter.Difficulty = domain.Difficulties[m.diffIdx-1]
	}

	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return catalogLoadedMsg{err: ctrl.SetFilter(ctx, filter)}
	}
}

func (m Model) clearFilters() tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return catalogLoadedMsg{err: ctrl.ClearFilters(ctx)}
	}
}

func (m Model) openScenario(id string) tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return scenarioOpenedMsg{id: id, err: ctrl.Select(ctx, id)}
	}
}

func (m Model) submit() tea.Cmd {
	ctrl, timeout := m.ctrl, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sub, err := ctrl.Submit(ctx)
		return submittedMsg{sub: sub, err: err}
	}
}

func waitForSyntax(ch <-chan syntaxCheckedMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// helpers

func (m *Model) clampCursor() {
	n := len(m.ctrl.Visible())
	if m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}
