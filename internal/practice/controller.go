package practice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// Mode is the top-level view state
type Mode int

const (
	ModeBrowse Mode = iota
	ModePractice
)

func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModePractice:
		return "practice"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DetailSource fetches full scenario details
type DetailSource interface {
	GetScenario(ctx context.Context, id string) (*domain.ScenarioDetail, error)
}

// Controller is the session state container shared by every front end
type Controller struct {
	mu            sync.Mutex
	mode          Mode
	selectSeq     uint64
	selecting     bool
	filter        catalog.Filter
	showCompleted bool

	cache     *catalog.Cache
	details   DetailSource
	editor    *Editor
	submitter *Submitter
	logger    *slog.Logger
}

// NewController creates a controller in browse mode
func NewController(cache *catalog.Cache, details DetailSource, editor *Editor, submitter *Submitter, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		mode:          ModeBrowse,
		showCompleted: true,
		cache:         cache,
		details:       details,
		editor:        editor,
		submitter:     submitter,
		logger:        logger,
	}
}

// Mode returns the current view state
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Selecting reports whether a detail fetch is in flight
func (c *Controller) Selecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selecting
}

// Editor returns the editor
func (c *Controller) Editor() *Editor { return c.editor }

// Submitter returns the submitter
func (c *Controller) Submitter() *Submitter { return c.submitter }

// Catalog returns the catalog cache
func (c *Controller) Catalog() *catalog.Cache { return c.cache }

// Select fetches the scenario detail and enters practice mode. A response
// for a selection that has since been replaced or closed is discarded.
func (c *Controller) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	c.selectSeq++
	seq := c.selectSeq
	c.selecting = true
	c.mu.Unlock()

	detail, err := c.details.GetScenario(ctx, id)

	c.mu.Lock()
	if seq != c.selectSeq {
		c.mu.Unlock()
		c.logger.Debug("discarding stale scenario detail", "scenario_id", id)
		return catalog.ErrSuperseded
	}
	c.selecting = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("select scenario %s: %w", id, err)
	}
	c.mode = ModePractice
	c.mu.Unlock()

	c.editor.Open(*detail)
	c.logger.Info("scenario opened", "scenario_id", id)
	return nil
}

// Close returns to browse mode and unbinds the editor. Progress is kept.
func (c *Controller) Close() {
	c.mu.Lock()
	c.selectSeq++
	c.selecting = false
	c.mode = ModeBrowse
	c.mu.Unlock()

	c.editor.Close()
}

// Submit forwards to the submitter
func (c *Controller) Submit(ctx context.Context) (*Submission, error) {
	return c.submitter.Submit(ctx)
}

// Refresh reloads the catalog with the current filter
func (c *Controller) Refresh(ctx context.Context) error {
	return c.cache.Load(ctx, c.Filter())
}

// Filter returns a copy of the current filter
func (c *Controller) Filter() catalog.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.Filter{
		Topics:     slices.Clone(c.filter.Topics),
		Difficulty: c.filter.Difficulty,
	}
}

// ToggleTopic adds or removes topic from the filter and reloads
func (c *Controller) ToggleTopic(ctx context.Context, topic domain.Topic) error {
	c.mu.Lock()
	if i := slices.Index(c.filter.Topics, topic); i >= 0 {
		c.filter.Topics = slices.Delete(slices.Clone(c.filter.Topics), i, i+1)
	} else {
		c.filter.Topics = append(slices.Clone(c.filter.Topics), topic)
	}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetDifficulty sets the difficulty filter ("" clears it) and reloads
func (c *Controller) SetDifficulty(ctx context.Context, d domain.Difficulty) error {
	c.mu.Lock()
	c.filter.Difficulty = d
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetFilter replaces the topic and difficulty filters and reloads
func (c *Controller) SetFilter(ctx context.Context, filter catalog.Filter) error {
	c.mu.Lock()
	c.filter = catalog.Filter{
		Topics:     slices.Clone(filter.Topics),
		Difficulty: filter.Difficulty,
	}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// SetShowCompleted sets whether completed scenarios are listed
func (c *Controller) SetShowCompleted(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showCompleted = show
}

// ClearFilters removes topic and difficulty filters and reloads
func (c *Controller) ClearFilters(ctx context.Context) error {
	c.mu.Lock()
	c.filter = catalog.Filter{}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// ToggleShowCompleted flips whether completed scenarios are listed
func (c *Controller) ToggleShowCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showCompleted = !c.showCompleted
	return c.showCompleted
}

// ShowCompleted reports whether completed scenarios are listed
func (c *Controller) ShowCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showCompleted
}

// Visible returns the cached listing under the show-completed setting
func (c *Controller) Visible() []domain.ScenarioSummary {
	return c.cache.Filtered(c.ShowCompleted())
}
