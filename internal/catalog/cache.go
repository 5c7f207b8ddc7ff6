// Package catalog caches the scenario listing and topic metadata fetched
// from the scenario service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/oaspractice/internal/client"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// ErrSuperseded is returned when a newer load started before this one finished
var ErrSuperseded = errors.New("superseded by a newer request")

// Filter narrows a listing; see client.Filter
type Filter = client.Filter

// Source fetches catalog data
type Source interface {
	ListScenarios(ctx context.Context, filter client.Filter) (*client.ScenarioList, error)
	ListTopics(ctx context.Context) ([]domain.TopicInfo, error)
}

// Completion reports which scenarios are already completed
type Completion interface {
	IsCompleted(id string) bool
}

// CatalogFetchError is returned when a load fails. The previous cache
// contents are kept.
type CatalogFetchError struct {
	Filter Filter
	Err    error
}

func (e *CatalogFetchError) Error() string {
	return fmt.Sprintf("fetch catalog: %v", e.Err)
}

func (e *CatalogFetchError) Unwrap() error {
	return e.Err
}

// Cache holds the most recent successful listing
type Cache struct {
	mu         sync.Mutex
	src        Source
	completion Completion
	logger     *slog.Logger

	scenarios []domain.ScenarioSummary
	topics    []domain.TopicInfo
	filter    Filter
	loadedAt  time.Time
	loading   bool
	seq       uint64
}

// NewCache creates an empty cache
func NewCache(src Source, completion Completion, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{src: src, completion: completion, logger: logger}
}

// Load fetches the listing for filter and the topic metadata concurrently,
// then replaces the cache wholesale. Only the latest call may apply.
func (c *Cache) Load(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.loading = true
	c.mu.Unlock()

	var (
		list   *client.ScenarioList
		topics []domain.TopicInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.src.ListScenarios(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		topics, err = c.src.ListTopics(gctx)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("discarding stale catalog response", "seq", seq, "latest", c.seq)
		return ErrSuperseded
	}
	c.loading = false

	if err != nil {
		c.logger.Warn("catalog load failed", "error", err)
		return &CatalogFetchError{Filter: filter, Err: err}
	}

	c.scenarios = slices.Clone(list.Scenarios)
	c.topics = slices.Clone(topics)
	c.filter = filter
	c.loadedAt = time.Now()
	c.logger.Debug("catalog loaded", "scenarios", len(c.scenarios), "topics", len(c.topics))
	return nil
}

// Loading reports whether the latest load is still in flight
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Loaded reports whether any load has succeeded
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.loadedAt.IsZero()
}

// Scenarios returns the cached listing in fetch order
func (c *Cache) Scenarios() []domain.ScenarioSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.scenarios)
}

// Topics returns the cached topic metadata
func (c *Cache) Topics() []domain.TopicInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.topics)
}

// Filter returns the filter of the cached listing
func (c *Cache) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Filtered returns the cached listing, dropping completed scenarios
// unless showCompleted is set
func (c *Cache) Filtered(showCompleted bool) []domain.ScenarioSummary {
	c.mu.Lock()
	scenarios := slices.Clone(c.scenarios)
	c.mu.Unlock()

	if showCompleted || c.completion == nil {
		return scenarios
	}
	return slices.DeleteFunc(scenarios, func(s domain.ScenarioSummary) bool {
		return c.completion.IsCompleted(s.ID)
	})
}

// Find returns the cached summary for id
func (c *Cache) Find(id string) (domain.ScenarioSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.scenarios, func(s domain.ScenarioSummary) bool { return s.ID == id })
	if i < 0 {
		return domain.ScenarioSummary{}, false
	}
	return c.scenarios[i], true
}
