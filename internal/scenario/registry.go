package scenario

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

// Registry provides access to loaded scenarios
type Registry struct {
	loader    *Loader
	logger    *slog.Logger
	mu        sync.RWMutex
	scenarios map[string]*File
}

// NewRegistry creates a new scenario registry
func NewRegistry(loader *Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		loader:    loader,
		logger:    logger,
		scenarios: make(map[string]*File),
	}
}

// Load reads all scenarios from disk, replacing the registry contents.
// Invalid files are logged and skipped.
func (r *Registry) Load() error {
	files, fails, err := r.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	for _, f := range fails {
		r.logger.Error("failed to load scenario", "path", f.Path, "error", f.Err)
	}

	scenarios := make(map[string]*File, len(files))
	for _, f := range files {
		scenarios[f.ID] = f
	}

	r.mu.Lock()
	r.scenarios = scenarios
	r.mu.Unlock()

	r.logger.Info("scenarios loaded", "count", len(scenarios), "skipped", len(fails), "path", r.loader.BasePath())
	return nil
}

// Reload reloads all scenarios
func (r *Registry) Reload() error {
	return r.Load()
}

// Get returns a scenario by ID
func (r *Registry) Get(id string) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScenarioNotFound, id)
	}
	return f, nil
}

// IDs returns every scenario id, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.scenarios))
	for id := range r.scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns how many scenarios are loaded
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}

// List returns summaries matching any of topics (all when empty) and
// difficulty (any when empty), sorted by difficulty then id
func (r *Registry) List(topics []domain.Topic, difficulty domain.Difficulty) []domain.ScenarioSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]domain.ScenarioSummary, 0, len(r.scenarios))
	for _, f := range r.scenarios {
		if len(topics) > 0 && !slices.ContainsFunc(topics, func(t domain.Topic) bool {
			return slices.Contains(f.Topics, t)
		}) {
			continue
		}
		if difficulty != "" && f.Difficulty != difficulty {
			continue
		}
		results = append(results, f.Summary())
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i].Difficulty.Rank(), results[j].Difficulty.Rank()
		if ri != rj {
			return ri < rj
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// Topics returns metadata for every known topic with scenario counts
func (r *Registry) Topics() []domain.TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TopicInfo, 0, len(domain.Topics))
	for _, t := range domain.Topics {
		count := 0
		for _, f := range r.scenarios {
			if slices.Contains(f.Topics, t) {
				count++
			}
		}
		meta := topicMetadata[t]
		out = append(out, domain.TopicInfo{
			ID:            string(t),
			Name:          TopicName(t),
			Description:   meta.description,
			ScenarioCount: count,
		})
	}
	return out
}
