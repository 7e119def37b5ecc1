package ai

import (
	"log"
	"sync"

	"github.com/taskpilot/taskpilot-go/internal/settings"
)

const selectedModelKey = "selected_model"

// Registry owns the currently selected model. The selection is seeded from
// the settings store at startup and persisted back on change; reads and
// writes go through the registry rather than module-level state so the
// mutation point stays in one place.
type Registry struct {
	mu      sync.RWMutex
	current string
	store   *settings.Repository
	logger  *log.Logger
}

// NewRegistry builds a Registry seeded from the settings store. fallback is
// used when nothing is persisted; an unknown persisted value is discarded in
// favor of the fallback.
func NewRegistry(store *settings.Repository, fallback string, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	if !IsKnownModel(fallback) {
		fallback = DefaultModelID
	}

	current := store.Get(selectedModelKey, fallback)
	if !IsKnownModel(current) {
		logger.Printf("ai: persisted model %q is not in the known list, using %q", current, fallback)
		current = fallback
	}

	return &Registry{current: current, store: store, logger: logger}
}

// Current returns the selected model id.
func (r *Registry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Set selects a model and persists the choice. Returns whether the
// persistence write succeeded; the in-memory selection changes either way.
// Callers must validate the id against KnownModels first.
func (r *Registry) Set(id string) bool {
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()

	persisted := r.store.Set(selectedModelKey, id)
	if !persisted {
		r.logger.Printf("ai: model selection %q not persisted", id)
	}
	return persisted
}
