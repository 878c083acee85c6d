package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry holds registered plugins in registration order
type Registry struct {
	plugins map[string]Plugin
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin. IDs must be unique and non-empty.
func (r *Registry) Register(p Plugin) error {
	id := p.Info().ID
	if id == "" {
		return errors.New("plugin ID must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[id]; exists {
		return fmt.Errorf("plugin %q already registered", id)
	}
	r.plugins[id] = p
	r.order = append(r.order, id)
	return nil
}

// Get returns the plugin registered under id
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// List returns the plugins in registration order
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// InitializeAll initializes plugins in registration order and stops at the
// first failure.
func (r *Registry) InitializeAll(ctx context.Context, config PluginConfig) error {
	for _, p := range r.List() {
		if err := p.Initialize(ctx, config); err != nil {
			return fmt.Errorf("initialize plugin %q: %w", p.Info().ID, err)
		}
	}
	return nil
}

// ShutdownAll shuts plugins down in reverse order. Every plugin is given the
// chance to shut down; failures are joined.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	plugins := r.List()
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := plugins[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown plugin %q: %w", plugins[i].Info().ID, err))
		}
	}
	return errors.Join(errs...)
}
