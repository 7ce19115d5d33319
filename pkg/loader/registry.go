// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/exp/maps"
)

// defaultRegistry backs Register and DefaultRegistry.
var defaultRegistry = NewRegistry(nil)

// Registry is an in-memory loader for modules provided by the host program.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]any
}

// NewRegistry returns a registry seeded with modules. The map is copied.
func NewRegistry(modules map[string]any) *Registry {
	r := &Registry{modules: make(map[string]any, len(modules))}
	maps.Copy(r.modules, modules)
	return r
}

// DefaultRegistry returns the process-wide registry consulted by Default.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a module to the process-wide registry.
func Register(identifier string, value any) {
	defaultRegistry.Register(identifier, value)
}

// Register adds or replaces the module for identifier.
func (r *Registry) Register(identifier string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[identifier] = value
}

// Unregister removes identifier. It reports whether the identifier was present.
func (r *Registry) Unregister(identifier string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.modules[identifier]
	delete(r.modules, identifier)
	return ok
}

// Load returns the registered module for identifier.
func (r *Registry) Load(ctx context.Context, identifier string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.modules[identifier]
	if !ok {
		return nil, &NotFoundError{Identifier: identifier}
	}
	return v, nil
}

// Identifiers returns the registered identifiers in lexical order.
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := maps.Keys(r.modules)
	slices.Sort(ids)
	return ids
}
