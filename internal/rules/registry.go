package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swayhq/sway/internal/types"
)

// Predicate is a user-supplied check for Custom<"name"> rules.
type Predicate func(value any) bool

// Registry maps custom rule names to predicates.
//
// Rules are registered while the app is being configured. Freeze is called
// when serving starts; after that the registry is read-only and safe for
// concurrent lookups.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
	frozen     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{predicates: make(map[string]Predicate)}
}

// Register binds name to fn. A later registration under the same name
// replaces the earlier one.
func (r *Registry) Register(name string, fn Predicate) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: name=%q", types.ErrInvalidCustomRule, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", types.ErrRegistryFrozen, name)
	}
	r.predicates[name] = fn
	return nil
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.predicates[name]
	return fn, ok
}

// Names lists registered rule names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}
