package routing

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/swayhq/sway/internal/types"
)

// Route is one route file with the methods its handler serves.
type Route struct {
	Pattern string
	File    string
	Handler any
	Methods []*Method
}

// Method returns the handler method serving m, if any.
func (r *Route) Method(m types.RestMethod) (*Method, bool) {
	for _, method := range r.Methods {
		if method.Rest == m {
			return method, true
		}
	}
	return nil, false
}

// Table holds the routes of an app keyed by pattern.
type Table struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{routes: make(map[string]*Route)}
}

// Add registers r. Returns ErrDuplicateRoute when its pattern is taken.
func (t *Table) Add(r *Route) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.routes[r.Pattern]; ok {
		return fmt.Errorf("%w: %q from %s and %s", types.ErrDuplicateRoute, r.Pattern, prev.File, r.File)
	}
	t.routes[r.Pattern] = r
	return nil
}

// Get returns the route registered under pattern.
func (t *Table) Get(pattern string) (*Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[pattern]
	return r, ok
}

// Routes lists all routes sorted by pattern.
func (t *Table) Routes() []*Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// String renders the table as a tree of patterns and methods:
//
//	/users (GET, POST)
//	/users/{id} (GET, PUT, DELETE)
func (t *Table) String() string {
	var b strings.Builder
	for _, r := range t.Routes() {
		names := make([]string, len(r.Methods))
		for i, m := range r.Methods {
			names[i] = string(m.Rest)
		}
		fmt.Fprintf(&b, "%s (%s)\n", r.Pattern, strings.Join(names, ", "))
	}
	return b.String()
}
