package descriptor

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/swayhq/sway/internal/types"
)

// Catalog is an in-memory Provider holding object and enum declarations.
// It is filled during startup and read concurrently afterwards.
type Catalog struct {
	mu      sync.RWMutex
	objects map[Ref][]Field
	pending map[Ref]bool // declared, fields not yet attached
	enums   map[Ref][]any
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		objects: make(map[Ref][]Field),
		pending: make(map[Ref]bool),
		enums:   make(map[Ref][]any),
	}
}

// DeclareObject registers an object with its fields.
// Returns ErrDuplicateDeclaration if ref is already a complete object or an enum.
func (c *Catalog) DeclareObject(ref Ref, fields []Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.enums[ref]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	if _, ok := c.objects[ref]; ok && !c.pending[ref] {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	c.objects[ref] = fields
	delete(c.pending, ref)
	return nil
}

// reserveObject marks ref as an object whose fields are still being built.
// References to it resolve as objects; Fields fails until DeclareObject runs.
func (c *Catalog) reserveObject(ref Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.enums[ref]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	if _, ok := c.objects[ref]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	c.objects[ref] = nil
	c.pending[ref] = true
	return nil
}

// DeclareEnum registers an enum with its member values.
// Integer members are normalized to float64 to match decoded JSON numbers.
func (c *Catalog) DeclareEnum(ref Ref, members []any) error {
	if len(members) > types.MaxEnumMembers {
		return fmt.Errorf("%w: %s has %d", types.ErrTooManyEnumMembers, ref, len(members))
	}
	normalized := make([]any, len(members))
	for i, m := range members {
		normalized[i] = NormalizeScalar(m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objects[ref]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	if _, ok := c.enums[ref]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicateDeclaration, ref)
	}
	c.enums[ref] = normalized
	return nil
}

// Fields implements Provider.
func (c *Catalog) Fields(ref Ref) ([]Field, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fields, ok := c.objects[ref]
	if !ok || c.pending[ref] {
		return nil, fmt.Errorf("%w: %s", types.ErrUnresolvedObject, ref)
	}
	return fields, nil
}

// EnumMembers implements Provider.
func (c *Catalog) EnumMembers(ref Ref) ([]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	members, ok := c.enums[ref]
	if !ok || len(members) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrUnresolvedEnum, ref)
	}
	return members, nil
}

// Resolve finds the declaration a bare or qualified name refers to.
// A qualified name ("models.User") is matched exactly. A bare name is looked
// up in source first, then across all sources when exactly one matches.
// The returned descriptor is an Enum or Object reference; unknown names yield
// an Object reference that fails at compile time.
func (c *Catalog) Resolve(source, name string) *Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ref, ok := splitQualified(name); ok {
		return c.classify(ref)
	}

	local := Ref{Source: source, Name: name}
	if c.has(local) {
		return c.classify(local)
	}

	var found []Ref
	for ref := range c.objects {
		if ref.Name == name {
			found = append(found, ref)
		}
	}
	for ref := range c.enums {
		if ref.Name == name {
			found = append(found, ref)
		}
	}
	if len(found) == 1 {
		return c.classify(found[0])
	}
	return Object(local)
}

func (c *Catalog) has(ref Ref) bool {
	_, obj := c.objects[ref]
	_, enum := c.enums[ref]
	return obj || enum
}

func (c *Catalog) classify(ref Ref) *Descriptor {
	if _, ok := c.enums[ref]; ok {
		return Enum(ref)
	}
	return Object(ref)
}

// Objects lists the complete object declarations sorted by reference.
func (c *Catalog) Objects() []Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()

	refs := make([]Ref, 0, len(c.objects))
	for ref := range c.objects {
		if !c.pending[ref] {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// FindObject looks up a complete object declaration by bare or qualified name.
func (c *Catalog) FindObject(name string) (Ref, bool) {
	d := c.Resolve("", name)
	if d.Kind != KindObject {
		return Ref{}, false
	}
	if _, err := c.Fields(d.Ref); err != nil {
		return Ref{}, false
	}
	return d.Ref, true
}

// splitQualified splits "source.Name" at the last dot.
func splitQualified(name string) (Ref, bool) {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			return Ref{Source: name[:i], Name: name[i+1:]}, true
		}
	}
	return Ref{}, false
}

// NormalizeScalar converts Go numbers to float64 and named string or bool
// types to their plain form, so enum members compare equal to values decoded
// from JSON. Other values pass through.
func NormalizeScalar(v any) any {
	switch n := v.(type) {
	case nil, string, bool, float64:
		return v
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
