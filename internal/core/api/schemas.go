// Package api provides the admin gRPC validation service.
package api

import (
	"fmt"
	"sort"

	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/rules"
	"github.com/swayhq/sway/internal/types"
)

// Schema is a declared object compiled into a rule tree.
type Schema struct {
	Name  string          `json:"name" yaml:"name"`
	Rule  types.FieldRule `json:"rule" yaml:"rule"`
	Stats rules.TreeStats `json:"stats" yaml:"stats"`
}

// Schemas holds every object of a catalog compiled by one engine.
// It is read-only after CompileSchemas returns.
type Schemas struct {
	catalog *descriptor.Catalog
	engine  *rules.Engine
	byRef   map[descriptor.Ref]*Schema
}

// CompileSchemas compiles each complete object declaration in catalog.
// The first compile error aborts.
func CompileSchemas(catalog *descriptor.Catalog, engine *rules.Engine) (*Schemas, error) {
	s := &Schemas{
		catalog: catalog,
		engine:  engine,
		byRef:   make(map[descriptor.Ref]*Schema),
	}
	for _, ref := range catalog.Objects() {
		field, err := engine.CompileField(ref.Name, false, descriptor.Object(ref))
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", ref, err)
		}
		s.byRef[ref] = &Schema{
			Name:  ref.String(),
			Rule:  field,
			Stats: rules.Stats(field),
		}
	}
	return s, nil
}

// Engine returns the engine the schemas were compiled with.
func (s *Schemas) Engine() *rules.Engine {
	return s.engine
}

// Find looks a schema up by bare ("User") or qualified ("shop.User") name.
func (s *Schemas) Find(name string) (*Schema, error) {
	ref, ok := s.catalog.FindObject(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSchemaNotFound, name)
	}
	schema, ok := s.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSchemaNotFound, name)
	}
	return schema, nil
}

// All returns the schemas sorted by name.
func (s *Schemas) All() []*Schema {
	all := make([]*Schema, 0, len(s.byRef))
	for _, schema := range s.byRef {
		all = append(all, schema)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Len returns the number of compiled schemas.
func (s *Schemas) Len() int {
	return len(s.byRef)
}

// Check validates value against schema. With query set, value is first
// coerced the way query strings are; a coercion failure is returned as the
// only violation.
func (s *Schemas) Check(schema *Schema, value any, query bool) (coerced any, violations []string) {
	if !query {
		return value, s.engine.Validate(schema.Rule, value)
	}
	coerced, violations, _ = s.engine.CoerceAndValidate(schema.Rule, value)
	return coerced, violations
}
