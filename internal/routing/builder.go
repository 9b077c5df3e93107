package routing

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/rules"
	"github.com/swayhq/sway/internal/types"
)

// Builder turns route files and handlers into compiled routes.
type Builder struct {
	root      string
	ctxType   reflect.Type
	engine    *rules.Engine
	reflector *descriptor.Reflector
	table     *Table
	logger    *slog.Logger
}

// NewBuilder creates a builder for routes under root. The reflector must
// declare into the catalog the engine compiles against.
func NewBuilder(root string, ctxType reflect.Type, engine *rules.Engine, reflector *descriptor.Reflector, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		root:      root,
		ctxType:   ctxType,
		engine:    engine,
		reflector: reflector,
		table:     NewTable(),
		logger:    logger,
	}
}

// Engine returns the engine routes are compiled with.
func (b *Builder) Engine() *rules.Engine {
	return b.engine
}

// Table returns the routes built so far.
func (b *Builder) Table() *Table {
	return b.table
}

// Add derives the pattern of file, compiles the rules of every handler
// method and registers the route.
func (b *Builder) Add(file string, handler any) (*Route, error) {
	pattern, err := PatternFromFile(b.root, file)
	if err != nil {
		return nil, err
	}
	if _, ok := b.table.Get(pattern); ok {
		return nil, fmt.Errorf("%w: %q (%s)", types.ErrDuplicateRoute, pattern, file)
	}

	methods, err := Discover(handler, b.ctxType)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", pattern, err)
	}
	for _, m := range methods {
		if err := b.compile(m); err != nil {
			return nil, fmt.Errorf("route %q %s: %w", pattern, m.Rest, err)
		}
		b.logger.Debug("route method compiled", "route", pattern, "method", m.Rest, "file", file)
	}

	r := &Route{Pattern: pattern, File: file, Handler: handler, Methods: methods}
	if err := b.table.Add(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (b *Builder) compile(m *Method) error {
	if m.Input != nil {
		rule, err := b.compileType(m.InputName(), m.InputOptional(), m.Input)
		if err != nil {
			return err
		}
		m.InputRule = &rule
	}
	if m.Params != nil && m.Params.Kind() != reflect.Map {
		rule, err := b.compileType(ParamParams, false, m.Params)
		if err != nil {
			return err
		}
		m.ParamsRule = &rule
	}
	return nil
}

func (b *Builder) compileType(name string, optional bool, t reflect.Type) (types.FieldRule, error) {
	d, err := b.reflector.Describe(t)
	if err != nil {
		return types.FieldRule{}, fmt.Errorf("%s: %w", name, err)
	}
	return b.engine.CompileField(name, optional, d)
}

// MethodRules is the compiled form of one route method, as stored in
// snapshots and listed by the CLI.
type MethodRules struct {
	Route  string           `json:"route" yaml:"route"`
	Method types.RestMethod `json:"method" yaml:"method"`
	Input  *types.FieldRule `json:"input,omitempty" yaml:"input,omitempty"`
	Params *types.FieldRule `json:"params,omitempty" yaml:"params,omitempty"`
	Stats  *rules.TreeStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Rules lists the compiled rules of every route method, sorted by route.
func (t *Table) Rules() []MethodRules {
	var out []MethodRules
	for _, r := range t.Routes() {
		for _, m := range r.Methods {
			mr := MethodRules{Route: r.Pattern, Method: m.Rest, Input: m.InputRule, Params: m.ParamsRule}
			if m.InputRule != nil {
				s := rules.Stats(*m.InputRule)
				mr.Stats = &s
			}
			out = append(out, mr)
		}
	}
	return out
}
