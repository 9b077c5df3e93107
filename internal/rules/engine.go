package rules

import (
	"errors"

	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/types"
)

// Engine bundles the compiler, validator and coercer over one descriptor
// provider and one custom rule registry.
type Engine struct {
	compiler  *Compiler
	validator *Validator
	coercer   *Coercer
	registry  *Registry
}

// NewEngine creates an engine. A nil registry gets an empty one.
func NewEngine(provider descriptor.Provider, registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	patterns := &patternCache{}
	return &Engine{
		compiler:  newCompiler(provider, patterns),
		validator: newValidator(registry, patterns),
		coercer:   NewCoercer(),
		registry:  registry,
	}
}

// Registry returns the custom rule registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// CompileField lowers d to the field rule of a parameter or property.
func (e *Engine) CompileField(name string, optional bool, d *descriptor.Descriptor) (types.FieldRule, error) {
	return e.compiler.CompileField(name, optional, d)
}

// Validate returns the violations of value against field.
func (e *Engine) Validate(field types.FieldRule, value any) []string {
	return e.validator.Validate(field, value)
}

// Coerce reshapes a raw query value according to field.
func (e *Engine) Coerce(field types.FieldRule, raw any) (any, error) {
	return e.coercer.Coerce(field, raw)
}

// CoerceAndValidate coerces raw and validates the result. A coercion
// failure is reported as a single violation alongside the error.
func (e *Engine) CoerceAndValidate(field types.FieldRule, raw any) (any, []string, error) {
	value, err := e.coercer.Coerce(field, raw)
	if err != nil {
		if errors.Is(err, types.ErrCoercionFailed) {
			return raw, []string{err.Error()}, err
		}
		return raw, nil, err
	}
	return value, e.validator.Validate(field, value), nil
}
