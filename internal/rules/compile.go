// internal/rules/compile.go
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/types"
)

/*
 * Rule compilation.
 *
 * Lowers a Type Descriptor to a Rule Tree once per route parameter at
 * startup. Descriptor kinds are tried in a fixed order:
 *
 *   boolean, enum, intersection, union, array, number,
 *   annotation marker, object, string, anything else (any)
 *
 * Lowering:
 *   - intersection: AND lists concatenate; OR lists multiply (cross product)
 *   - union: every branch contributes its alternatives to the OR list; a
 *     branch with its own OR list is distributed over its AND list
 *   - array: the element must lower to exactly one rule, which becomes the
 *     element kind of a single IsArray rule
 *   - object: every field compiles recursively into an IsObject rule
 *
 * Keys: structurally identical rules share a key. Object keys embed a digest
 * of the nested field rules, so two objects share a key only when their
 * validation is identical.
 *
 * Compile errors carry the dotted field location ("body.address.zip").
 */

// Compiler lowers descriptors to rule trees. It holds no per-call state and
// may be shared.
type Compiler struct {
	provider descriptor.Provider
	patterns *patternCache
}

// NewCompiler creates a compiler resolving references through provider.
func NewCompiler(provider descriptor.Provider) *Compiler {
	return newCompiler(provider, &patternCache{})
}

func newCompiler(provider descriptor.Provider, patterns *patternCache) *Compiler {
	return &Compiler{provider: provider, patterns: patterns}
}

type compileState struct {
	path     []string
	visiting map[descriptor.Ref]bool
	depth    int
}

func newCompileState(root string) *compileState {
	st := &compileState{visiting: make(map[descriptor.Ref]bool)}
	if root != "" {
		st.path = []string{root}
	}
	return st
}

func (st *compileState) wrap(err error) error {
	if len(st.path) == 0 {
		return err
	}
	return fmt.Errorf("%s: %w", strings.Join(st.path, "."), err)
}

// Compile lowers d to a rule set.
func (c *Compiler) Compile(d *descriptor.Descriptor) (types.RuleSet, error) {
	return c.compile(d, newCompileState(""))
}

// CompileField lowers d to the field rule of a parameter or property.
func (c *Compiler) CompileField(name string, optional bool, d *descriptor.Descriptor) (types.FieldRule, error) {
	rules, err := c.compile(d, newCompileState(name))
	if err != nil {
		return types.FieldRule{}, err
	}
	return types.FieldRule{FieldName: name, Optional: optional, Rules: rules}, nil
}

func (c *Compiler) compile(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	if d == nil {
		d = descriptor.Any()
	}
	if st.depth >= types.MaxDescriptorDepth {
		return types.RuleSet{}, st.wrap(types.ErrDescriptorTooDeep)
	}
	st.depth++
	defer func() { st.depth-- }()

	switch d.Kind {
	case descriptor.KindBoolean:
		return single(isType(types.BaseBoolean)), nil
	case descriptor.KindEnum:
		return c.compileEnum(d, st)
	case descriptor.KindIntersection:
		return c.compileIntersection(d, st)
	case descriptor.KindUnion:
		return c.compileUnion(d, st)
	case descriptor.KindArray:
		return c.compileArray(d, st)
	case descriptor.KindNumber:
		return single(isType(types.BaseNumber)), nil
	case descriptor.KindObject:
		if d.IsAnnotation() {
			r, err := c.parseAnnotation(d.Literal)
			if err != nil {
				return types.RuleSet{}, st.wrap(err)
			}
			return single(r), nil
		}
		return c.compileObject(d, st)
	case descriptor.KindString:
		return single(isType(types.BaseString)), nil
	default:
		return single(isType(types.BaseAny)), nil
	}
}

func single(r types.RuleSetting) types.RuleSet {
	return types.RuleSet{And: []types.RuleSetting{r}}
}

func isType(base types.BaseType) types.RuleSetting {
	return types.RuleSetting{
		Key:      "is-type-" + base.String(),
		Kind:     types.RuleIsType,
		BaseType: base,
	}
}

func (c *Compiler) compileEnum(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	members, err := c.provider.EnumMembers(d.Ref)
	if err != nil {
		return types.RuleSet{}, st.wrap(err)
	}
	if len(members) == 0 {
		return types.RuleSet{}, st.wrap(fmt.Errorf("%w: %s", types.ErrUnresolvedEnum, d.Ref))
	}
	if len(members) > types.MaxEnumMembers {
		return types.RuleSet{}, st.wrap(fmt.Errorf("%w: %s", types.ErrTooManyEnumMembers, d.Ref))
	}
	values := make([]any, len(members))
	for i, m := range members {
		values[i] = descriptor.NormalizeScalar(m)
	}
	return single(types.RuleSetting{
		Key:             "is-type-enum" + jsonText(values),
		Kind:            types.RuleIsType,
		BaseType:        types.BaseEnum,
		LiteralTypeName: d.Ref.Name,
		Value:           values,
	}), nil
}

func (c *Compiler) compileIntersection(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	var acc types.RuleSet
	for _, b := range d.Branches {
		rs, err := c.compile(b, st)
		if err != nil {
			return types.RuleSet{}, err
		}
		acc, err = conjoin(acc, rs)
		if err != nil {
			return types.RuleSet{}, st.wrap(err)
		}
	}
	return acc, nil
}

// conjoin returns the rule set satisfied exactly when both a and b are.
func conjoin(a, b types.RuleSet) (types.RuleSet, error) {
	out := types.RuleSet{
		And: append(append([]types.RuleSetting(nil), a.And...), b.And...),
	}
	switch {
	case len(a.Or) == 0:
		out.Or = b.Or
	case len(b.Or) == 0:
		out.Or = a.Or
	default:
		if len(a.Or)*len(b.Or) > types.MaxAlternatives {
			return types.RuleSet{}, fmt.Errorf("%w: %d", types.ErrTooManyAlternatives, len(a.Or)*len(b.Or))
		}
		for _, x := range a.Or {
			for _, y := range b.Or {
				out.Or = append(out.Or, append(append([]types.RuleSetting(nil), x...), y...))
			}
		}
	}
	return out, nil
}

// alternatives flattens rs into a list of AND lists, one per way it can pass.
func alternatives(rs types.RuleSet) [][]types.RuleSetting {
	if len(rs.Or) == 0 {
		return [][]types.RuleSetting{rs.And}
	}
	out := make([][]types.RuleSetting, 0, len(rs.Or))
	for _, alt := range rs.Or {
		out = append(out, append(append([]types.RuleSetting(nil), rs.And...), alt...))
	}
	return out
}

func (c *Compiler) compileUnion(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	var out types.RuleSet
	for _, b := range d.Branches {
		rs, err := c.compile(b, st)
		if err != nil {
			return types.RuleSet{}, err
		}
		out.Or = append(out.Or, alternatives(rs)...)
	}
	if len(out.Or) > types.MaxAlternatives {
		return types.RuleSet{}, st.wrap(fmt.Errorf("%w: %d", types.ErrTooManyAlternatives, len(out.Or)))
	}
	return out, nil
}

func (c *Compiler) compileArray(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	elem, err := c.compile(d.Elem, st)
	if err != nil {
		return types.RuleSet{}, err
	}
	if len(elem.Or) > 0 || len(elem.And) != 1 {
		return types.RuleSet{}, st.wrap(fmt.Errorf("%w: %s", types.ErrHeterogeneousArray, d.Text()))
	}

	r := elem.And[0]
	switch {
	case r.Kind == types.RuleIsType && r.BaseType == types.BaseEnum:
		return single(types.RuleSetting{
			Key:             "is-array-of-enum" + jsonText(r.Value),
			Kind:            types.RuleIsArray,
			BaseType:        types.BaseEnum,
			LiteralTypeName: r.LiteralTypeName,
			Value:           r.Value,
		}), nil

	case r.Kind == types.RuleIsType:
		return single(types.RuleSetting{
			Key:      "is-array-of-" + r.BaseType.String(),
			Kind:     types.RuleIsArray,
			BaseType: r.BaseType,
		}), nil

	case r.Kind == types.RuleIsObject:
		return single(types.RuleSetting{
			Key:             "is-array-of-object#" + digestFields(r.NestedFields),
			Kind:            types.RuleIsArray,
			BaseType:        types.BaseObject,
			LiteralTypeName: r.LiteralTypeName,
			NestedFields:    r.NestedFields,
		}), nil
	}

	// Nested arrays and bare annotations: elements are checked against the
	// single element rule.
	return single(types.RuleSetting{
		Key:             "is-array-of-" + r.Key,
		Kind:            types.RuleIsArray,
		LiteralTypeName: d.Elem.Text(),
		NestedFields: []types.FieldRule{{
			FieldName: "[]",
			Rules:     single(r),
		}},
	}), nil
}

func (c *Compiler) compileObject(d *descriptor.Descriptor, st *compileState) (types.RuleSet, error) {
	ref := d.Ref
	if st.visiting[ref] {
		return types.RuleSet{}, st.wrap(fmt.Errorf("%w: %s", types.ErrCyclicReference, ref))
	}
	fields, err := c.provider.Fields(ref)
	if err != nil {
		return types.RuleSet{}, st.wrap(err)
	}

	st.visiting[ref] = true
	defer delete(st.visiting, ref)

	nested := make([]types.FieldRule, 0, len(fields))
	for _, f := range fields {
		st.path = append(st.path, f.Name)
		rs, err := c.compile(f.Type, st)
		st.path = st.path[:len(st.path)-1]
		if err != nil {
			return types.RuleSet{}, err
		}
		nested = append(nested, types.FieldRule{FieldName: f.Name, Optional: f.Optional, Rules: rs})
	}

	return single(types.RuleSetting{
		Key:             "is-type-object#" + digestFields(nested),
		Kind:            types.RuleIsObject,
		BaseType:        types.BaseObject,
		LiteralTypeName: ref.Name,
		NestedFields:    nested,
	}), nil
}

// digestFields fingerprints nested field rules for object rule keys. Rule
// keys already identify their parameters, nested objects included, so the
// names, optionality and keys of each field determine the shape.
func digestFields(fields []types.FieldRule) string {
	h := sha256.New()
	for _, f := range fields {
		fmt.Fprintf(h, "%q:%t{", f.FieldName, f.Optional)
		for _, r := range f.Rules.And {
			fmt.Fprintf(h, "&%q", r.Key)
		}
		for _, alt := range f.Rules.Or {
			h.Write([]byte("|"))
			for _, r := range alt {
				fmt.Fprintf(h, "&%q", r.Key)
			}
		}
		h.Write([]byte("}"))
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
