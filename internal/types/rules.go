// internal/types/rules.go
package types

import (
	"fmt"

	"github.com/goccy/go-json"
)

/*
 * Rule Tree data model.
 *
 * Produced by the compiler in internal/rules from a Type Descriptor, then
 * shared read-only by every request evaluation of the route that owns it.
 * The structures are wire-format agnostic: they serialize to JSON for
 * snapshots and the admin API and to YAML for the CLI.
 *
 * Key types:
 *   - FieldRule: one object property or handler parameter, with optionality
 *   - RuleSet: AND list plus OR alternatives (DNF)
 *   - RuleSetting: one parameterized constraint
 *
 * A value satisfies a RuleSet iff it satisfies every rule in And and either
 * Or is empty or at least one inner list of Or is satisfied in full.
 */

// BaseType is the runtime kind a rule checks against. The zero value means
// "not set" and is omitted from serialized rule settings.
type BaseType int

const (
	BaseNone BaseType = iota
	BaseString
	BaseNumber
	BaseBoolean
	BaseEnum
	BaseObject
	BaseAny
	BaseUnknown
)

var baseTypeNames = [...]string{
	BaseNone:    "",
	BaseString:  "string",
	BaseNumber:  "number",
	BaseBoolean: "boolean",
	BaseEnum:    "enum",
	BaseObject:  "object",
	BaseAny:     "any",
	BaseUnknown: "unknown",
}

func (b BaseType) String() string {
	if b < 0 || int(b) >= len(baseTypeNames) {
		return fmt.Sprintf("BaseType(%d)", int(b))
	}
	return baseTypeNames[b]
}

// MarshalText implements encoding.TextMarshaler.
func (b BaseType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BaseType) UnmarshalText(text []byte) error {
	for i, name := range baseTypeNames {
		if name == string(text) {
			*b = BaseType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown base type %q", text)
}

// RuleKind is the closed set of constraints a RuleSetting can express.
type RuleKind int

const (
	RuleIsType RuleKind = iota + 1
	RuleIsArray
	RuleIsObject
	RuleMaxLength
	RuleMinLength
	RuleContains
	RuleFormat
	RuleMax
	RuleMin
	RuleCustom
)

// RuleKinds lists every rule kind; switches over RuleKind must handle each.
var RuleKinds = []RuleKind{
	RuleIsType, RuleIsArray, RuleIsObject, RuleMaxLength, RuleMinLength,
	RuleContains, RuleFormat, RuleMax, RuleMin, RuleCustom,
}

// AnnotationKinds are the kinds that can be written as RuleName<Literal>.
// Longer names come first so MaxLength is not read as Max.
var AnnotationKinds = []RuleKind{
	RuleMaxLength, RuleMinLength, RuleContains, RuleFormat, RuleMax, RuleMin, RuleCustom,
}

var ruleKindNames = map[RuleKind]string{
	RuleIsType:    "IsType",
	RuleIsArray:   "IsArray",
	RuleIsObject:  "IsObject",
	RuleMaxLength: "MaxLength",
	RuleMinLength: "MinLength",
	RuleContains:  "Contains",
	RuleFormat:    "Format",
	RuleMax:       "Max",
	RuleMin:       "Min",
	RuleCustom:    "Custom",
}

func (k RuleKind) String() string {
	if name, ok := ruleKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RuleKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k RuleKind) MarshalText() ([]byte, error) {
	if _, ok := ruleKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown rule kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RuleKind) UnmarshalText(text []byte) error {
	kind, ok := ParseRuleKind(string(text))
	if !ok {
		return fmt.Errorf("unknown rule kind %q", text)
	}
	*k = kind
	return nil
}

// ParseRuleKind returns the kind with the exact given name.
func ParseRuleKind(name string) (RuleKind, bool) {
	for kind, n := range ruleKindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// RuleSetting is one concrete rule instance.
// Key identifies structurally identical rules across branches; the validator
// evaluates each key at most once per call.
type RuleSetting struct {
	Key             string      `json:"key" yaml:"key"`
	Kind            RuleKind    `json:"kind" yaml:"kind"`
	BaseType        BaseType    `json:"baseType,omitempty" yaml:"baseType,omitempty"`
	LiteralTypeName string      `json:"literalTypeName,omitempty" yaml:"literalTypeName,omitempty"`
	Value           any         `json:"value,omitempty" yaml:"value,omitempty"`
	NestedFields    []FieldRule `json:"nestedFields,omitempty" yaml:"nestedFields,omitempty"`
}

// RuleSet is an AND list plus OR alternatives.
type RuleSet struct {
	And []RuleSetting   `json:"and" yaml:"and"`
	Or  [][]RuleSetting `json:"or" yaml:"or"`
}

// IsEmpty reports whether the set carries no rules at all.
func (s RuleSet) IsEmpty() bool {
	return len(s.And) == 0 && len(s.Or) == 0
}

// FieldRule wraps a RuleSet with the name and optionality of the property or
// parameter it describes.
type FieldRule struct {
	FieldName string  `json:"fieldName" yaml:"fieldName"`
	Optional  bool    `json:"optional" yaml:"optional"`
	Rules     RuleSet `json:"rules" yaml:"rules"`
}

// JSON encoding goes through plain maps and slices. The rule types are
// mutually recursive and carry an interface-typed Value, which go-json's
// struct encoder does not handle.

// MarshalJSON implements json.Marshaler.
func (r RuleSetting) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.tree())
}

// MarshalJSON implements json.Marshaler.
func (s RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.tree())
}

// MarshalJSON implements json.Marshaler.
func (f FieldRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.tree())
}

func (r RuleSetting) tree() map[string]any {
	m := map[string]any{"key": r.Key, "kind": r.Kind.String()}
	if r.BaseType != BaseNone {
		m["baseType"] = r.BaseType.String()
	}
	if r.LiteralTypeName != "" {
		m["literalTypeName"] = r.LiteralTypeName
	}
	if r.Value != nil {
		m["value"] = r.Value
	}
	if len(r.NestedFields) > 0 {
		nested := make([]any, len(r.NestedFields))
		for i, f := range r.NestedFields {
			nested[i] = f.tree()
		}
		m["nestedFields"] = nested
	}
	return m
}

func (s RuleSet) tree() map[string]any {
	and := make([]any, len(s.And))
	for i, r := range s.And {
		and[i] = r.tree()
	}
	or := make([]any, len(s.Or))
	for i, alt := range s.Or {
		rules := make([]any, len(alt))
		for j, r := range alt {
			rules[j] = r.tree()
		}
		or[i] = rules
	}
	return map[string]any{"and": and, "or": or}
}

func (f FieldRule) tree() map[string]any {
	return map[string]any{"fieldName": f.FieldName, "optional": f.Optional, "rules": f.Rules.tree()}
}
