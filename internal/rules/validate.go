// internal/rules/validate.go
package rules

import (
	"fmt"
	"strings"

	"github.com/swayhq/sway/internal/types"
)

/*
 * Runtime validation.
 *
 * Evaluates a FieldRule against a decoded value and returns human-readable
 * violations; an empty result means the value is valid.
 *
 * Evaluation of one field:
 *   1. Absent value: optional fields pass, others yield "<field>: is required"
 *   2. Every AND rule is evaluated; failures are collected
 *   3. OR alternatives are tried in order until one passes in full. When
 *      none passes, the violations of every alternative are reported ahead
 *      of the AND violations
 *
 * Rules are memoized by key for the duration of one field evaluation, so a
 * rule shared between the AND list and several alternatives runs once. A
 * memoized failure still fails every alternative it appears in and its
 * violations are repeated there.
 *
 * Violation labels are paths relative to the validated parameter:
 * "name", "address.city", "items[2].qty". Properties of a top-level object
 * are not prefixed with the parameter name.
 */

// Validator checks values against compiled rule trees. It is stateless
// between calls and safe for concurrent use once the registry is frozen.
type Validator struct {
	registry *Registry
	patterns *patternCache
}

// NewValidator creates a validator resolving Custom rules through registry.
// A nil registry makes every Custom rule fail.
func NewValidator(registry *Registry) *Validator {
	return newValidator(registry, &patternCache{})
}

func newValidator(registry *Registry, patterns *patternCache) *Validator {
	return &Validator{registry: registry, patterns: patterns}
}

// Validate returns the violations of value against field.
func (v *Validator) Validate(field types.FieldRule, value any) []string {
	return v.validate(field, value, field.FieldName, "")
}

type outcome struct {
	passed bool
	errs   []string
}

// validate evaluates one field. label names the field in messages; prefix is
// prepended to the labels of nested properties and elements.
func (v *Validator) validate(field types.FieldRule, value any, label, prefix string) []string {
	if isAbsent(value) {
		if field.Optional {
			return nil
		}
		return []string{label + ": is required"}
	}

	seen := make(map[string]outcome)
	eval := func(r types.RuleSetting) (outcome, bool) {
		if o, ok := seen[r.Key]; ok {
			return o, true
		}
		o := v.check(r, value, label, prefix)
		seen[r.Key] = o
		return o, false
	}

	var andErrs []string
	for _, r := range field.Rules.And {
		o, cached := eval(r)
		if !cached {
			andErrs = append(andErrs, o.errs...)
		}
	}

	var orErrs []string
	for _, alt := range field.Rules.Or {
		passed := true
		var altErrs []string
		for _, r := range alt {
			o, _ := eval(r)
			if !o.passed {
				passed = false
				altErrs = append(altErrs, o.errs...)
			}
		}
		if passed {
			orErrs = nil
			break
		}
		orErrs = append(orErrs, altErrs...)
	}

	if len(orErrs) == 0 {
		return andErrs
	}
	return append(orErrs, andErrs...)
}

func (v *Validator) validateObject(r types.RuleSetting, value any, label, prefix string) []string {
	obj, ok := asObject(value)
	if !ok {
		return []string{fmt.Sprintf("%s: Not an object: %s", label, jsonText(value))}
	}
	var errs []string
	for _, nf := range r.NestedFields {
		child := childLabel(prefix, nf.FieldName)
		errs = append(errs, v.validate(nf, obj[nf.FieldName], child, child)...)
	}
	return errs
}

func (v *Validator) validateArray(r types.RuleSetting, value any, label string) []string {
	elems, ok := asArray(value)
	if !ok {
		return []string{fmt.Sprintf("%s: Not an array: %s", label, jsonText(value))}
	}

	switch r.BaseType {
	case types.BaseAny, types.BaseUnknown:
		return nil

	case types.BaseEnum:
		members, _ := asArray(r.Value)
		for _, e := range elems {
			if !isMember(e, members) {
				return []string{fmt.Sprintf("%s: Array contains values not allowed: %s", label, jsonText(value))}
			}
		}
		return nil

	case types.BaseObject:
		var errs []string
		for i, e := range elems {
			elem := fmt.Sprintf("%s[%d]", label, i)
			errs = append(errs, v.validateObject(r, e, elem, elem)...)
		}
		return errs

	case types.BaseNone:
		if len(r.NestedFields) != 1 {
			return []string{fmt.Sprintf("%s: Array not well formed: %s", label, jsonText(value))}
		}
		var errs []string
		for i, e := range elems {
			elem := fmt.Sprintf("%s[%d]", label, i)
			errs = append(errs, v.validate(r.NestedFields[0], e, elem, elem)...)
		}
		return errs
	}

	for _, e := range elems {
		if kindOf(e) != r.BaseType {
			return []string{fmt.Sprintf("%s: Array not well formed: %s", label, jsonText(value))}
		}
	}
	return nil
}

func childLabel(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// violation formats a failed leaf rule:
//
//	age: expected Max 120 to pass found: 200
func violation(label string, r types.RuleSetting, value any) string {
	parts := []string{r.Kind.String()}
	if r.BaseType != types.BaseNone {
		parts = append(parts, jsonText(r.BaseType.String()))
	}
	if r.LiteralTypeName != "" {
		parts = append(parts, jsonText(r.LiteralTypeName))
	}
	if r.Value != nil {
		parts = append(parts, jsonText(r.Value))
	}
	return fmt.Sprintf("%s: expected %s to pass found: %s", label, strings.Join(parts, " "), jsonText(value))
}
