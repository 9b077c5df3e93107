// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/swayhq/sway/internal/types"
)

/*
 * Rule evaluation.
 *
 * check is the single dispatch point over RuleKind; every kind in
 * types.RuleKinds has a case. Leaf kinds produce at most one violation built
 * by violation(); IsObject and IsArray recurse and return the nested
 * violations.
 *
 * Leaf semantics:
 *   - IsType: runtime kind equals the base type; enum checks membership;
 *     any and unknown always pass
 *   - MinLength, MaxLength: character count of strings, length of arrays
 *   - Min, Max: inclusive numeric bounds
 *   - Contains: array membership, or substring for strings
 *   - Format: named format or regular expression over the text form
 *   - Custom: registered predicate; unregistered names fail
 */

func (v *Validator) check(r types.RuleSetting, value any, label, prefix string) outcome {
	var passed bool
	switch r.Kind {
	case types.RuleIsObject:
		errs := v.validateObject(r, value, label, prefix)
		return outcome{passed: len(errs) == 0, errs: errs}
	case types.RuleIsArray:
		errs := v.validateArray(r, value, label)
		return outcome{passed: len(errs) == 0, errs: errs}
	case types.RuleIsType:
		passed = checkType(r, value)
	case types.RuleMaxLength:
		passed = checkLength(r, value, func(n, limit float64) bool { return n <= limit })
	case types.RuleMinLength:
		passed = checkLength(r, value, func(n, limit float64) bool { return n >= limit })
	case types.RuleContains:
		passed = checkContains(r, value)
	case types.RuleFormat:
		passed = v.checkFormat(r, value)
	case types.RuleMax:
		passed = checkBound(r, value, func(n, limit float64) bool { return n <= limit })
	case types.RuleMin:
		passed = checkBound(r, value, func(n, limit float64) bool { return n >= limit })
	case types.RuleCustom:
		passed = v.checkCustom(r, value)
	default:
		return outcome{errs: []string{fmt.Sprintf("%s: unsupported rule kind %s", label, r.Kind)}}
	}

	if passed {
		return outcome{passed: true}
	}
	return outcome{errs: []string{violation(label, r, value)}}
}

func checkType(r types.RuleSetting, value any) bool {
	switch r.BaseType {
	case types.BaseAny, types.BaseUnknown:
		return true
	case types.BaseEnum:
		members, _ := asArray(r.Value)
		return isMember(value, members)
	}
	return kindOf(value) == r.BaseType
}

func isMember(value any, members []any) bool {
	for _, m := range members {
		if scalarEqual(value, m) {
			return true
		}
	}
	return false
}

func lengthOf(value any) (int, bool) {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if elems, ok := asArray(value); ok {
		return len(elems), true
	}
	return 0, false
}

func checkLength(r types.RuleSetting, value any, cmp func(n, limit float64) bool) bool {
	n, ok := lengthOf(value)
	if !ok {
		return false
	}
	limit, ok := toFloat(r.Value)
	return ok && cmp(float64(n), limit)
}

func checkBound(r types.RuleSetting, value any, cmp func(n, limit float64) bool) bool {
	n, ok := toFloat(value)
	if !ok {
		return false
	}
	limit, ok := toFloat(r.Value)
	return ok && cmp(n, limit)
}

func checkContains(r types.RuleSetting, value any) bool {
	if elems, ok := asArray(value); ok {
		return isMember(r.Value, elems)
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	sub, ok := r.Value.(string)
	return ok && strings.Contains(s, sub)
}

// formatSubject returns the text a Format rule inspects.
func formatSubject(value any) (string, bool) {
	switch x := value.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	}
	if f, ok := toFloat(value); ok {
		return formatNumber(f), true
	}
	return "", false
}

func (v *Validator) checkFormat(r types.RuleSetting, value any) bool {
	name, ok := r.Value.(string)
	if !ok {
		return false
	}
	s, ok := formatSubject(value)
	if !ok {
		return false
	}
	return v.patterns.matchFormat(name, s)
}

func (v *Validator) checkCustom(r types.RuleSetting, value any) bool {
	name, ok := r.Value.(string)
	if !ok {
		return false
	}
	fn, ok := v.registry.Lookup(name)
	if !ok {
		return false
	}
	return fn(value)
}
