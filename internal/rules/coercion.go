// internal/rules/coercion.go
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/types"
)

/*
 * Query string coercion.
 *
 * Query parameters arrive as strings (or lists of strings for repeated
 * keys). Before validation the coercer reshapes them following the field's
 * rule tree:
 *
 *   - number: decimal text becomes a float64; unparseable or non-finite
 *     text (NaN, Inf) is kept so the validator reports a type mismatch
 *   - boolean: "true" (any case) becomes true, anything else false
 *   - enum: text matching a numeric or boolean member becomes that member
 *   - object: a JSON object literal is parsed; a map is walked field by
 *     field, accepting "name[]" for "name"
 *   - array: a JSON array literal is parsed; a single value becomes a
 *     one-element array; elements are coerced by the element kind
 *
 * AND rules are applied in order. For OR alternatives the first alternative
 * whose every rule applies strictly (number parses, boolean is "true" or
 * "false", the shape matches) is taken; when none does, the value is left
 * as is for the validator to reject.
 *
 * A malformed JSON literal fails with ErrCoercionFailed: in an AND position
 * always, in the OR alternatives when no alternative fits the value.
 */

// Coercer reshapes raw query values. It is stateless.
type Coercer struct{}

// NewCoercer creates a coercer.
func NewCoercer() *Coercer {
	return &Coercer{}
}

// Coerce reshapes raw according to field.
func (c *Coercer) Coerce(field types.FieldRule, raw any) (any, error) {
	return c.coerce(field, raw, field.FieldName)
}

func (c *Coercer) coerce(field types.FieldRule, raw any, label string) (any, error) {
	if isAbsent(raw) {
		return raw, nil
	}

	value := raw
	for _, r := range field.Rules.And {
		next, err := c.apply(r, value, label, false)
		if err != nil {
			return nil, err
		}
		value = next
	}

	var malformed error
	for _, alt := range field.Rules.Or {
		out, ok := value, true
		for _, r := range alt {
			next, err := c.apply(r, out, label, true)
			if err != nil {
				if malformed == nil && !errors.Is(err, errMismatch) {
					malformed = err
				}
				ok = false
				break
			}
			out = next
		}
		if ok {
			return out, nil
		}
	}
	if malformed != nil {
		return nil, malformed
	}
	return value, nil
}

// apply coerces value for one rule. In strict mode an error means the rule
// does not fit the value; otherwise errors are real coercion failures.
func (c *Coercer) apply(r types.RuleSetting, value any, label string, strict bool) (any, error) {
	switch r.Kind {
	case types.RuleIsType:
		return coerceScalar(r, value, label, strict)
	case types.RuleIsObject:
		return c.coerceObject(r, value, label, strict)
	case types.RuleIsArray:
		return c.coerceArray(r, value, label, strict)
	}
	return value, nil
}

// errMismatch marks a value that does not fit a rule in strict mode. It is
// never returned by Coerce.
var errMismatch = errors.New("value does not fit rule")

func mismatch(label string, r types.RuleSetting, value any) error {
	return fmt.Errorf("%w: %s: %s does not fit %s", errMismatch, label, jsonText(value), r.Key)
}

func coerceScalar(r types.RuleSetting, value any, label string, strict bool) (any, error) {
	s, isString := value.(string)

	switch r.BaseType {
	case types.BaseNumber:
		if isString {
			if f, err := parseNumber(strings.TrimSpace(s)); err == nil {
				return f, nil
			}
		} else if kindOf(value) == types.BaseNumber {
			return value, nil
		}
		if strict {
			return nil, mismatch(label, r, value)
		}
		return value, nil

	case types.BaseBoolean:
		if isString {
			switch {
			case strings.EqualFold(s, "true"):
				return true, nil
			case !strict || strings.EqualFold(s, "false"):
				return false, nil
			}
		} else if kindOf(value) == types.BaseBoolean {
			return value, nil
		}
		if strict {
			return nil, mismatch(label, r, value)
		}
		return value, nil

	case types.BaseString:
		if strict && !isString {
			return nil, mismatch(label, r, value)
		}
		return value, nil

	case types.BaseEnum:
		members, _ := asArray(r.Value)
		if isMember(value, members) {
			return value, nil
		}
		if isString {
			if f, err := parseNumber(strings.TrimSpace(s)); err == nil && isMember(f, members) {
				return f, nil
			}
			if b, err := strconv.ParseBool(s); err == nil && isMember(b, members) {
				return b, nil
			}
		}
		if strict {
			return nil, mismatch(label, r, value)
		}
		return value, nil
	}
	return value, nil
}

// parseLiteral decodes JSON text from a query value.
func parseLiteral(s, label string) (any, error) {
	if len(s) > types.MaxStructuredLiteralSize {
		return nil, fmt.Errorf("%w: %s: literal exceeds %d bytes", types.ErrCoercionFailed, label, types.MaxStructuredLiteralSize)
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: cannot parse %q: %v", types.ErrCoercionFailed, label, s, err)
	}
	return out, nil
}

func (c *Coercer) coerceObject(r types.RuleSetting, value any, label string, strict bool) (any, error) {
	if s, ok := value.(string); ok {
		parsed, err := parseLiteral(s, label)
		if err != nil {
			return nil, err
		}
		value = parsed
	}

	obj, ok := asObject(value)
	if !ok {
		if strict {
			return nil, mismatch(label, r, value)
		}
		return value, nil
	}

	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, nf := range r.NestedFields {
		v, present := out[nf.FieldName]
		if !present {
			v, present = out[nf.FieldName+"[]"]
			delete(out, nf.FieldName+"[]")
		}
		if !present {
			continue
		}
		coerced, err := c.coerce(nf, v, childLabel(label, nf.FieldName))
		if err != nil {
			return nil, err
		}
		out[nf.FieldName] = coerced
	}
	return out, nil
}

func (c *Coercer) coerceArray(r types.RuleSetting, value any, label string, strict bool) (any, error) {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
			parsed, err := parseLiteral(trimmed, label)
			if err != nil {
				return nil, err
			}
			value = parsed
		case r.BaseType == types.BaseString || r.BaseType == types.BaseEnum:
			value = []any{s}
		default:
			parsed, err := parseLiteral(trimmed, label)
			if err != nil {
				parsed = s
			}
			value = []any{parsed}
		}
		if _, ok := asArray(value); !ok {
			value = []any{value}
		}
	}

	elems, ok := asArray(value)
	if !ok {
		if strict {
			return nil, mismatch(label, r, value)
		}
		return value, nil
	}

	out := make([]any, len(elems))
	for i, e := range elems {
		elemLabel := fmt.Sprintf("%s[%d]", label, i)
		var err error
		switch r.BaseType {
		case types.BaseNumber, types.BaseBoolean, types.BaseEnum:
			out[i], err = coerceScalar(types.RuleSetting{BaseType: r.BaseType, Value: r.Value}, e, elemLabel, strict)
		case types.BaseObject:
			out[i], err = c.coerceObject(r, e, elemLabel, strict)
		case types.BaseNone:
			if len(r.NestedFields) == 1 {
				out[i], err = c.coerce(r.NestedFields[0], e, elemLabel)
			} else {
				out[i] = e
			}
		default:
			out[i] = e
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
