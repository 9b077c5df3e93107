// internal/rules/annotation.go
package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/types"
)

/*
 * Annotation literal grammar.
 *
 *   annotation := [qualifier '.'] name '<' literal '>'
 *   name       := MaxLength | MinLength | Contains | Format | Max | Min | Custom
 *
 * Literal by kind:
 *   - Min, Max: number
 *   - MinLength, MaxLength: non-negative integer
 *   - Contains: number, or a JSON string or boolean literal
 *   - Format, Custom: string literal, double- or single-quoted
 *
 * The rule key is the kind name followed by the canonical literal text, so
 * `Min< 0 >` and `Min<0>` share the key "Min0".
 */

var annotationPattern = regexp.MustCompile(`(?s)^(?:[A-Za-z_][A-Za-z0-9_]*\.)*([A-Za-z]+)\s*<\s*(.*?)\s*>$`)

// parseAnnotation lowers one annotation marker to a rule setting.
func (c *Compiler) parseAnnotation(literal string) (types.RuleSetting, error) {
	m := annotationPattern.FindStringSubmatch(strings.TrimSpace(literal))
	if m == nil {
		return types.RuleSetting{}, fmt.Errorf("%w: %q", types.ErrMalformedAnnotation, literal)
	}
	name, raw := m[1], m[2]

	kind, ok := annotationKind(name)
	if !ok {
		return types.RuleSetting{}, fmt.Errorf("%w: %s", types.ErrUnknownAnnotation, name)
	}

	value, text, err := parseAnnotationValue(kind, raw)
	if err != nil {
		return types.RuleSetting{}, fmt.Errorf("%w: %s<%s>: %v", types.ErrMalformedAnnotation, name, raw, err)
	}

	if kind == types.RuleFormat && !IsNamedFormat(text) {
		if _, err := c.patterns.compile(text); err != nil {
			return types.RuleSetting{}, fmt.Errorf("%w: Format<%s>: %v", types.ErrMalformedAnnotation, raw, err)
		}
	}

	return types.RuleSetting{
		Key:   kind.String() + text,
		Kind:  kind,
		Value: value,
	}, nil
}

func annotationKind(name string) (types.RuleKind, bool) {
	for _, k := range types.AnnotationKinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// parseAnnotationValue returns the typed value and its canonical key text.
func parseAnnotationValue(kind types.RuleKind, raw string) (any, string, error) {
	switch kind {
	case types.RuleMin, types.RuleMax:
		f, err := parseNumber(raw)
		if err != nil {
			return nil, "", err
		}
		return f, formatNumber(f), nil

	case types.RuleMinLength, types.RuleMaxLength:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("expected a non-negative integer")
		}
		return float64(n), strconv.Itoa(n), nil

	case types.RuleContains:
		if f, err := parseNumber(raw); err == nil {
			return f, formatNumber(f), nil
		}
		if s, err := parseStringLiteral(raw); err == nil {
			return s, jsonText(s), nil
		}
		switch raw {
		case "true":
			return true, raw, nil
		case "false":
			return false, raw, nil
		}
		return nil, "", fmt.Errorf("expected a number, string or boolean literal")

	case types.RuleFormat, types.RuleCustom:
		s, err := parseStringLiteral(raw)
		if err != nil {
			return nil, "", err
		}
		if s == "" {
			return nil, "", fmt.Errorf("empty name")
		}
		return s, s, nil
	}
	return nil, "", fmt.Errorf("%s takes no literal", kind)
}

func parseNumber(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number")
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("expected a finite number")
	}
	return f, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseStringLiteral accepts a JSON string or a single-quoted string, which
// is easier to write inside Go struct tags.
func parseStringLiteral(raw string) (string, error) {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return strings.ReplaceAll(raw[1:len(raw)-1], `\'`, `'`), nil
	}
	if len(raw) < 2 || raw[0] != '"' {
		return "", fmt.Errorf("expected a quoted string")
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("expected a quoted string")
	}
	return s, nil
}
