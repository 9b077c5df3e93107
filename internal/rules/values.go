// internal/rules/values.go
package rules

import (
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/types"
)

/*
 * Runtime value inspection.
 *
 * Validated values normally come from JSON decoding or query coercion, so
 * they are map[string]any, []any, string, float64, bool or nil. Callers of
 * the library API may also pass typed Go slices, maps with string keys and
 * integer kinds; those are handled through reflection.
 *
 * Absence: a missing property and an explicit JSON null are both absent.
 */

// kindOf returns the runtime base type of v.
// Values that are neither scalar nor object (arrays, nil) yield BaseNone.
func kindOf(v any) types.BaseType {
	switch v.(type) {
	case nil:
		return types.BaseNone
	case string:
		return types.BaseString
	case bool:
		return types.BaseBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return types.BaseNumber
	case map[string]any:
		return types.BaseObject
	case []any:
		return types.BaseNone
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return types.BaseString
	case reflect.Bool:
		return types.BaseBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return types.BaseNumber
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return types.BaseObject
		}
	}
	return types.BaseNone
}

// toFloat converts numeric values to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// asArray returns the elements of v when v is a slice or array.
func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case nil:
		return nil, false
	case []any:
		return a, true
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asObject returns v as a property map.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// isAbsent reports whether v counts as a missing value.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// scalarEqual compares two scalars with numeric normalization, so 1 (int)
// equals 1.0 (float64) and a named string type equals its plain form.
func scalarEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch kindOf(a) {
	case types.BaseString:
		return kindOf(b) == types.BaseString &&
			reflect.ValueOf(a).String() == reflect.ValueOf(b).String()
	case types.BaseBoolean:
		return kindOf(b) == types.BaseBoolean &&
			reflect.ValueOf(a).Bool() == reflect.ValueOf(b).Bool()
	}
	return false
}

// jsonText renders v for violation messages. Unencodable values fall back to
// their Go syntax representation.
func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return strconv.Quote(reflect.ValueOf(v).String())
	}
	return string(b)
}
