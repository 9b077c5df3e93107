package routing

import (
	"fmt"
	"reflect"

	"github.com/swayhq/sway/internal/types"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	anyType   = reflect.TypeOf((*any)(nil)).Elem()
)

// Parameter names used in violation messages.
const (
	ParamQuery  = "query"
	ParamBody   = "body"
	ParamParams = "params"
)

// Method is one handler method a route serves.
//
// Accepted signatures, where C is the request context type:
//
//	func(C) (R, error)
//	func(C, In) (R, error)
//	func(C, In, Params) (R, error)
//
// A pointer In is optional: an empty query or body passes validation.
type Method struct {
	Rest types.RestMethod
	Name string
	Func reflect.Value // bound to the handler value

	Input  reflect.Type // nil when the method takes no input
	Params reflect.Type // nil when the method takes no route params

	InputRule  *types.FieldRule
	ParamsRule *types.FieldRule
}

// InputName is the parameter name of the method's input.
func (m *Method) InputName() string {
	if m.Rest.ReadsQuery() {
		return ParamQuery
	}
	return ParamBody
}

// InputOptional reports whether the input may be absent.
func (m *Method) InputOptional() bool {
	return m.Input != nil && m.Input.Kind() == reflect.Pointer
}

// Discover finds the Get, Post, Put, Delete and Options methods of handler.
// ctxType is the first parameter every method must take.
func Discover(handler any, ctxType reflect.Type) ([]*Method, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", types.ErrNoServingMethods)
	}
	hv := reflect.ValueOf(handler)
	ht := hv.Type()

	var methods []*Method
	for _, rest := range types.RestMethods {
		name := rest.HandlerName()
		bound := hv.MethodByName(name)
		if !bound.IsValid() {
			continue
		}
		m, err := inspect(rest, name, bound, ctxType)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", ht, name, err)
		}
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrNoServingMethods, ht)
	}
	return methods, nil
}

func inspect(rest types.RestMethod, name string, fn reflect.Value, ctxType reflect.Type) (*Method, error) {
	ft := fn.Type()

	if ft.NumIn() < 1 || ft.NumIn() > 3 {
		return nil, fmt.Errorf("%w: want 1 to 3 parameters, got %d", types.ErrInvalidHandlerSignature, ft.NumIn())
	}
	if ft.In(0) != ctxType {
		return nil, fmt.Errorf("%w: first parameter must be %s, got %s", types.ErrInvalidHandlerSignature, ctxType, ft.In(0))
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic handlers are not supported", types.ErrInvalidHandlerSignature)
	}
	if ft.NumOut() != 2 || ft.Out(1) != errorType {
		return nil, fmt.Errorf("%w: results must be (T, error)", types.ErrInvalidHandlerSignature)
	}

	m := &Method{Rest: rest, Name: name, Func: fn}
	if ft.NumIn() >= 2 {
		m.Input = ft.In(1)
	}
	if ft.NumIn() == 3 {
		m.Params = ft.In(2)
		if !isParamsType(m.Params) {
			return nil, fmt.Errorf("%w: route params must be a struct or map[string]string, got %s",
				types.ErrInvalidHandlerSignature, m.Params)
		}
	}
	return m, nil
}

func isParamsType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String &&
			(t.Elem().Kind() == reflect.String || t.Elem() == anyType)
	}
	return false
}
