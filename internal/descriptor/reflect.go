package descriptor

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/types"
)

// EnumValuer is implemented by named Go types whose values are restricted to a
// fixed member list. The method is called on the zero value.
//
//	type Role string
//	func (Role) EnumValues() []any { return []any{"admin", "user"} }
type EnumValuer interface {
	EnumValues() []any
}

// TagName is the struct tag read by the Reflector.
//
// The tag holds a type expression intersected with the Go field type,
// followed by comma-separated options:
//
//	Age   int    `json:"age" sway:"Min<0> & Max<120>"`
//	Email string `json:"email" sway:"Format<\"email\">,optional"`
//	ID    any    `json:"id" sway:"=string | number"`
//
// A leading '=' replaces the Go type instead of intersecting with it.
// Options: optional, required.
const TagName = "sway"

var (
	enumType      = reflect.TypeOf((*EnumValuer)(nil)).Elem()
	timeType      = reflect.TypeOf(time.Time{})
	durationType  = reflect.TypeOf(time.Duration(0))
	rawJSONType   = reflect.TypeOf(json.RawMessage(nil))
	textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Reflector derives descriptors from Go types and declares the objects and
// enums it meets in its catalog.
type Reflector struct {
	catalog *Catalog
}

// NewReflector creates a reflector that declares into c.
func NewReflector(c *Catalog) *Reflector {
	return &Reflector{catalog: c}
}

// Catalog returns the provider the reflector declares into.
func (r *Reflector) Catalog() *Catalog {
	return r.catalog
}

// Describe returns the descriptor of t. Pointer types describe their element;
// optionality belongs to the field or parameter, not the type.
func (r *Reflector) Describe(t reflect.Type) (*Descriptor, error) {
	return r.describe(t, 0)
}

func (r *Reflector) describe(t reflect.Type, depth int) (*Descriptor, error) {
	if depth > types.MaxDescriptorDepth {
		return nil, fmt.Errorf("%w: %s", types.ErrDescriptorTooDeep, t)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return Intersection(String(), Annotation(`Format<"date-time">`)), nil
	case t == durationType:
		return Number(), nil
	case t == rawJSONType:
		return Any(), nil
	case t.Implements(enumType) || reflect.PointerTo(t).Implements(enumType):
		return r.describeEnum(t)
	}

	switch t.Kind() {
	case reflect.Bool:
		return Boolean(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number(), nil
	case reflect.String:
		return String(), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// []byte travels as a base64 string in JSON.
			return String(), nil
		}
		elem, err := r.describe(t.Elem(), depth+1)
		if err != nil {
			return nil, err
		}
		return Array(elem), nil
	case reflect.Map, reflect.Interface:
		return Any(), nil
	case reflect.Struct:
		if reflect.PointerTo(t).Implements(textMarshaler) {
			return String(), nil
		}
		return r.describeStruct(t, depth)
	}
	return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedGoType, t)
}

func refOf(t reflect.Type) Ref {
	if t.Name() == "" {
		return Ref{Name: t.String()}
	}
	return Ref{Source: t.PkgPath(), Name: t.Name()}
}

func (r *Reflector) describeEnum(t reflect.Type) (*Descriptor, error) {
	ref := refOf(t)
	if d := r.catalog.Resolve(ref.Source, ref.Name); d.Kind == KindEnum && d.Ref == ref {
		return d, nil
	}
	var members []any
	if e, ok := reflect.Zero(t).Interface().(EnumValuer); ok {
		members = e.EnumValues()
	} else {
		members = reflect.New(t).Interface().(EnumValuer).EnumValues()
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s has no members", types.ErrUnresolvedEnum, ref)
	}
	if err := r.catalog.DeclareEnum(ref, members); err != nil {
		return nil, err
	}
	return Enum(ref), nil
}

func (r *Reflector) describeStruct(t reflect.Type, depth int) (*Descriptor, error) {
	ref := refOf(t)
	r.catalog.mu.RLock()
	_, known := r.catalog.objects[ref]
	r.catalog.mu.RUnlock()
	if known {
		return Object(ref), nil
	}

	// Reserve before walking fields so self references resolve to this object.
	if err := r.catalog.reserveObject(ref); err != nil {
		return nil, err
	}
	fields, err := r.structFields(t, depth)
	if err != nil {
		return nil, err
	}
	if err := r.catalog.DeclareObject(ref, fields); err != nil {
		return nil, err
	}
	return Object(ref), nil
}

func (r *Reflector) structFields(t reflect.Type, depth int) ([]Field, error) {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		if sf.Anonymous && sf.Tag.Get("json") == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				embedded, err := r.structFields(et, depth+1)
				if err != nil {
					return nil, err
				}
				fields = append(fields, embedded...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f, ok, err := r.describeField(sf, t.PkgPath(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if ok {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// describeField builds the Field for a struct field declared in package
// source. ok is false for fields hidden from JSON with `json:"-"`.
func (r *Reflector) describeField(sf reflect.StructField, source string, depth int) (f Field, ok bool, err error) {
	name, omitEmpty, skip := jsonName(sf)
	if skip {
		return Field{}, false, nil
	}

	f = Field{
		Name:     name,
		Optional: omitEmpty || sf.Type.Kind() == reflect.Pointer,
	}

	expr, opts := parseTag(sf.Tag.Get(TagName))
	for _, opt := range opts {
		switch opt {
		case "optional":
			f.Optional = true
		case "required":
			f.Optional = false
		default:
			return Field{}, false, fmt.Errorf("%w: unknown tag option %q", types.ErrInvalidTypeExpression, opt)
		}
	}

	if strings.HasPrefix(expr, "=") {
		f.Type, err = r.catalog.ParseType(source, strings.TrimPrefix(expr, "="))
		if err != nil {
			return Field{}, false, err
		}
		return f, true, nil
	}

	base, err := r.describe(sf.Type, depth)
	if err != nil {
		return Field{}, false, err
	}
	f.Type = base
	if expr != "" {
		extra, err := r.catalog.ParseType(source, expr)
		if err != nil {
			return Field{}, false, err
		}
		f.Type = Intersection(base, extra)
	}
	return f, true, nil
}

func jsonName(sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = sf.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func parseTag(tag string) (expr string, opts []string) {
	if strings.TrimSpace(tag) == "" {
		return "", nil
	}
	parts := SplitTopLevel(tag, ',')
	expr = parts[0]
	for _, p := range parts[1:] {
		if p != "" {
			opts = append(opts, p)
		}
	}
	return expr, opts
}
