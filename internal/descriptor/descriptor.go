// Package descriptor models the structural type of a handler parameter.
//
// A Descriptor is the input of the rule compiler in internal/rules. It is
// produced by one of three front ends, all backed by a Catalog:
//
//   - Reflector: derives descriptors from Go types (route handler params)
//   - Catalog.ParseType: parses a type expression ("string & MinLength<3>")
//   - Document: YAML, TOML or JSON files declaring objects and enums
//
// The compiler never inspects Go types or files itself. Object fields and
// enum members are looked up through the Provider interface, which Catalog
// implements.
package descriptor

import (
	"fmt"
	"strings"
)

// Kind classifies a Descriptor node. The zero value is Any.
type Kind int

const (
	KindAny Kind = iota
	KindBoolean
	KindEnum
	KindIntersection
	KindUnion
	KindArray
	KindNumber
	KindObject
	KindString
)

var kindNames = [...]string{
	KindAny:          "any",
	KindBoolean:      "boolean",
	KindEnum:         "enum",
	KindIntersection: "intersection",
	KindUnion:        "union",
	KindArray:        "array",
	KindNumber:       "number",
	KindObject:       "object",
	KindString:       "string",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Ref names an object or enum declaration.
type Ref struct {
	Source string // package path or document source; may be empty
	Name   string
}

func (r Ref) String() string {
	if r.Source == "" {
		return r.Name
	}
	return r.Source + "." + r.Name
}

// IsZero reports whether the ref names nothing.
func (r Ref) IsZero() bool {
	return r.Name == ""
}

// Descriptor is one node of a structural type tree.
type Descriptor struct {
	Kind Kind

	// Ref is set for KindEnum and for KindObject references.
	Ref Ref

	// Branches holds the members of a union or intersection.
	Branches []*Descriptor

	// Elem is the element type of an array.
	Elem *Descriptor

	// Literal is the raw annotation text of a KindObject marker such as
	// `Min<0>` or `Format<"email">`. Empty for ordinary objects.
	Literal string
}

// Field is one property of an object declaration.
type Field struct {
	Name     string
	Optional bool
	Type     *Descriptor
}

// Provider resolves references found in descriptors.
type Provider interface {
	// Fields returns the properties of the referenced object, in declaration order.
	Fields(ref Ref) ([]Field, error)

	// EnumMembers returns the member values of the referenced enum.
	EnumMembers(ref Ref) ([]any, error)
}

func Any() *Descriptor     { return &Descriptor{Kind: KindAny} }
func Boolean() *Descriptor { return &Descriptor{Kind: KindBoolean} }
func Number() *Descriptor  { return &Descriptor{Kind: KindNumber} }
func String() *Descriptor  { return &Descriptor{Kind: KindString} }

// Enum references an enum declaration.
func Enum(ref Ref) *Descriptor {
	return &Descriptor{Kind: KindEnum, Ref: ref}
}

// Object references an object declaration.
func Object(ref Ref) *Descriptor {
	return &Descriptor{Kind: KindObject, Ref: ref}
}

// Annotation builds an annotation marker from its literal text, e.g. `Max<120>`.
func Annotation(literal string) *Descriptor {
	return &Descriptor{Kind: KindObject, Literal: strings.TrimSpace(literal)}
}

// Array builds an array of elem.
func Array(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindArray, Elem: elem}
}

// Union builds an alternative of branches. A single branch is returned as is.
func Union(branches ...*Descriptor) *Descriptor {
	if len(branches) == 1 {
		return branches[0]
	}
	return &Descriptor{Kind: KindUnion, Branches: branches}
}

// Intersection builds a conjunction of branches. A single branch is returned as is.
func Intersection(branches ...*Descriptor) *Descriptor {
	if len(branches) == 1 {
		return branches[0]
	}
	return &Descriptor{Kind: KindIntersection, Branches: branches}
}

// IsAnnotation reports whether d is an annotation marker.
func (d *Descriptor) IsAnnotation() bool {
	return d != nil && d.Kind == KindObject && d.Literal != ""
}

// Text renders d as a type expression. Parsing the result with
// Catalog.ParseType yields an equivalent descriptor.
func (d *Descriptor) Text() string {
	if d == nil {
		return "any"
	}
	switch d.Kind {
	case KindBoolean, KindNumber, KindString, KindAny:
		return d.Kind.String()
	case KindEnum:
		return d.Ref.String()
	case KindObject:
		if d.Literal != "" {
			return d.Literal
		}
		return d.Ref.String()
	case KindArray:
		elem := d.Elem.Text()
		if d.Elem != nil && (d.Elem.Kind == KindUnion || d.Elem.Kind == KindIntersection) {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case KindUnion, KindIntersection:
		sep := " | "
		if d.Kind == KindIntersection {
			sep = " & "
		}
		parts := make([]string, len(d.Branches))
		for i, b := range d.Branches {
			parts[i] = b.Text()
			if b.Kind == KindUnion || (b.Kind == KindIntersection && d.Kind == KindUnion) {
				parts[i] = "(" + parts[i] + ")"
			}
		}
		return strings.Join(parts, sep)
	}
	return d.Kind.String()
}
