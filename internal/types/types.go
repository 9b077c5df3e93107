// Package types provides domain models shared across sway components.
//
// The Rule Tree model in rules.go is consumed by internal/rules (compiler,
// validator, coercer), persisted by internal/core/store and served by the
// admin API, so it lives here rather than next to the compiler.
//
// ID utilities in ids.go import uuid and nanoid; everything else is plain
// data with no third-party dependencies.
package types

import "strings"

// RestMethod is an HTTP method a route handler can serve.
type RestMethod string

const (
	MethodGet     RestMethod = "GET"
	MethodPost    RestMethod = "POST"
	MethodPut     RestMethod = "PUT"
	MethodDelete  RestMethod = "DELETE"
	MethodOptions RestMethod = "OPTIONS"
)

// RestMethods lists the servable methods in registration order.
var RestMethods = []RestMethod{MethodGet, MethodPost, MethodPut, MethodDelete, MethodOptions}

// ParseRestMethod maps a handler method name or HTTP verb to a RestMethod.
// Matching is case-insensitive; ok is false for anything else.
func ParseRestMethod(name string) (RestMethod, bool) {
	switch strings.ToUpper(name) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "DELETE":
		return MethodDelete, true
	case "OPTIONS":
		return MethodOptions, true
	}
	return "", false
}

// ReadsQuery reports whether the method takes its input from the query string.
// POST and PUT read a JSON body instead.
func (m RestMethod) ReadsQuery() bool {
	return m == MethodGet || m == MethodDelete || m == MethodOptions
}

// HandlerName is the Go method name a route type implements to serve m.
func (m RestMethod) HandlerName() string {
	s := string(m)
	return s[:1] + strings.ToLower(s[1:])
}

// Resource limits enforced by the compiler, coercer and HTTP layer.
const (
	// MaxDescriptorDepth bounds recursion while lowering a Type Descriptor.
	// Deeper trees are almost always generated by a reference loop the cycle
	// guard could not see (anonymous structs nested in slices of themselves).
	MaxDescriptorDepth = 32

	// MaxStructuredLiteralSize caps the query-string text parsed as JSON by
	// the coercer.
	MaxStructuredLiteralSize = 64 * 1024

	// DefaultMaxBodyBytes is the request body limit when none is configured.
	DefaultMaxBodyBytes = 1024 * 1024

	// MaxAlternatives caps the OR list produced by lowering unions nested in
	// intersections, which multiply.
	MaxAlternatives = 256

	// MaxEnumMembers caps the member list copied into a rule setting.
	MaxEnumMembers = 1024
)
