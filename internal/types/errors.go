package types

import "errors"

// Sentinel errors for sway operations.
var (
	// ErrUnresolvedObject indicates an object reference the descriptor provider cannot resolve.
	ErrUnresolvedObject = errors.New("object type not found or not exported")

	// ErrUnresolvedEnum indicates an enum reference without member values.
	ErrUnresolvedEnum = errors.New("enum type cannot be resolved to member values")

	// ErrHeterogeneousArray indicates an array element type that lowers to more than one rule.
	ErrHeterogeneousArray = errors.New("validation not supported for array of mixed element shapes")

	// ErrMalformedAnnotation indicates an annotation literal that does not parse.
	ErrMalformedAnnotation = errors.New("malformed annotation literal")

	// ErrUnknownAnnotation indicates an annotation name outside the parameterized rule kinds.
	ErrUnknownAnnotation = errors.New("unknown annotation")

	// ErrCyclicReference indicates an object type that references itself.
	ErrCyclicReference = errors.New("cyclic object reference")

	// ErrDescriptorTooDeep indicates a descriptor nested beyond MaxDescriptorDepth.
	ErrDescriptorTooDeep = errors.New("type descriptor exceeds maximum depth")

	// ErrTooManyEnumMembers indicates an enum larger than MaxEnumMembers.
	ErrTooManyEnumMembers = errors.New("enum has too many members")

	// ErrInvalidTypeExpression indicates a type expression that does not parse.
	ErrInvalidTypeExpression = errors.New("invalid type expression")

	// ErrDuplicateDeclaration indicates two declarations with the same reference.
	ErrDuplicateDeclaration = errors.New("type declared more than once")

	// ErrUnsupportedGoType indicates a Go type the reflector cannot describe.
	ErrUnsupportedGoType = errors.New("unsupported Go type")

	// ErrTooManyAlternatives indicates a union whose lowered OR list exceeds MaxAlternatives.
	ErrTooManyAlternatives = errors.New("type lowers to too many alternatives")

	// ErrRegistryFrozen indicates a custom rule registered after the app started serving.
	ErrRegistryFrozen = errors.New("custom rule registry is frozen")

	// ErrInvalidCustomRule indicates a custom rule with an empty name or nil predicate.
	ErrInvalidCustomRule = errors.New("invalid custom rule")

	// ErrCoercionFailed indicates a query value that cannot be reshaped.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrDuplicateRoute indicates two route files mapping to the same URL.
	ErrDuplicateRoute = errors.New("route declared multiple times")

	// ErrNoServingMethods indicates a route type without Get/Post/Put/Delete/Options.
	ErrNoServingMethods = errors.New("route does not have a valid method name")

	// ErrInvalidHandlerSignature indicates a handler method with an unsupported signature.
	ErrInvalidHandlerSignature = errors.New("invalid handler signature")

	// ErrRouteOutsideRoot indicates a route file outside the configured routes root.
	ErrRouteOutsideRoot = errors.New("route file outside routes root")

	// ErrSnapshotNotFound indicates an unknown snapshot id.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSchemaNotFound indicates an unknown validation schema name.
	ErrSchemaNotFound = errors.New("schema not found")
)
