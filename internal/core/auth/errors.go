package auth

import "errors"

// Failures that do not confirm a key exists map to UNAUTHENTICATED; a revoked
// key maps to PERMISSION_DENIED and storage failures to UNAVAILABLE.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrStorage          = errors.New("key storage unavailable")
)
