package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// SnapshotID identifies a stored route-table snapshot (UUIDv7).
type SnapshotID string

// RequestID identifies one inbound HTTP request in logs and events.
type RequestID string

// requestIDAlphabet is URL- and header-safe.
const requestIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const requestIDLength = 16

// NewSnapshotID generates a UUIDv7 snapshot identifier.
// Time-ordered IDs keep the snapshots index append-mostly.
// Panics on clock regression (uuid.Must).
func NewSnapshotID() SnapshotID {
	return SnapshotID(uuid.Must(uuid.NewV7()).String())
}

// ParseSnapshotID validates and converts a string to SnapshotID.
func ParseSnapshotID(s string) (SnapshotID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return SnapshotID(s), nil
}

// SnapshotIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs.
func SnapshotIDTime(id SnapshotID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// NewRequestID returns a short random request identifier prefixed with "req_".
func NewRequestID() (RequestID, error) {
	id, err := nanoid.Generate(requestIDAlphabet, requestIDLength)
	if err != nil {
		return "", fmt.Errorf("request id: %w", err)
	}
	return RequestID("req_" + id), nil
}
