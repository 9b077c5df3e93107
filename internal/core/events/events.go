// Package events publishes app lifecycle and request rejection events.
package events

import (
	"context"
	"time"

	"github.com/swayhq/sway/internal/types"
)

// Event topic constants
const (
	TopicRouteTableCompiled = "sway.route_table.compiled"
	TopicRequestRejected    = "sway.request.rejected"
	TopicSnapshotStored     = "sway.snapshot.stored"
)

// RouteTableCompiled is published once the app has built every route.
type RouteTableCompiled struct {
	Routes   int           `json:"routes"`
	Methods  int           `json:"methods"`
	Duration time.Duration `json:"duration_ns"`
}

// RequestRejected is published when input validation fails.
type RequestRejected struct {
	RequestID  types.RequestID  `json:"request_id"`
	Route      string           `json:"route"`
	Method     types.RestMethod `json:"method"`
	Violations []string         `json:"violations"`
}

// SnapshotStored is published when a new route table snapshot is saved.
type SnapshotStored struct {
	ID       types.SnapshotID `json:"id"`
	Checksum string           `json:"checksum"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// New returns a NATS publisher when url is set and a no-op one otherwise.
func New(url string) (Publisher, error) {
	if url == "" {
		return &NoopPublisher{}, nil
	}
	return NewNATSPublisher(url)
}
