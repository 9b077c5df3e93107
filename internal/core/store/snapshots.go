package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/types"
)

// Snapshot kinds.
const (
	KindRoutes  = "routes"
	KindSchemas = "schemas"
)

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// Snapshot is a stored, content-addressed set of compiled rule trees.
type Snapshot struct {
	ID        types.SnapshotID `db:"snapshot_id" json:"id" yaml:"id"`
	Kind      string           `db:"kind" json:"kind" yaml:"kind"`
	Label     string           `db:"label" json:"label,omitempty" yaml:"label,omitempty"`
	Entries   int              `db:"entries" json:"entries" yaml:"entries"`
	Checksum  string           `db:"checksum" json:"checksum" yaml:"checksum"`
	Content   string           `db:"content" json:"-" yaml:"-"`
	CreatedAt time.Time        `db:"created_at" json:"created_at" yaml:"created_at"`
}

// Decode unmarshals the snapshot content into v.
func (s *Snapshot) Decode(v any) error {
	if s.Content == "" {
		return fmt.Errorf("snapshot %s has no content loaded", s.ID)
	}
	return json.Unmarshal([]byte(s.Content), v)
}

// Snapshots stores snapshots. Identical content of the same kind is stored
// once.
type Snapshots struct {
	queries Queries
	now     func() time.Time
}

// NewSnapshots creates a snapshot store over queries.
func NewSnapshots(queries Queries) *Snapshots {
	return &Snapshots{queries: queries, now: func() time.Time { return time.Now().UTC() }}
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Save stores content (marshaled as JSON) unless a snapshot of the same kind
// with identical content exists. created reports whether a row was written.
func (s *Snapshots) Save(kind, label string, entries int, content any) (snap *Snapshot, created bool, err error) {
	if kind != KindRoutes && kind != KindSchemas {
		return nil, false, fmt.Errorf("unknown snapshot kind %q", kind)
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	checksum := Checksum(data)

	var existing Snapshot
	err = s.queries.Get("get-snapshot-by-checksum", &existing, kind, checksum)
	switch {
	case err == nil:
		return &existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("database error: %w", err)
	}

	snap = &Snapshot{
		ID:        types.NewSnapshotID(),
		Kind:      kind,
		Label:     label,
		Entries:   entries,
		Checksum:  checksum,
		Content:   string(data),
		CreatedAt: s.now(),
	}
	if _, err := s.queries.Exec("insert-snapshot",
		snap.ID, snap.Kind, snap.Label, snap.Entries, snap.Checksum, snap.Content, snap.CreatedAt,
	); err != nil {
		return nil, false, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return snap, true, nil
}

// Get loads one snapshot with its content.
func (s *Snapshots) Get(id types.SnapshotID) (*Snapshot, error) {
	var snap Snapshot
	err := s.queries.Get("get-snapshot", &snap, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &snap, nil
}

// Latest loads the newest snapshot of kind.
func (s *Snapshots) Latest(kind string) (*Snapshot, error) {
	var snap Snapshot
	err := s.queries.Get("get-latest-snapshot", &snap, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s snapshot", types.ErrSnapshotNotFound, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &snap, nil
}

// List returns the newest snapshots without content.
func (s *Snapshots) List(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var snaps []Snapshot
	if err := s.queries.Select("list-snapshots", &snaps, limit); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return snaps, nil
}
