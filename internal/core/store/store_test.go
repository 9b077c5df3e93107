package store

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/swayhq/sway/internal/core/auth"
	"github.com/swayhq/sway/internal/core/db"
	"github.com/swayhq/sway/internal/types"
)

// newMockQueries loads the embedded named queries over a sqlmock database.
func newMockQueries(t *testing.T) (*db.Queries, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		mockDB.Close()
	})
	queries, err := db.LoadQueries(sqlx.NewDb(mockDB, "sqlite3"))
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	return queries, mock
}

var snapshotColumns = []string{"snapshot_id", "kind", "label", "entries", "checksum", "content", "created_at"}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func TestSnapshots_SaveNew(t *testing.T) {
	queries, mock := newMockQueries(t)
	s := NewSnapshots(queries)
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	content := map[string]any{"route": "/users"}
	checksum := Checksum([]byte(`{"route":"/users"}`))

	mock.ExpectQuery(q("WHERE kind = ? AND checksum = ?")).
		WithArgs(KindRoutes, checksum).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(q("INSERT INTO snapshots")).
		WithArgs(sqlmock.AnyArg(), KindRoutes, "v1", int64(1), checksum, `{"route":"/users"}`, fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snap, created, err := s.Save(KindRoutes, "v1", 1, content)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if _, err := types.ParseSnapshotID(string(snap.ID)); err != nil {
		t.Errorf("snapshot id %q is not a UUID: %v", snap.ID, err)
	}
	if snap.Checksum != checksum {
		t.Errorf("checksum = %s, want %s", snap.Checksum, checksum)
	}
}

func TestSnapshots_SaveDeduplicates(t *testing.T) {
	queries, mock := newMockQueries(t)
	s := NewSnapshots(queries)

	checksum := Checksum([]byte(`[1,2]`))
	mock.ExpectQuery(q("WHERE kind = ? AND checksum = ?")).
		WithArgs(KindSchemas, checksum).
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow("0190f0e0-0000-7000-8000-000000000001", KindSchemas, "old", 2, checksum, `[1,2]`, time.Now()))

	snap, created, err := s.Save(KindSchemas, "new", 2, []int{1, 2})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if created {
		t.Error("created = true, want false for identical content")
	}
	if snap.Label != "old" {
		t.Errorf("label = %q, want existing snapshot", snap.Label)
	}

	var got []int
	if err := snap.Decode(&got); err != nil || len(got) != 2 {
		t.Errorf("Decode = %v, %v", got, err)
	}
}

func TestSnapshots_SaveErrors(t *testing.T) {
	queries, mock := newMockQueries(t)
	s := NewSnapshots(queries)

	if _, _, err := s.Save("bogus", "", 0, nil); err == nil {
		t.Error("expected error for unknown kind")
	}

	mock.ExpectQuery(q("WHERE kind = ? AND checksum = ?")).WillReturnError(errors.New("disk full"))
	if _, _, err := s.Save(KindRoutes, "", 0, []int{}); err == nil || !strings.Contains(err.Error(), "database error") {
		t.Errorf("error = %v, want database error", err)
	}
}

func TestSnapshots_Get(t *testing.T) {
	queries, mock := newMockQueries(t)
	s := NewSnapshots(queries)

	id := types.SnapshotID("0190f0e0-0000-7000-8000-000000000002")
	mock.ExpectQuery(q("WHERE snapshot_id = ?")).WithArgs(string(id)).
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow(string(id), KindRoutes, "", 3, "abc", `[]`, time.Now()))
	mock.ExpectQuery(q("WHERE snapshot_id = ?")).WithArgs(string(id)).
		WillReturnError(sql.ErrNoRows)

	snap, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.ID != id || snap.Entries != 3 {
		t.Errorf("snapshot = %+v", snap)
	}

	if _, err := s.Get(id); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshots_LatestAndList(t *testing.T) {
	queries, mock := newMockQueries(t)
	s := NewSnapshots(queries)

	mock.ExpectQuery(q("LIMIT 1")).WithArgs(KindRoutes).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q("LIMIT ?")).WithArgs(DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow("0190f0e0-0000-7000-8000-000000000003", KindRoutes, "", 1, "a", "", time.Now()).
			AddRow("0190f0e0-0000-7000-8000-000000000002", KindSchemas, "", 2, "b", "", time.Now()))

	if _, err := s.Latest(KindRoutes); !errors.Is(err, types.ErrSnapshotNotFound) {
		t.Errorf("Latest error = %v, want ErrSnapshotNotFound", err)
	}

	snaps, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(snaps) != 2 || snaps[1].Kind != KindSchemas {
		t.Errorf("List = %+v", snaps)
	}
	if err := snaps[0].Decode(&[]any{}); err == nil {
		t.Error("Decode without content error = nil, want error")
	}
}

func TestAdminKeys_Create(t *testing.T) {
	queries, mock := newMockQueries(t)
	secretID := "0123456789abcdef0123456789abcdef"
	secret := []byte("testsecret1234567890abcdefghijklmnop")
	keys := NewAdminKeys(queries, map[string][]byte{secretID: secret})

	mock.ExpectExec(q("INSERT INTO admin_keys")).
		WithArgs(sqlmock.AnyArg(), "ci", secretID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	apiKey, key, err := keys.Create("ci", secretID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	gotSecret, _, err := auth.ParseAPIKey(apiKey)
	if err != nil {
		t.Fatalf("created key does not parse: %v", err)
	}
	if gotSecret != secretID || key.Name != "ci" {
		t.Errorf("key = %+v secret = %s", key, gotSecret)
	}

	if _, _, err := keys.Create("ci", "ffffffffffffffffffffffffffffffff"); !errors.Is(err, auth.ErrUnknownKey) {
		t.Errorf("Create(unknown secret) error = %v, want ErrUnknownKey", err)
	}
}

func TestAdminKeys_RevokeAndList(t *testing.T) {
	queries, mock := newMockQueries(t)
	keys := NewAdminKeys(queries, nil)

	mock.ExpectExec(q("UPDATE admin_keys SET revoked_at = ?")).
		WithArgs(sqlmock.AnyArg(), "key-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE admin_keys SET revoked_at = ?")).
		WithArgs(sqlmock.AnyArg(), "key-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("ORDER BY created_at")).
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id", "name", "secret_id", "created_at", "last_used_at", "revoked_at"}).
			AddRow("key-1", "ci", "0123456789abcdef0123456789abcdef", time.Now(), nil, time.Now()))

	if err := keys.Revoke("key-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := keys.Revoke("key-1"); err == nil {
		t.Error("second Revoke error = nil, want error")
	}

	list, err := keys.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || !list[0].Revoked() {
		t.Errorf("List = %+v, want one revoked key", list)
	}
}

func TestDefaultSecretID(t *testing.T) {
	if _, ok := DefaultSecretID(nil); ok {
		t.Error("DefaultSecretID(nil) ok = true")
	}
	id, ok := DefaultSecretID(map[string][]byte{"0190aaaa": nil, "0191bbbb": nil})
	if !ok || id != "0191bbbb" {
		t.Errorf("DefaultSecretID = %q, %v", id, ok)
	}
}
