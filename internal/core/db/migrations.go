package db

/*
 * Schema migrations.
 *
 * Migration files are embedded per dialect (migrations/sqlite,
 * migrations/postgres) and applied in file-name order. Every applied file is
 * recorded in the migrations table with the sha256 of its content.
 *
 * MigrateUp refuses to run when:
 *   - a recorded checksum differs from the embedded file
 *   - the database records a migration the binary does not ship
 *
 * A file runs in one transaction together with its bookkeeping row, so a
 * failed file leaves neither schema changes nor a record behind.
 */

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/swayhq/sway/migrations"
)

// MigrationStatus reports one embedded migration and, once applied, its
// bookkeeping row.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

type appliedRow struct {
	ID          string `db:"migration_id"`
	Checksum    string `db:"checksum"`
	AppliedAt   any    `db:"applied_at"`
	ExecutionMs int64  `db:"execution_ms"`
}

// MigrateUp applies every pending migration of the database's dialect.
func MigrateUp(db *sqlx.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	applied, err := m.applied()
	if err != nil {
		return err
	}
	if err := m.verify(applied); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}
	for _, f := range m.files {
		if _, ok := applied[f.ID]; ok {
			continue
		}
		if err := m.apply(f); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists the embedded migrations in order, applied or pending.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	m, err := newMigrator(db)
	if err != nil {
		return nil, err
	}
	applied, err := m.applied()
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.files))
	for _, f := range m.files {
		s := MigrationStatus{ID: f.ID, Checksum: f.Checksum}
		if row, ok := applied[f.ID]; ok {
			s.Applied = true
			s.Checksum = row.Checksum
			s.AppliedAt = parseAppliedAt(row.AppliedAt)
			s.ExecutionMs = row.ExecutionMs
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

type migrator struct {
	db     *sqlx.DB
	sqlite bool
	files  []migration
}

func newMigrator(db *sqlx.DB) (*migrator, error) {
	var (
		fsys fs.FS
		dir  string
	)
	switch db.DriverName() {
	case "sqlite3":
		fsys, dir = embeddedmigrations.SqliteMigrations, "sqlite"
	case "postgres":
		fsys, dir = embeddedmigrations.PostgresMigrations, "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	files, err := loadMigrations(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	m := &migrator{db: db, sqlite: db.DriverName() == "sqlite3", files: files}
	if _, err := db.Exec(m.trackingTable()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	return m, nil
}

// trackingTable must match the migrations table of 001_initial_schema.sql.
func (m *migrator) trackingTable() string {
	if m.sqlite {
		return `CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			execution_ms INTEGER NOT NULL,
			CHECK (applied_at LIKE '____-__-__T__:__:__Z')
		)`
	}
	return `CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
		execution_ms INTEGER NOT NULL
	)`
}

func (m *migrator) applied() (map[string]appliedRow, error) {
	var rows []appliedRow
	if err := m.db.Select(&rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	out := make(map[string]appliedRow, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

func (m *migrator) verify(applied map[string]appliedRow) error {
	shipped := make(map[string]string, len(m.files))
	for _, f := range m.files {
		shipped[f.ID] = f.Checksum
	}

	ids := make([]string, 0, len(applied))
	for id := range applied {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		want, ok := shipped[id]
		if !ok {
			return fmt.Errorf("migration %s is applied but not embedded", id)
		}
		if got := applied[id].Checksum; got != want {
			return fmt.Errorf("checksum mismatch for migration %s: embedded %s, recorded %s", id, want, got)
		}
	}
	return nil
}

func (m *migrator) apply(f migration) (err error) {
	start := time.Now()
	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", f.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range splitStatements(f.SQL) {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", f.ID, err)
		}
	}

	now := time.Now().UTC()
	var appliedAt any = now
	if m.sqlite {
		appliedAt = now.Format(time.RFC3339)
	}
	if _, err = tx.Exec(
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		f.ID, f.Checksum, appliedAt, time.Since(start).Milliseconds(),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", f.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", f.ID, err)
	}
	return nil
}

// loadMigrations reads the .sql files of dir, sorted by name.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var files []migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(content)
		files = append(files, migration{ID: e.Name(), Checksum: hex.EncodeToString(sum[:]), SQL: string(content)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

// splitStatements drops comment lines and splits script on semicolons.
// lib/pq runs one statement per Exec.
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// parseAppliedAt reads applied_at as either driver returns it: sqlite keeps
// RFC 3339 text, postgres a timestamp.
func parseAppliedAt(v any) *time.Time {
	var text string
	switch x := v.(type) {
	case time.Time:
		return &x
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		return nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return nil
	}
	return &t
}
