// Package store persists compiled rule snapshots and admin API keys.
package store

import (
	"database/sql"
)

// Queries is the named-query surface the stores need.
// Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest any, args ...any) error
	Select(name string, dest any, args ...any) error
	Exec(name string, args ...any) (sql.Result, error)
}
