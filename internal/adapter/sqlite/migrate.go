package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the schema version this binary writes.
const SchemaVersion = 3

// step upgrades the schema from version n-1 to n. Steps must be idempotent.
type step func(ctx context.Context, tx *sql.Tx) error

// steps[i] upgrades to version i+1.
var steps = []step{
	createEntries,
	createAccounts,
	nullableScale,
}

func createEntries(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			scale REAL NOT NULL,
			medication TEXT NOT NULL,
			points TEXT NOT NULL,
			notes TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);`,
	)
}

// createAccounts adds login users and their sessions. Times are unix nanoseconds.
func createAccounts(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			user_agent TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
	)
}

// nullableScale drops NOT NULL from entries.scale. SQLite stores a NaN REAL
// as NULL, and NaN scales must round-trip.
func nullableScale(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`DROP TABLE IF EXISTS entries_rebuild;`,
		`CREATE TABLE entries_rebuild (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			scale REAL,
			medication TEXT NOT NULL,
			points TEXT NOT NULL,
			notes TEXT NOT NULL
		);`,
		`INSERT INTO entries_rebuild (id, date, scale, medication, points, notes)
			SELECT id, date, scale, medication, points, notes FROM entries;`,
		`DROP TABLE entries;`,
		`ALTER TABLE entries_rebuild RENAME TO entries;`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);`,
	)
}

func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrate applies steps current+1..target in one transaction and records
// target in PRAGMA user_version.
func migrate(ctx context.Context, db *sql.DB, current, target int) error {
	if current > target {
		return fmt.Errorf("migrate: database schema version %d is newer than supported version %d", current, target)
	}
	if target > len(steps) {
		return fmt.Errorf("migrate: no step for schema version %d", target)
	}
	if current == target {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for v := current + 1; v <= target; v++ {
		if err := steps[v-1](ctx, tx); err != nil {
			return fmt.Errorf("migrate: version %d: %w", v, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("migrate: set user_version: %w", err)
	}
	return tx.Commit()
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}
