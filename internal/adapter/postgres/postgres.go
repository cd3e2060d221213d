package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// SchemaVersion is the schema version this binary writes.
const SchemaVersion = 2

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// steps[i] upgrades the schema to version i+1. Every statement is idempotent.
var steps = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT COLLATE "C" PRIMARY KEY,
			date TEXT COLLATE "C" NOT NULL,
			scale DOUBLE PRECISION NOT NULL,
			medication JSONB NOT NULL,
			points JSONB NOT NULL,
			notes TEXT NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date);",
	},
	{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', ip TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	},
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var current int
	err := d.sql.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1;").Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("migrate: read schema_version: %w", err)
	}
	fresh := errors.Is(err, sql.ErrNoRows)

	if current > SchemaVersion {
		return fmt.Errorf("migrate: database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for v := current + 1; v <= SchemaVersion; v++ {
		for _, stmt := range steps[v-1] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: version %d: %w", v, err)
			}
		}
	}

	record := "UPDATE schema_version SET version = $1;"
	if fresh {
		record = "INSERT INTO schema_version (version) VALUES ($1);"
	}
	if _, err := tx.ExecContext(ctx, record, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema_version: %w", err)
	}
	return tx.Commit()
}
