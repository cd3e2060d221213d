// Package sqlite implements the diary repositories on an embedded SQLite
// database. The connection is opened lazily by the first operation and shared
// by every later one.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// DBName is the file name of the diary database inside the data directory.
const DBName = "kopfschmerzTagebuch.db"

// DefaultSlowQuery is the duration above which a query is logged at Warn.
const DefaultSlowQuery = 50 * time.Millisecond

// Gateway is the diary store. It is safe for concurrent use; concurrent
// first callers all wait for the same open.
type Gateway struct {
	path      string
	logger    *slog.Logger
	slowQuery time.Duration

	open   func() (*sql.DB, error)
	opened atomic.Bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for lifecycle and query timing messages.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSlowQueryThreshold sets the Warn threshold for query timing.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.slowQuery = d
		}
	}
}

// New returns a Gateway for the database file at path. Nothing is opened
// until the first operation. Use ":memory:" for a private in-memory database.
func New(path string, opts ...Option) *Gateway {
	g := &Gateway{
		path:      path,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		slowQuery: DefaultSlowQuery,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.open = sync.OnceValues(g.connect)
	return g
}

// Open returns a Gateway for DBName inside dir.
func Open(dir string, opts ...Option) *Gateway {
	return New(filepath.Join(dir, DBName), opts...)
}

// Path returns the database file path.
func (g *Gateway) Path() string {
	return g.path
}

// Close closes the connection if one was ever opened.
func (g *Gateway) Close() error {
	if !g.opened.Load() {
		return nil
	}
	db, err := g.open()
	if err != nil {
		return nil
	}
	return db.Close()
}

// conn returns the shared handle, opening and migrating it on first use.
// A failed open is remembered and returned to every later caller.
func (g *Gateway) conn() (*sql.DB, error) {
	return g.open()
}

func (g *Gateway) connect() (*sql.DB, error) {
	g.opened.Store(true)

	memory := g.path == ":memory:"
	dsn := g.path
	if !memory {
		if err := os.MkdirAll(filepath.Dir(g.path), 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	}

	g.logger.Info("opening diary database", "path", g.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if memory {
		// Every pooled connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	current, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if current != SchemaVersion {
		g.logger.Info("migrating diary database", "from", current, "to", SchemaVersion)
	}
	if err := migrate(ctx, db, current, SchemaVersion); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// observe logs the duration of one operation.
func (g *Gateway) observe(op string, start time.Time) {
	elapsed := time.Since(start)
	ms := float64(elapsed.Microseconds()) / 1000.0
	if elapsed >= g.slowQuery {
		g.logger.Warn("slow_query", "op", op, "duration_ms", ms)
		return
	}
	g.logger.Debug("query", "op", op, "duration_ms", ms)
}
