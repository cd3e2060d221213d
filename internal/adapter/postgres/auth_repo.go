package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"diary/internal/domain"
)

var (
	_ domain.UserRepository    = (*DB)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

const (
	userCols    = "id, username, password_hash, created_at"
	sessionCols = "token, user_id, user_agent, ip, expires_at, created_at"
)

// GetByUsername returns the account named username, or nil.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return optional(scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username = $1", username)))
}

// GetByID returns the account with the given ID, or nil.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return optional(scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id = $1", id)))
}

// Create inserts an account and returns it as stored. A taken username
// surfaces as the unique-constraint error from the server.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, now()) RETURNING "+userCols,
		username, passwordHash))
}

func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// SessionRepo stores login sessions next to the accounts they belong to.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionCols+") VALUES ($1, $2, $3, $4, $5, now())",
		token, userID, userAgent, ip, expiresAt)
	return err
}

// GetByToken returns the session for token, or nil. Expiry is the caller's
// concern.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE token = $1", token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt)
	return optional(&s, err)
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired drops sessions whose expiry has passed by the server clock.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < now()")
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// optional maps sql.ErrNoRows to a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
