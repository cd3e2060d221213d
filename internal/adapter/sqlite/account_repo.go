package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"diary/internal/domain"
)

var (
	_ domain.UserRepository    = (*Gateway)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

const userColumns = "id, username, password_hash, created_at"

// GetByUsername returns the account named username, or nil.
func (g *Gateway) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("GetByUsername", time.Now())

	return scanUser(db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?;", username))
}

// GetByID returns the account with the given ID, or nil.
func (g *Gateway) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("GetByID", time.Now())

	return scanUser(db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?;", id))
}

// Create stores a new account. Usernames are unique; a duplicate fails with
// the engine's constraint error.
func (g *Gateway) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("CreateUser", time.Now())

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?);",
		username, passwordHash, now.UnixNano())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// Count returns the number of accounts.
func (g *Gateway) Count(ctx context.Context) (int, error) {
	db, err := g.conn()
	if err != nil {
		return 0, err
	}
	defer g.observe("CountUsers", time.Now())

	var n int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users;").Scan(&n)
	return n, err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u       domain.User
		created int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

// SessionRepo keeps login sessions in the gateway's database.
type SessionRepo struct {
	g *Gateway
}

// NewSessionRepo returns the session store sharing g's connection.
func (g *Gateway) NewSessionRepo() *SessionRepo {
	return &SessionRepo{g: g}
}

// Create stores a session for userID.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	db, err := r.g.conn()
	if err != nil {
		return err
	}
	defer r.g.observe("CreateSession", time.Now())

	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, user_agent, ip, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?);`,
		token, userID, userAgent, ip, expiresAt.UnixNano(), time.Now().UnixNano())
	return err
}

// GetByToken returns the session for token, expired or not, or nil.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	db, err := r.g.conn()
	if err != nil {
		return nil, err
	}
	defer r.g.observe("GetSession", time.Now())

	var (
		s                  domain.Session
		expires, createdAt int64
	)
	err = db.QueryRowContext(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = ?;", token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &expires, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Unix(0, expires)
	s.CreatedAt = time.Unix(0, createdAt)
	return &s, nil
}

// Delete removes a session. Unknown tokens are not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	db, err := r.g.conn()
	if err != nil {
		return err
	}
	defer r.g.observe("DeleteSession", time.Now())

	_, err = db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?;", token)
	return err
}

// DeleteExpired removes every session past its expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	db, err := r.g.conn()
	if err != nil {
		return err
	}
	defer r.g.observe("DeleteExpiredSessions", time.Now())

	_, err = db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?;", time.Now().UnixNano())
	return err
}
