// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"diary/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	entries  map[string]domain.HeadacheEntry
	byDate   map[string][]string // date -> sorted entry IDs
	users    []*domain.User
	sessions map[string]*domain.Session

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		entries:  make(map[string]domain.HeadacheEntry),
		byDate:   make(map[string][]string),
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.EntryRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- EntryRepository ---

// SaveEntry inserts or overwrites the entry with e.ID.
func (db *DB) SaveEntry(ctx context.Context, e domain.HeadacheEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if old, ok := db.entries[e.ID]; ok {
		db.unindex(old)
	}
	db.entries[e.ID] = clone(e)
	ids := db.byDate[e.Date]
	i, _ := slices.BinarySearch(ids, e.ID)
	db.byDate[e.Date] = slices.Insert(ids, i, e.ID)
	return nil
}

// GetEntry returns the entry with the given ID, or nil.
func (db *DB) GetEntry(ctx context.Context, id string) (*domain.HeadacheEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.entries[id]
	if !ok {
		return nil, nil
	}
	c := clone(e)
	return &c, nil
}

// GetEntryByDate returns the entry with the lowest ID on date, or nil.
func (db *DB) GetEntryByDate(ctx context.Context, date string) (*domain.HeadacheEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ids := db.byDate[date]
	if len(ids) == 0 {
		return nil, nil
	}
	c := clone(db.entries[ids[0]])
	return &c, nil
}

// ListEntries returns every entry in ID order.
func (db *DB) ListEntries(ctx context.Context) ([]domain.HeadacheEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.scan(func(domain.HeadacheEntry) bool { return true }), nil
}

// DeleteEntry removes an entry. Missing IDs are ignored.
func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if old, ok := db.entries[id]; ok {
		db.unindex(old)
		delete(db.entries, id)
	}
	return nil
}

// ListEntriesInRange returns entries dated within [startDate, endDate] in ID order.
func (db *DB) ListEntriesInRange(ctx context.Context, startDate, endDate string) ([]domain.HeadacheEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.scan(func(e domain.HeadacheEntry) bool { return e.InRange(startDate, endDate) }), nil
}

// scan must be called with mu held.
func (db *DB) scan(keep func(domain.HeadacheEntry) bool) []domain.HeadacheEntry {
	keys := make([]string, 0, len(db.entries))
	for id := range db.entries {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	out := []domain.HeadacheEntry{}
	for _, id := range keys {
		if e := db.entries[id]; keep(e) {
			out = append(out, clone(e))
		}
	}
	return out
}

// unindex must be called with mu held.
func (db *DB) unindex(e domain.HeadacheEntry) {
	ids := db.byDate[e.Date]
	if i, ok := slices.BinarySearch(ids, e.ID); ok {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(db.byDate, e.Date)
		return
	}
	db.byDate[e.Date] = ids
}

// clone copies the slices so callers cannot mutate stored state.
func clone(e domain.HeadacheEntry) domain.HeadacheEntry {
	e.Medication = slices.Clone(e.Medication)
	e.Points.Front = slices.Clone(e.Points.Front)
	e.Points.Back = slices.Clone(e.Points.Back)
	return e
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// Len returns the number of stored sessions.
func (r *SessionRepo) Len() int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.db.sessions)
}
