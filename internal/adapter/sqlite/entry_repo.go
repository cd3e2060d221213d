package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"diary/internal/domain"
)

var _ domain.EntryRepository = (*Gateway)(nil)

const entryColumns = "id, date, scale, medication, points, notes"

// SaveEntry inserts e or overwrites every field of the entry with the same ID.
func (g *Gateway) SaveEntry(ctx context.Context, e domain.HeadacheEntry) error {
	db, err := g.conn()
	if err != nil {
		return err
	}
	defer g.observe("SaveEntry", time.Now())

	medication, err := json.Marshal(e.Medication)
	if err != nil {
		return err
	}
	points, err := json.Marshal(e.Points)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date=excluded.date,
			scale=excluded.scale,
			medication=excluded.medication,
			points=excluded.points,
			notes=excluded.notes;`,
		e.ID, e.Date, e.Scale, string(medication), string(points), e.Notes,
	)
	return err
}

// GetEntry returns the entry with the given ID, or nil if there is none.
func (g *Gateway) GetEntry(ctx context.Context, id string) (*domain.HeadacheEntry, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("GetEntry", time.Now())

	row := db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?;", id)
	return scanOne(row)
}

// GetEntryByDate returns the entry on date with the lowest ID. The date
// index alone would break ties by rowid, which follows insertion order, so
// the query orders by id explicitly.
func (g *Gateway) GetEntryByDate(ctx context.Context, date string) (*domain.HeadacheEntry, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("GetEntryByDate", time.Now())

	row := db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries INDEXED BY idx_entries_date WHERE date = ? ORDER BY id LIMIT 1;", date)
	return scanOne(row)
}

// ListEntries returns every entry in ID order.
func (g *Gateway) ListEntries(ctx context.Context) ([]domain.HeadacheEntry, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("ListEntries", time.Now())

	rows, err := db.QueryContext(ctx, "SELECT "+entryColumns+" FROM entries ORDER BY id;")
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// DeleteEntry removes the entry with the given ID. Missing IDs are not an error.
func (g *Gateway) DeleteEntry(ctx context.Context, id string) error {
	db, err := g.conn()
	if err != nil {
		return err
	}
	defer g.observe("DeleteEntry", time.Now())

	_, err = db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?;", id)
	return err
}

// ListEntriesInRange returns entries with startDate <= date <= endDate in ID
// order. Dates compare as strings.
func (g *Gateway) ListEntriesInRange(ctx context.Context, startDate, endDate string) ([]domain.HeadacheEntry, error) {
	db, err := g.conn()
	if err != nil {
		return nil, err
	}
	defer g.observe("ListEntriesInRange", time.Now())

	rows, err := db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE date >= ? AND date <= ? ORDER BY id;", startDate, endDate)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (domain.HeadacheEntry, error) {
	var (
		e          domain.HeadacheEntry
		scale      sql.NullFloat64
		medication string
		points     string
	)
	if err := s.Scan(&e.ID, &e.Date, &scale, &medication, &points, &e.Notes); err != nil {
		return domain.HeadacheEntry{}, err
	}
	// NULL is how SQLite keeps a NaN scale.
	e.Scale = math.NaN()
	if scale.Valid {
		e.Scale = scale.Float64
	}
	if err := json.Unmarshal([]byte(medication), &e.Medication); err != nil {
		return domain.HeadacheEntry{}, err
	}
	if err := json.Unmarshal([]byte(points), &e.Points); err != nil {
		return domain.HeadacheEntry{}, err
	}
	return e, nil
}

func scanOne(row *sql.Row) (*domain.HeadacheEntry, error) {
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanAll(rows *sql.Rows) ([]domain.HeadacheEntry, error) {
	defer rows.Close() //nolint:errcheck

	out := []domain.HeadacheEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
