// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"diary/internal/domain"
)

var _ domain.EntryRepository = (*DB)(nil)

const entryColumns = "id, date, scale, medication, points, notes"

// SaveEntry inserts e or overwrites every field of the entry with the same ID.
func (d *DB) SaveEntry(ctx context.Context, e domain.HeadacheEntry) error {
	medication, err := json.Marshal(e.Medication)
	if err != nil {
		return err
	}
	points, err := json.Marshal(e.Points)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			scale = EXCLUDED.scale,
			medication = EXCLUDED.medication,
			points = EXCLUDED.points,
			notes = EXCLUDED.notes;`,
		e.ID, e.Date, e.Scale, string(medication), string(points), e.Notes,
	)
	return err
}

// GetEntry retrieves an entry by ID.
func (d *DB) GetEntry(ctx context.Context, id string) (*domain.HeadacheEntry, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = $1;", id)
	return scanOne(row)
}

// GetEntryByDate retrieves the entry with the lowest ID on date.
func (d *DB) GetEntryByDate(ctx context.Context, date string) (*domain.HeadacheEntry, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE date = $1 ORDER BY id LIMIT 1;", date)
	return scanOne(row)
}

// ListEntries returns every entry in ID order.
func (d *DB) ListEntries(ctx context.Context) ([]domain.HeadacheEntry, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+entryColumns+" FROM entries ORDER BY id;")
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// DeleteEntry removes an entry by ID.
func (d *DB) DeleteEntry(ctx context.Context, id string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM entries WHERE id = $1;", id)
	return err
}

// ListEntriesInRange returns entries with startDate <= date <= endDate in ID order.
func (d *DB) ListEntriesInRange(ctx context.Context, startDate, endDate string) ([]domain.HeadacheEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE date >= $1 AND date <= $2 ORDER BY id;", startDate, endDate)
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
		e                  domain.HeadacheEntry
		medication, points []byte
	)
	if err := s.Scan(&e.ID, &e.Date, &e.Scale, &medication, &points, &e.Notes); err != nil {
		return domain.HeadacheEntry{}, err
	}
	if err := json.Unmarshal(medication, &e.Medication); err != nil {
		return domain.HeadacheEntry{}, err
	}
	if err := json.Unmarshal(points, &e.Points); err != nil {
		return domain.HeadacheEntry{}, err
	}
	return e, nil
}

func scanOne(row *sql.Row) (*domain.HeadacheEntry, error) {
	e, err := scanEntry(row)
	return optional(&e, err)
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
