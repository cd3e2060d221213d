package domain

import "context"

// Point is a marked pain location on a body diagram.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BodyPoints holds the marked locations on the front and back diagrams.
type BodyPoints struct {
	Front []Point `json:"front"`
	Back  []Point `json:"back"`
}

// HeadacheEntry is a single diary record. ID is chosen by the caller and is
// the primary key; Date is a YYYY-MM-DD day and is not unique.
type HeadacheEntry struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"`
	Scale      float64    `json:"scale"`
	Medication []string   `json:"medication"`
	Points     BodyPoints `json:"points"`
	Notes      string     `json:"notes"`
}

// EntryRepository is the port for diary persistence.
//
// Lookups that find nothing return (nil, nil). Implementations do not
// validate entries and do not enforce one entry per date.
type EntryRepository interface {
	SaveEntry(ctx context.Context, e HeadacheEntry) error
	GetEntry(ctx context.Context, id string) (*HeadacheEntry, error)
	GetEntryByDate(ctx context.Context, date string) (*HeadacheEntry, error)
	ListEntries(ctx context.Context) ([]HeadacheEntry, error)
	DeleteEntry(ctx context.Context, id string) error
	ListEntriesInRange(ctx context.Context, startDate, endDate string) ([]HeadacheEntry, error)
}

// InRange reports whether e.Date lies in [startDate, endDate]. Days are
// fixed-width and zero-padded, so string order is calendar order.
func (e HeadacheEntry) InRange(startDate, endDate string) bool {
	return e.Date >= startDate && e.Date <= endDate
}
