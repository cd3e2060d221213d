package app

import (
	"context"
	"errors"

	"diary/internal/domain"
)

// MaxCalendarDays caps the length of a calendar request.
const MaxCalendarDays = 366

// CalendarService builds per-day views of the diary for calendar rendering.
type CalendarService struct {
	repo domain.EntryRepository
}

// NewCalendarService creates a CalendarService backed by the given repository.
func NewCalendarService(repo domain.EntryRepository) *CalendarService {
	return &CalendarService{repo: repo}
}

// DayCell is one calendar day. Scale and Color are empty when the day has no entry.
type DayCell struct {
	Day     string   `json:"day"`
	EntryID string   `json:"entryId,omitempty"`
	Scale   *float64 `json:"scale"`
	Color   string   `json:"color,omitempty"`
}

// GetDays returns one cell per day for days consecutive days from start.
// When several entries share a day, the one with the lowest ID is shown.
func (s *CalendarService) GetDays(ctx context.Context, start string, days int) ([]DayCell, error) {
	from, err := domain.ParseDate(start)
	if err != nil {
		return nil, errors.New("start must be a YYYY-MM-DD day")
	}
	if days <= 0 {
		return nil, errors.New("days must be > 0")
	}
	if days > MaxCalendarDays {
		days = MaxCalendarDays
	}

	end := domain.FormatDate(domain.AddDays(from, days-1))
	entries, err := s.repo.ListEntriesInRange(ctx, domain.FormatDate(from), end)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]domain.HeadacheEntry, len(entries))
	for _, e := range entries {
		if cur, ok := byDay[e.Date]; !ok || e.ID < cur.ID {
			byDay[e.Date] = e
		}
	}

	cells := make([]DayCell, 0, days)
	for i := 0; i < days; i++ {
		day := domain.FormatDate(domain.AddDays(from, i))
		cell := DayCell{Day: day}
		if e, ok := byDay[day]; ok {
			scale := e.Scale
			cell.EntryID = e.ID
			cell.Scale = &scale
			cell.Color = domain.PainColor(scale)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
