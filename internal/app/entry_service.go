package app

import (
	"context"

	"diary/internal/domain"

	"github.com/google/uuid"
)

// EntryService encapsulates the diary use cases. It adds nothing to the
// repository contract beyond assigning IDs to new entries.
type EntryService struct {
	repo  domain.EntryRepository
	newID func() string
}

// NewEntryService creates an EntryService backed by the given repository.
func NewEntryService(repo domain.EntryRepository) *EntryService {
	return &EntryService{repo: repo, newID: uuid.NewString}
}

// Save upserts e and returns it as stored. An empty ID is replaced by a
// fresh UUID; any other field is stored as given.
func (s *EntryService) Save(ctx context.Context, e domain.HeadacheEntry) (domain.HeadacheEntry, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if err := s.repo.SaveEntry(ctx, e); err != nil {
		return domain.HeadacheEntry{}, err
	}
	return e, nil
}

// Get returns the entry with the given ID, or nil.
func (s *EntryService) Get(ctx context.Context, id string) (*domain.HeadacheEntry, error) {
	return s.repo.GetEntry(ctx, id)
}

// GetByDate returns the first entry on the given day, or nil.
func (s *EntryService) GetByDate(ctx context.Context, day string) (*domain.HeadacheEntry, error) {
	return s.repo.GetEntryByDate(ctx, day)
}

// GetToday returns today's local day and its entry, if any.
func (s *EntryService) GetToday(ctx context.Context) (string, *domain.HeadacheEntry, error) {
	today := domain.Today()
	e, err := s.repo.GetEntryByDate(ctx, today)
	return today, e, err
}

// List returns every entry.
func (s *EntryService) List(ctx context.Context) ([]domain.HeadacheEntry, error) {
	return s.repo.ListEntries(ctx)
}

// ListInRange returns the entries dated within [startDay, endDay].
func (s *EntryService) ListInRange(ctx context.Context, startDay, endDay string) ([]domain.HeadacheEntry, error) {
	return s.repo.ListEntriesInRange(ctx, startDay, endDay)
}

// Delete removes an entry. Unknown IDs are not an error.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteEntry(ctx, id)
}
