package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type StubEventRepository struct {
	mu     sync.Mutex
	Events []Event
	// FailOn makes StoreEvents or UpdateEvents return the error when set.
	FailOn error
}

func NewStubEventRepository() *StubEventRepository {
	return &StubEventRepository{Events: []Event{}}
}

// WithTransaction snapshots the rows and restores them when fn fails.
func (s *StubEventRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	s.mu.Lock()
	snapshot := make([]Event, len(s.Events))
	copy(snapshot, s.Events)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.Events = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *StubEventRepository) StoreEvents(ctx context.Context, events []Event) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return nil, s.FailOn
	}

	now := time.Now().UTC()
	stored := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Id == uuid.Nil {
			e.Id = uuid.New()
		}
		e.CreatedAt = now
		e.UpdatedAt = now
		s.Events = append(s.Events, e)
		stored = append(stored, e)
	}
	return stored, nil
}

func (s *StubEventRepository) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Events {
		if e.Id == id {
			return e, nil
		}
	}
	return Event{}, ErrEventNotFound
}

func (s *StubEventRepository) GetSeries(ctx context.Context, seriesId uuid.UUID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := make([]Event, 0)
	for _, e := range s.Events {
		if e.RecurringEventId != nil && *e.RecurringEventId == seriesId {
			series = append(series, e)
		}
	}
	sortByStart(series)
	return series, nil
}

func (s *StubEventRepository) UpdateEvents(ctx context.Context, events []Event) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return nil, s.FailOn
	}

	updated := make([]Event, 0, len(events))
	for _, e := range events {
		idx := s.indexOf(e.Id)
		if idx < 0 {
			return nil, ErrEventNotFound
		}
		// series columns are never rewritten by an update
		e.RecurringEventId = s.Events[idx].RecurringEventId
		e.RecurrenceRule = s.Events[idx].RecurrenceRule
		e.CreatedAt = s.Events[idx].CreatedAt
		e.UpdatedAt = time.Now().UTC()
		s.Events[idx] = e
		updated = append(updated, e)
	}
	return updated, nil
}

func (s *StubEventRepository) ListEvents(ctx context.Context, filter ListFilter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		if filter.StartsAt != nil && e.StartsAt.Before(*filter.StartsAt) {
			continue
		}
		if filter.EndsAt != nil && e.EndsAt.After(*filter.EndsAt) {
			continue
		}
		result = append(result, e)
	}
	sortByStart(result)

	if filter.Offset != nil {
		if *filter.Offset >= len(result) {
			return []Event{}, nil
		}
		result = result[*filter.Offset:]
	}
	if filter.Limit != nil && *filter.Limit < len(result) {
		result = result[:*filter.Limit]
	}
	return result, nil
}

func (s *StubEventRepository) FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.Events {
		if e.Slug == slug && e.StartsAt.Equal(startsAt) {
			return e, nil
		}
	}
	return Event{}, ErrEventNotFound
}

func (s *StubEventRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = []Event{}
}

func (s *StubEventRepository) indexOf(id uuid.UUID) int {
	for i, e := range s.Events {
		if e.Id == id {
			return i
		}
	}
	return -1
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}
