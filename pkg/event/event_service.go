package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	log "github.com/sirupsen/logrus"
)

const dayLabelLayout = "Monday, January 2, 2006"

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Event, error)
	// ListByDay groups listed events by their start day in the calendar timezone.
	ListByDay(ctx context.Context, filter ListFilter) ([]DayGroup, error)
	// Create stores base as a standalone event, or as a whole series when rule is set.
	Create(ctx context.Context, base Event, rule *string) ([]Event, error)
	// Update applies the request to the occurrences selected by its scope and returns them.
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) ([]Event, error)
	// Upsert stores e, or overwrites the event with the same slug and start. created reports which.
	Upsert(ctx context.Context, e Event) (stored Event, created bool, err error)
}

type ServiceImpl struct {
	repo           Repository
	maxOccurrences int
	location       *time.Location
}

func NewService(repo Repository, cfg config.Events) *ServiceImpl {
	return &ServiceImpl{
		repo:           repo,
		maxOccurrences: cfg.MaxOccurrences,
		location:       cfg.Location(),
	}
}

func (s *ServiceImpl) List(ctx context.Context, filter ListFilter) ([]Event, error) {
	return s.repo.ListEvents(ctx, filter)
}

func (s *ServiceImpl) ListByDay(ctx context.Context, filter ListFilter) ([]DayGroup, error) {
	events, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	groups := make([]DayGroup, 0)
	for _, e := range events {
		local := e.StartsAt.In(s.location)
		label := local.Format(dayLabelLayout)
		if len(groups) == 0 || groups[len(groups)-1].Day != label {
			groups = append(groups, DayGroup{Day: label, DayOfMonth: local.Day(), Events: []Event{}})
		}
		last := &groups[len(groups)-1]
		last.Events = append(last.Events, e)
	}
	return groups, nil
}

func (s *ServiceImpl) Create(ctx context.Context, base Event, rule *string) ([]Event, error) {
	if !base.EndsAt.After(base.StartsAt) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTimeRange, base.StartsAt, base.EndsAt)
	}

	if rule == nil || strings.TrimSpace(*rule) == "" {
		base.RecurringEventId = nil
		base.RecurrenceRule = nil
		log.Debugf("Creating event %q at %s", base.Slug, base.StartsAt)
		return s.repo.StoreEvents(ctx, []Event{base})
	}

	occurrences, err := ExpandIn(base, *rule, s.location, s.maxOccurrences)
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("%w: rule produces no occurrences", ErrInvalidRule)
	}
	log.Debugf("Creating series %s of %d occurrences for %q", *occurrences[0].RecurringEventId, len(occurrences), base.Slug)

	var stored []Event
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		var err error
		stored, err = repo.StoreEvents(ctx, occurrences)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) ([]Event, error) {
	var updated []Event
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		target, err := repo.GetEvent(ctx, id)
		if err != nil {
			return err
		}

		var series []Event
		if target.IsRecurring() && req.Scope != ScopeSingle {
			series, err = repo.GetSeries(ctx, *target.RecurringEventId)
			if err != nil {
				return err
			}
		}

		selected := ResolveTargets(target, req.Scope, series)
		log.Tracef("Update of %s with scope %s selected %d occurrences", id, req.Scope, len(selected))

		patched, err := ApplyPatch(selected, req.Patch)
		if err != nil {
			return err
		}
		updated, err = repo.UpdateEvents(ctx, patched)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ServiceImpl) Upsert(ctx context.Context, e Event) (Event, bool, error) {
	if !e.EndsAt.After(e.StartsAt) {
		return Event{}, false, fmt.Errorf("%w: %s to %s", ErrInvalidTimeRange, e.StartsAt, e.EndsAt)
	}

	existing, err := s.repo.FindBySlugAndStart(ctx, e.Slug, e.StartsAt)
	if err != nil && !errors.Is(err, ErrEventNotFound) {
		return Event{}, false, err
	}

	if errors.Is(err, ErrEventNotFound) {
		stored, err := s.repo.StoreEvents(ctx, []Event{e})
		if err != nil {
			return Event{}, false, err
		}
		return stored[0], true, nil
	}

	e.Id = existing.Id
	e.RecurringEventId = existing.RecurringEventId
	e.RecurrenceRule = existing.RecurrenceRule
	updated, err := s.repo.UpdateEvents(ctx, []Event{e})
	if err != nil {
		return Event{}, false, err
	}
	return updated[0], false, nil
}
