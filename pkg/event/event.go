package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidRule      = errors.New("invalid recurrence rule")
	ErrInvalidScope     = errors.New("invalid scope")
	ErrInvalidTimeRange = errors.New("endsAt must be after startsAt")
)

// Event is a single calendar occurrence, either standalone or one member of a series.
type Event struct {
	Id          uuid.UUID
	Name        string
	Slug        string
	StartsAt    time.Time
	EndsAt      time.Time
	Description *string
	IsFeatured  bool
	IsHasEndsAt bool
	IsAllDay    bool
	IsActive    bool
	HauntedBy   *string
	// RecurringEventId is shared by every occurrence expanded from the same rule.
	RecurringEventId *uuid.UUID
	// RecurrenceRule is the verbatim rule text the series was expanded from.
	RecurrenceRule *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e Event) Duration() time.Duration {
	return e.EndsAt.Sub(e.StartsAt)
}

func (e Event) IsRecurring() bool {
	return e.RecurringEventId != nil
}

// Scope selects which occurrences of a series an update applies to.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeFuture Scope = "future"
	ScopeAll    Scope = "all"
)

// ParseScope maps request text to a Scope. An empty value means ScopeSingle.
func ParseScope(value string) (Scope, error) {
	switch Scope(value) {
	case "":
		return ScopeSingle, nil
	case ScopeSingle, ScopeFuture, ScopeAll:
		return Scope(value), nil
	default:
		return "", fmt.Errorf("%w: %q (expected single, future or all)", ErrInvalidScope, value)
	}
}

// FieldPatch carries the fields present in an update request. Nil means "leave untouched".
// Description and HauntedBy hold a pointer to the new pointer value so that callers
// can distinguish "unset" from "set to null".
type FieldPatch struct {
	Name        *string
	Slug        *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Description **string
	IsFeatured  *bool
	IsHasEndsAt *bool
	IsAllDay    *bool
	IsActive    *bool
	HauntedBy   **string
}

// ApplyTo returns a copy of e with every present field overwritten.
func (p FieldPatch) ApplyTo(e Event) Event {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Slug != nil {
		e.Slug = *p.Slug
	}
	if p.StartsAt != nil {
		e.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		e.EndsAt = *p.EndsAt
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.IsFeatured != nil {
		e.IsFeatured = *p.IsFeatured
	}
	if p.IsHasEndsAt != nil {
		e.IsHasEndsAt = *p.IsHasEndsAt
	}
	if p.IsAllDay != nil {
		e.IsAllDay = *p.IsAllDay
	}
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
	if p.HauntedBy != nil {
		e.HauntedBy = *p.HauntedBy
	}
	return e
}

func (p FieldPatch) IsEmpty() bool {
	return p == FieldPatch{}
}

// UpdateRequest keeps the selection scope apart from the field values being written.
type UpdateRequest struct {
	Patch FieldPatch
	Scope Scope
}

// ListFilter narrows event listings. Zero values mean "no bound".
type ListFilter struct {
	StartsAt *time.Time
	EndsAt   *time.Time
	Limit    *int
	Offset   *int
}

// DayGroup is the set of events starting on one calendar day.
type DayGroup struct {
	Day        string
	DayOfMonth int
	Events     []Event
}
