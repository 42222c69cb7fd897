package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/utils"
	log "github.com/sirupsen/logrus"
)

type EventDTO struct {
	Id               string  `json:"id"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	StartsAt         string  `json:"startsAt"`
	EndsAt           string  `json:"endsAt"`
	Description      *string `json:"description"`
	IsFeatured       bool    `json:"isFeatured"`
	IsHasEndsAt      bool    `json:"isHasEndsAt"`
	IsAllDay         bool    `json:"isAllDay"`
	IsActive         bool    `json:"isActive"`
	HauntedBy        *string `json:"hauntedBy"`
	RecurringEventId *string `json:"recurringEventId"`
	RecurrenceRule   *string `json:"recurrenceRule"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

type DayGroupDTO struct {
	Day        string     `json:"day"`
	DayOfMonth int        `json:"dayOfMonth"`
	Events     []EventDTO `json:"events"`
}

type CreateEventRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=255"`
	Slug           string  `json:"slug" validate:"required,min=1,max=255"`
	StartsAt       string  `json:"startsAt" validate:"required,iso8601"`
	EndsAt         string  `json:"endsAt" validate:"required,iso8601"`
	Description    *string `json:"description" validate:"omitempty,max=1000"`
	IsFeatured     *bool   `json:"isFeatured"`
	IsHasEndsAt    *bool   `json:"isHasEndsAt"`
	IsAllDay       *bool   `json:"isAllDay"`
	IsActive       *bool   `json:"isActive"`
	HauntedBy      *string `json:"hauntedBy" validate:"omitempty,max=255"`
	RecurrenceRule *string `json:"recurrenceRule" validate:"omitempty,max=255"`
}

type UpdateEventRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,min=1,max=255"`
	StartsAt    *string `json:"startsAt" validate:"omitempty,iso8601"`
	EndsAt      *string `json:"endsAt" validate:"omitempty,iso8601"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsFeatured  *bool   `json:"isFeatured"`
	IsHasEndsAt *bool   `json:"isHasEndsAt"`
	IsAllDay    *bool   `json:"isAllDay"`
	IsActive    *bool   `json:"isActive"`
	HauntedBy   *string `json:"hauntedBy" validate:"omitempty,max=255"`
	Scope       string  `json:"scope"`
}

type EventHandler struct {
	service  Service
	validate *validator.Validate
	location *time.Location
}

func NewEventHandler(service Service, validate *validator.Validate, location *time.Location) *EventHandler {
	return &EventHandler{service: service, validate: validate, location: location}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	events, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTO(events))
}

func (h *EventHandler) ListByDay(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	groups, err := h.service.ListByDay(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response := make([]DayGroupDTO, 0, len(groups))
	for _, group := range groups {
		response = append(response, DayGroupDTO{
			Day:        group.Day,
			DayOfMonth: group.DayOfMonth,
			Events:     eventsToDTO(group.Events),
		})
	}
	rest.WriteJSON(w, http.StatusOK, response)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteValidationError(w, err)
		return
	}
	log.Debug("New event request: ", req)

	base := Event{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsFeatured:  valueOr(req.IsFeatured, false),
		IsHasEndsAt: valueOr(req.IsHasEndsAt, false),
		IsAllDay:    valueOr(req.IsAllDay, false),
		IsActive:    valueOr(req.IsActive, true),
		HauntedBy:   req.HauntedBy,
	}
	// both strings passed the iso8601 check
	base.StartsAt, _ = utils.ParseISO8601(req.StartsAt, h.location)
	base.EndsAt, _ = utils.ParseISO8601(req.EndsAt, h.location)

	created, err := h.service.Create(r.Context(), base, req.RecurrenceRule)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(created) == 1 && created[0].RecurringEventId == nil {
		rest.WriteJSON(w, http.StatusCreated, eventToDTO(created[0]))
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventsToDTO(created))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", err.Error())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	var req UpdateEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	// Keys only, to tell an explicit null apart from an absent field.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		rest.WriteValidationError(w, err)
		return
	}

	scope, err := ParseScope(req.Scope)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, UpdateRequest{
		Patch: h.toPatch(req, present),
		Scope: scope,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if scope == ScopeSingle || (len(updated) == 1 && updated[0].RecurringEventId == nil) {
		rest.WriteJSON(w, http.StatusOK, eventToDTO(updated[0]))
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTO(updated))
}

func (h *EventHandler) toPatch(req UpdateEventRequest, present map[string]json.RawMessage) FieldPatch {
	patch := FieldPatch{
		Name:        req.Name,
		Slug:        req.Slug,
		IsFeatured:  req.IsFeatured,
		IsHasEndsAt: req.IsHasEndsAt,
		IsAllDay:    req.IsAllDay,
		IsActive:    req.IsActive,
	}
	if req.StartsAt != nil {
		startsAt, _ := utils.ParseISO8601(*req.StartsAt, h.location)
		patch.StartsAt = &startsAt
	}
	if req.EndsAt != nil {
		endsAt, _ := utils.ParseISO8601(*req.EndsAt, h.location)
		patch.EndsAt = &endsAt
	}
	if _, ok := present["description"]; ok {
		patch.Description = &req.Description
	}
	if _, ok := present["hauntedBy"]; ok {
		patch.HauntedBy = &req.HauntedBy
	}
	return patch
}

func (h *EventHandler) parseFilter(r *http.Request) (ListFilter, error) {
	query := r.URL.Query()
	var filter ListFilter

	if value := query.Get("startsAt"); value != "" {
		startsAt, err := utils.ParseISO8601(value, h.location)
		if err != nil {
			return ListFilter{}, fmt.Errorf("startsAt: %w", err)
		}
		filter.StartsAt = &startsAt
	}
	if value := query.Get("endsAt"); value != "" {
		endsAt, err := utils.ParseISO8601(value, h.location)
		if err != nil {
			return ListFilter{}, fmt.Errorf("endsAt: %w", err)
		}
		filter.EndsAt = &endsAt
	}
	for name, target := range map[string]**int{"limit": &filter.Limit, "offset": &filter.Offset} {
		value := query.Get(name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return ListFilter{}, fmt.Errorf("%s must be a non-negative integer", name)
		}
		*target = &n
	}
	return filter, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", err.Error())
	case errors.Is(err, ErrInvalidRule):
		rest.WriteError(w, http.StatusBadRequest, "Invalid recurrence rule", err.Error())
	case errors.Is(err, ErrInvalidScope):
		rest.WriteError(w, http.StatusBadRequest, "Invalid scope", err.Error())
	case errors.Is(err, ErrInvalidTimeRange):
		rest.WriteError(w, http.StatusBadRequest, "Invalid time range", err.Error())
	default:
		log.Errorf("event request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		Id:             e.Id.String(),
		Name:           e.Name,
		Slug:           e.Slug,
		StartsAt:       e.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:         e.EndsAt.UTC().Format(time.RFC3339),
		Description:    e.Description,
		IsFeatured:     e.IsFeatured,
		IsHasEndsAt:    e.IsHasEndsAt,
		IsAllDay:       e.IsAllDay,
		IsActive:       e.IsActive,
		HauntedBy:      e.HauntedBy,
		RecurrenceRule: e.RecurrenceRule,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.RecurringEventId != nil {
		dto.RecurringEventId = ptr(e.RecurringEventId.String())
	}
	return dto
}

func eventsToDTO(events []Event) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	return dtos
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
