package event

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*mux.Router, *StubEventRepository) {
	t.Helper()
	repo := NewStubEventRepository()
	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	handler := NewEventHandler(newTestService(repo), rest.NewValidator(), location)

	router := mux.NewRouter()
	router.HandleFunc("/api/events", handler.List).Methods("GET")
	router.HandleFunc("/api/events/by-day", handler.ListByDay).Methods("GET")
	router.HandleFunc("/api/events", handler.Create).Methods("POST")
	router.HandleFunc("/api/events/{id}", handler.Update).Methods("PUT")
	return router, repo
}

func doRequest(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validCreateBody() map[string]any {
	return map[string]any{
		"name":     "Pumpkin Patch",
		"slug":     "pumpkin-patch",
		"startsAt": "2025-10-01T18:00:00Z",
		"endsAt":   "2025-10-01T20:00:00Z",
	}
}

func TestEventHandler_Create(t *testing.T) {
	t.Run("standalone event returns a single object", func(t *testing.T) {
		router, repo := setupHandlerTest(t)

		w := doRequest(router, http.MethodPost, "/api/events", validCreateBody())

		assert.Equal(t, http.StatusCreated, w.Code)
		var response EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Pumpkin Patch", response.Name)
		assert.Equal(t, "2025-10-01T18:00:00Z", response.StartsAt)
		assert.True(t, response.IsActive)
		assert.Nil(t, response.RecurringEventId)
		assert.Len(t, repo.Events, 1)
	})

	t.Run("recurring event returns the series", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		body := validCreateBody()
		body["recurrenceRule"] = "FREQ=WEEKLY;BYDAY=WE;COUNT=3"

		w := doRequest(router, http.MethodPost, "/api/events", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response []EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 3)
		assert.Equal(t, "2025-10-15T18:00:00Z", response[2].StartsAt)
		assert.Equal(t, "2025-10-15T20:00:00Z", response[2].EndsAt)
		require.NotNil(t, response[0].RecurringEventId)
		assert.Equal(t, *response[0].RecurringEventId, *response[2].RecurringEventId)
	})

	t.Run("unbounded rule is a bad request", func(t *testing.T) {
		router, repo := setupHandlerTest(t)
		body := validCreateBody()
		body["recurrenceRule"] = "FREQ=WEEKLY;BYDAY=WE"

		w := doRequest(router, http.MethodPost, "/api/events", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Invalid recurrence rule", response.Error)
		assert.Empty(t, repo.Events)
	})

	t.Run("missing fields are reported per field", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		body := validCreateBody()
		delete(body, "name")
		body["startsAt"] = "next tuesday"

		w := doRequest(router, http.MethodPost, "/api/events", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response rest.ValidationErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.False(t, response.Success)
		assert.Equal(t, "Validation failed", response.Message)
		fields := make([]string, 0)
		for _, fe := range response.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"name", "startsAt"}, fields)
	})

	t.Run("end before start is a bad request", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		body := validCreateBody()
		body["endsAt"] = "2025-10-01T17:00:00Z"

		w := doRequest(router, http.MethodPost, "/api/events", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventHandler_Update(t *testing.T) {
	createSeries := func(t *testing.T, router *mux.Router) []EventDTO {
		body := validCreateBody()
		body["recurrenceRule"] = "FREQ=WEEKLY;BYDAY=WE;COUNT=3"
		w := doRequest(router, http.MethodPost, "/api/events", body)
		require.Equal(t, http.StatusCreated, w.Code)
		var series []EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&series))
		return series
	}

	t.Run("future scope returns the updated occurrences", func(t *testing.T) {
		router, repo := setupHandlerTest(t)
		series := createSeries(t, router)

		w := doRequest(router, http.MethodPut, "/api/events/"+series[1].Id, map[string]any{
			"name":  "Harvest Festival",
			"scope": "future",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var response []EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 2)
		assert.Equal(t, series[1].Id, response[0].Id)
		assert.Equal(t, "Harvest Festival", response[1].Name)

		stored, err := repo.ListEvents(context.Background(), ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, "Pumpkin Patch", stored[0].Name)
	})

	t.Run("missing scope updates a single occurrence", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		series := createSeries(t, router)

		w := doRequest(router, http.MethodPut, "/api/events/"+series[0].Id, map[string]any{
			"description": "Cider and donuts",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var response EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, series[0].Id, response.Id)
		require.NotNil(t, response.Description)
		assert.Equal(t, "Cider and donuts", *response.Description)
	})

	t.Run("explicit null clears a nullable field", func(t *testing.T) {
		router, repo := setupHandlerTest(t)
		body := validCreateBody()
		body["hauntedBy"] = "The Headless Horseman"
		w := doRequest(router, http.MethodPost, "/api/events", body)
		require.Equal(t, http.StatusCreated, w.Code)
		var created EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

		w = doRequest(router, http.MethodPut, "/api/events/"+created.Id, map[string]any{"hauntedBy": nil})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, repo.Events[0].HauntedBy)
	})

	t.Run("body with trailing data is rejected and nothing changes", func(t *testing.T) {
		router, repo := setupHandlerTest(t)
		body := validCreateBody()
		body["hauntedBy"] = "The Headless Horseman"
		w := doRequest(router, http.MethodPost, "/api/events", body)
		require.Equal(t, http.StatusCreated, w.Code)
		var created EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

		req := httptest.NewRequest(http.MethodPut, "/api/events/"+created.Id,
			strings.NewReader(`{"hauntedBy": null} {"name": "extra"}`))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, repo.Events[0].HauntedBy)
		assert.Equal(t, "The Headless Horseman", *repo.Events[0].HauntedBy)
	})

	t.Run("unknown scope is a bad request", func(t *testing.T) {
		router, _ := setupHandlerTest(t)
		series := createSeries(t, router)

		w := doRequest(router, http.MethodPut, "/api/events/"+series[0].Id, map[string]any{"scope": "some"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response rest.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Invalid scope", response.Error)
	})

	t.Run("unknown event is not found", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		w := doRequest(router, http.MethodPut, "/api/events/2b1e4f0e-8c56-4d0c-9b55-1f4f3f7bb0a1", map[string]any{"name": "x"})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		router, _ := setupHandlerTest(t)

		w := doRequest(router, http.MethodPut, "/api/events/42", map[string]any{"name": "x"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventHandler_List(t *testing.T) {
	router, _ := setupHandlerTest(t)
	body := validCreateBody()
	body["recurrenceRule"] = "FREQ=DAILY;COUNT=4"
	require.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/api/events", body).Code)

	t.Run("limit and offset page through events", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/events?limit=2&offset=1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 2)
		assert.Equal(t, "2025-10-02T18:00:00Z", response[0].StartsAt)
	})

	t.Run("startsAt filter without offset is read in the calendar timezone", func(t *testing.T) {
		// 2025-10-03 00:00 in New York is 04:00 UTC
		w := doRequest(router, http.MethodGet, "/api/events?startsAt=2025-10-03", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []EventDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Len(t, response, 2)
	})

	t.Run("invalid limit is a bad request", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/events?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("by-day groups events per calendar day", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/events/by-day", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response []DayGroupDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 4)
		assert.Equal(t, "Wednesday, October 1, 2025", response[0].Day)
		assert.Equal(t, 4, response[3].DayOfMonth)
	})
}
