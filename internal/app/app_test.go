package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/auth"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/event_bus"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/utils"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/contact"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event_import"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func testDependencies(t *testing.T) *Dependencies {
	t.Helper()
	cfg := config.Defaults()
	clock := &utils.MockClock{FixedNow: time.Now()}
	deps := &Dependencies{
		Clock:       clock,
		Validate:    rest.NewValidator(),
		EventBus:    event_bus.NewEventBus(),
		TokenIssuer: auth.NewTokenIssuer(cfg.Auth, clock),
		Health:      NewHealthHandler(stubPinger{}),
	}
	deps.UserService = user.NewUserService(user.NewStubUserRepository(), deps.TokenIssuer)
	deps.UserHandler = user.NewHandler(deps.UserService, deps.Validate)
	deps.EventService = event.NewService(event.NewStubEventRepository(), cfg.Events)
	deps.EventHandler = event.NewEventHandler(deps.EventService, deps.Validate, cfg.Events.Location())
	deps.ImportHandler = event_import.NewHandler(event_import.NewImporter(deps.EventService, cfg.Events))
	deps.ContactHandler = contact.NewHandler(contact.NewService(deps.EventBus), deps.Validate)
	return deps
}

func TestRouter_EventWritesRequireToken(t *testing.T) {
	deps := testDependencies(t)
	router := NewRouter(deps, config.Defaults())

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/events"},
		{http.MethodPut, "/api/events/2b1e4f0e-8c56-4d0c-9b55-1f4f3f7bb0a1"},
		{http.MethodPost, "/api/events/import"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestRouter_PublicReads(t *testing.T) {
	router := NewRouter(testDependencies(t), config.Defaults())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRouter_LoginThenCreate(t *testing.T) {
	deps := testDependencies(t)
	require.NoError(t, deps.UserService.SeedUsers(context.Background(),
		[]config.SeedUser{{Name: "Matt", Email: "matt@example.com"}}, "changeme"))
	router := NewRouter(deps, config.Defaults())

	login := httptest.NewRecorder()
	router.ServeHTTP(login, jsonRequest(t, http.MethodPost, "/api/users/login",
		`{"email":"matt@example.com","password":"changeme"}`))
	require.Equal(t, http.StatusOK, login.Code)
	var session user.UserDTO
	require.NoError(t, json.NewDecoder(login.Body).Decode(&session))

	req := jsonRequest(t, http.MethodPost, "/api/events",
		`{"name":"Corn Maze","slug":"corn-maze","startsAt":"2025-10-04T14:00:00Z","endsAt":"2025-10-04T18:00:00Z"}`)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	created := httptest.NewRecorder()
	router.ServeHTTP(created, req)

	assert.Equal(t, http.StatusCreated, created.Code)
}

func TestRouter_CorsPreflight(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cors.AllowedOrigins = []string{"https://fourgreenfieldsfarm.com"}
	router := NewRouter(testDependencies(t), cfg)
	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "https://fourgreenfieldsfarm.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "https://fourgreenfieldsfarm.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(stubPinger{}).Check(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("refused")}).Check(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func jsonRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
