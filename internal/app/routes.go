package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/auth"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
)

// NewRouter registers all API endpoints and wraps them in the middleware chain.
func NewRouter(deps *Dependencies, cfg config.Application) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger)
	api := r.PathPrefix("/api").Subrouter()
	requireAuth := auth.RequireAuth(deps.TokenIssuer)

	api.HandleFunc("/health", deps.Health.Check).Methods("GET")

	// Events
	api.HandleFunc("/events", deps.EventHandler.List).Methods("GET")
	api.HandleFunc("/events/by-day", deps.EventHandler.ListByDay).Methods("GET")
	api.Handle("/events/import", requireAuth(http.HandlerFunc(deps.ImportHandler.Import))).Methods("POST")
	api.Handle("/events", requireAuth(http.HandlerFunc(deps.EventHandler.Create))).Methods("POST")
	api.Handle("/events/{id}", requireAuth(http.HandlerFunc(deps.EventHandler.Update))).Methods("PUT")

	// Contact form
	api.HandleFunc("/contact", deps.ContactHandler.Submit).Methods("POST")

	// Users
	api.HandleFunc("/users/login", deps.UserHandler.Login).Methods("POST")

	return corsHandler(cfg.Cors)(r)
}
