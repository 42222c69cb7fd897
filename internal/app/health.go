package app

import (
	"context"
	"net/http"
	"time"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	log "github.com/sirupsen/logrus"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type HealthHandler struct {
	db pinger
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Warnf("health check: database unreachable: %v", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Database: "down"})
		return
	}
	rest.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}
