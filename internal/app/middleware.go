package app

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request handled")
	})
}

// corsHandler wraps the whole router so preflight requests never reach route matching.
func corsHandler(cfg config.Cors) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
