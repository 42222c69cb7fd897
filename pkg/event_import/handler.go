package event_import

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/pkg/event"
	log "github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20

type ImportResponse struct {
	Message string   `json:"message"`
	Results []string `json:"results"`
}

type Handler struct {
	importer *Importer
}

func NewHandler(importer *Importer) *Handler {
	return &Handler{importer: importer}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "No file uploaded", err.Error())
		return
	}
	defer file.Close()

	results, err := h.importer.Import(r.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingColumn), errors.Is(err, ErrInvalidRow), errors.Is(err, event.ErrInvalidTimeRange):
			rest.WriteError(w, http.StatusBadRequest, "Invalid CSV file", err.Error())
		default:
			log.Errorf("event import failed after %d rows: %v", len(results), err)
			rest.WriteError(w, http.StatusInternalServerError, "Import failed", err.Error())
		}
		return
	}

	rest.WriteJSON(w, http.StatusOK, ImportResponse{
		Message: fmt.Sprintf("Imported %d events", len(results)),
		Results: results,
	})
}
