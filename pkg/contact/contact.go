package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/event_bus"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Request struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,usphone"`
	Message string `json:"message" validate:"required"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Service interface {
	Submit(ctx context.Context, req Request) error
}

type ServiceImpl struct {
	bus *event_bus.EventBus
}

func NewService(bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{bus: bus}
}

// Submit hands the message to the bus subscribers and waits for them to finish.
func (s *ServiceImpl) Submit(ctx context.Context, req Request) error {
	return s.bus.Publish(event_bus.NewMessage(ctx, event_bus.TopicContactMessageReceived, event_bus.ContactMessageReceived{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: req.Message,
	}))
}

type Handler struct {
	service  Service
	validate *validator.Validate
}

func NewHandler(service Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteValidationError(w, err)
		return
	}

	if err := h.service.Submit(r.Context(), req); err != nil {
		log.Errorf("Contact form error: %v", err)
		rest.WriteJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "Failed to send message."})
		return
	}
	rest.WriteJSON(w, http.StatusOK, Response{Success: true, Message: "Message sent successfully."})
}
