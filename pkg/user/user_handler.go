package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	log "github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UserDTO struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Token     string `json:"token"`
}

type Handler struct {
	userService Service
	validate    *validator.Validate
}

func NewHandler(userService Service, validate *validator.Validate) *Handler {
	return &Handler{userService: userService, validate: validate}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteValidationError(w, err)
		return
	}

	user, token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	} else if err != nil {
		log.Errorf("login failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	rest.WriteJSON(w, http.StatusOK, UserDTO{
		Id:        user.Id.String(),
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
		Token:     token,
	})
}
