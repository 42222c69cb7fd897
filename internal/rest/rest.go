package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type FieldErrors struct {
	Field  string   `json:"field"`
	Errors []string `json:"errors"`
}

type ValidationErrorResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Errors  []FieldErrors `json:"errors"`
}

// WriteJSON encodes body as the response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message string, details string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// WriteValidationError renders validator errors grouped per field. Any other error
// is reported as a single entry without a field name.
func WriteValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Message: "Validation failed",
			Errors:  []FieldErrors{{Errors: []string{err.Error()}}},
		})
		return
	}

	byField := make(map[string]int)
	fields := make([]FieldErrors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		idx, ok := byField[fe.Field()]
		if !ok {
			idx = len(fields)
			byField[fe.Field()] = idx
			fields = append(fields, FieldErrors{Field: fe.Field()})
		}
		fields[idx].Errors = append(fields[idx].Errors, describe(fe))
	}

	WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Message: "Validation failed",
		Errors:  fields,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " should not be empty"
	case "min":
		return fe.Field() + " must be longer than or equal to " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be shorter than or equal to " + fe.Param() + " characters"
	case "gte":
		return fe.Field() + " must not be less than " + fe.Param()
	case "email":
		return fe.Field() + " must be an email"
	case "iso8601":
		return fe.Field() + " must be a valid ISO 8601 date string"
	case "usphone":
		return fe.Field() + " must be a valid phone number"
	case "gtfield":
		return fe.Field() + " must be after " + fe.Param()
	default:
		return fe.Field() + " failed on the '" + fe.Tag() + "' rule"
	}
}
