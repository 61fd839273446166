package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/serjogas/galleria"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse represents a JSON acknowledgment body
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError maps the domain error taxonomy to an HTTP response. This is
// the only place status codes are assigned to error kinds.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, galleria.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, galleria.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, galleria.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, galleria.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
