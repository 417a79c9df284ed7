package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/cabinet-be/internal/apperr"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// Err maps a domain error onto a status code. Unclassified errors are logged
// and answered with a generic 500.
func Err(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		write(w, http.StatusBadRequest, Envelope{Code: http.StatusBadRequest, Message: apperr.ErrValidation.Error(), Data: verr.Fields})
	case errors.Is(err, apperr.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrAlreadyAssigned):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrAuthenticationFailed):
		Error(w, http.StatusUnauthorized, apperr.ErrAuthenticationFailed.Error())
	case errors.Is(err, apperr.ErrInvalidToken):
		Error(w, http.StatusUnauthorized, apperr.ErrInvalidToken.Error())
	case errors.Is(err, apperr.ErrForbidden):
		Error(w, http.StatusForbidden, apperr.ErrForbidden.Error())
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed", slog.Any("error", err))
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("respond: encode payload failed", slog.Any("error", err))
	}
}
