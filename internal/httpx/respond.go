// Package httpx holds the JSON response helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/viradabrew/storefront/internal/domain"
)

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Fail(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	JSON(w, logger, status, errorBody{Success: false, Message: message})
}

// Error maps the domain error taxonomy onto HTTP statuses. Unknown errors
// become a 500 with no internal detail leaked.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *domain.ValidationError
		stateErr      *domain.InvalidStateError
		notFoundErr   *domain.NotFoundError
		gatewayErr    *domain.GatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		Fail(w, logger, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &stateErr):
		Fail(w, logger, http.StatusBadRequest, stateErr.Msg)
	case errors.As(err, &notFoundErr):
		Fail(w, logger, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &gatewayErr):
		logger.Error("payment gateway call failed", "error", err)
		Fail(w, logger, http.StatusBadGateway, "payment provider unavailable")
	default:
		logger.Error("request failed", "error", err)
		Fail(w, logger, http.StatusInternalServerError, "internal server error")
	}
}
