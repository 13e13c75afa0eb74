package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lox/qif-agent/internal/apperr"
)

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

type errResponse struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Error("Request failed", "category", categoryOf(err), "error", err)
	h.writeJSON(w, status, errResponse{
		Category: categoryOf(err),
		Error:    err.Error(),
	})
}

// statusFor maps an error category to an HTTP status. Translation and
// execution failures are the caller's input going wrong; backend and store
// failures are ours.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrTranslation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrExecution):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func categoryOf(err error) string {
	switch {
	case errors.Is(err, apperr.ErrTranslation):
		return "translation"
	case errors.Is(err, apperr.ErrExecution):
		return "execution"
	case errors.Is(err, apperr.ErrBackend):
		return "backend"
	case errors.Is(err, apperr.ErrStore):
		return "store"
	default:
		return "internal"
	}
}
