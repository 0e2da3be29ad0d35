package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/store"
)

type messageResponse struct {
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto HTTP status codes.
// Storage failures are logged and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		auth.WriteUnauthorized(w)
	case errors.Is(err, auth.ErrForbidden):
		writeJSON(w, r, http.StatusForbidden, messageResponse{Message: "Forbidden"})
	case errors.Is(err, store.ErrValidation):
		writeJSON(w, r, http.StatusBadRequest, messageResponse{Message: err.Error()})
	case errors.Is(err, store.ErrTaskNotFound):
		writeJSON(w, r, http.StatusNotFound, messageResponse{Message: "Task not found or you do not have permission to edit it"})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		writeJSON(w, r, http.StatusInternalServerError, messageResponse{Message: "Internal Server Error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}
