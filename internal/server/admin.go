package server

import (
	"fmt"
	"net/http"

	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/store"
)

func (s *Server) listDivisions(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequirePermission(r.Context(), auth.PermDivisionsList); err != nil {
		writeError(w, r, err)
		return
	}

	divisions, err := s.stores.Divisions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, divisions)
}

// listUsers returns the users of one division, divisionId is required.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequirePermission(r.Context(), auth.PermUsersList); err != nil {
		writeError(w, r, err)
		return
	}

	raw := r.URL.Query().Get("divisionId")
	if raw == "" {
		writeError(w, r, fmt.Errorf("%w: divisionId is required", store.ErrValidation))
		return
	}

	divisionID, err := auth.ParseID("divisionId", raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, err := s.stores.Users.ListByDivision(r.Context(), divisionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, users)
}
