package handlers

import (
	"net/http"
)

type userOut struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ListUsers serves the admin-only user listing. Role enforcement happens in
// auth.RequireRole; this handler only reads.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		writeDetail(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]userOut, 0, len(users))
	for _, u := range users {
		out = append(out, userOut{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	writeJSON(w, http.StatusOK, out)
}
