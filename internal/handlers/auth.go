package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/avelichko/notesservice/internal/auth"
	"github.com/avelichko/notesservice/internal/storage"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	users  storage.UserStore
	tokens *auth.TokenService
	log    zerolog.Logger
}

func NewAuthHandler(users storage.UserStore, tokens *auth.TokenService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to hash password")
		writeDetail(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user, err := h.users.CreateUser(r.Context(), in.Username, hashed, "user")
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			writeDetail(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.log.Error().Err(err).Msg("failed to create user")
		writeDetail(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user registered")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), in.Username)
	if err != nil || !auth.CheckPassword(in.Password, user.PasswordHash) {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue token")
		writeDetail(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}
