package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/notesservice/internal/models"
)

type fakeResolver struct {
	users map[string]*models.User
}

func (f *fakeResolver) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newAuthedRequest(t *testing.T, tokens *TokenService, subject string) *http.Request {
	t.Helper()
	token, err := tokens.Issue(subject)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestMiddlewareResolvesUser(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Minute)
	resolver := &fakeResolver{users: map[string]*models.User{
		"alice": {ID: 1, Username: "alice", Role: "user"},
	}}

	var got *models.User
	handler := Middleware(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthedRequest(t, tokens, "alice"))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
}

func TestMiddlewareRejects(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Minute)
	resolver := &fakeResolver{users: map[string]*models.User{
		"alice": {ID: 1, Username: "alice", Role: "user"},
	}}

	handler := Middleware(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing header", func(r *http.Request) {}},
		{"not bearer", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestMiddlewareUnknownSubject(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Minute)
	resolver := &fakeResolver{users: map[string]*models.User{}}

	handler := Middleware(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newAuthedRequest(t, tokens, "ghost"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	called := false
	handler := RequireRole("admin", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	r = r.WithContext(ContextWithUser(r.Context(), &models.User{Username: "bob", Role: "user"}))
	w := httptest.NewRecorder()
	handler(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)

	r = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	r = r.WithContext(ContextWithUser(r.Context(), &models.User{Username: "root", Role: "admin"}))
	w = httptest.NewRecorder()
	handler(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}
