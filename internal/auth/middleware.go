package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/avelichko/notesservice/internal/models"
)

type key int

const userKey key = 0

// UserResolver maps a token subject to a stored user.
type UserResolver interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Middleware authenticates requests carrying an Authorization: Bearer header
// and stores the resolved user in the request context.
func Middleware(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			subject, err := tokens.Validate(tokenStr)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			user, err := users.GetUserByUsername(r.Context(), subject)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates an already-authenticated handler on an exact role match.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			unauthorized(w, "Not authenticated")
			return
		}
		if user.Role != role {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Access denied: role '" + role + "' required"})
			return
		}
		next(w, r)
	}
}

func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// ContextWithUser is exported for handler tests that bypass the middleware.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
