package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/avelichko/notesservice/internal/auth"
	"github.com/avelichko/notesservice/internal/metrics"
)

type RouterConfig struct {
	Auth   *AuthHandler
	Notes  *NotesHandler
	Email  *EmailHandler
	Tokens *auth.TokenService
	Users  auth.UserResolver
	Hub    http.Handler
	Log    zerolog.Logger

	// Metrics instruments every route and serves /metrics when set.
	Metrics *metrics.Metrics
	// RateLimit wraps every route when set.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter wires the public surface: metrics observe everything including
// rate-limited rejections, then the rate limiter, then bearer auth for the
// protected subrouter, then the handlers.
func NewRouter(c RouterConfig) *mux.Router {
	r := mux.NewRouter()
	if c.Metrics != nil {
		r.Use(c.Metrics.Middleware)
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}
	if c.RateLimit != nil {
		r.Use(c.RateLimit)
	}

	r.HandleFunc("/ping", PingHandler(c.Log)).Methods("GET")
	r.HandleFunc("/health", HealthHandler()).Methods("GET")
	r.HandleFunc("/", ChatPageHandler()).Methods("GET")
	if c.Hub != nil {
		r.Handle("/ws", c.Hub)
	}

	r.HandleFunc("/register", c.Auth.Register).Methods("POST")
	r.HandleFunc("/login", c.Auth.Login).Methods("POST")
	r.HandleFunc("/send_email", c.Email.Send).Methods("POST")

	// Authenticated routes
	s := r.PathPrefix("/").Subrouter()
	s.Use(auth.Middleware(c.Tokens, c.Users))

	s.HandleFunc("/users/me", c.Auth.Me).Methods("GET")
	s.HandleFunc("/admin/users", auth.RequireRole("admin", c.Auth.ListUsers)).Methods("GET")

	s.HandleFunc("/notes", c.Notes.Create).Methods("POST")
	s.HandleFunc("/notes", c.Notes.List).Methods("GET")
	s.HandleFunc("/notes/{id}", c.Notes.Get).Methods("GET")
	s.HandleFunc("/notes/{id}", c.Notes.Update).Methods("PUT")
	s.HandleFunc("/notes/{id}", c.Notes.Delete).Methods("DELETE")

	return r
}
