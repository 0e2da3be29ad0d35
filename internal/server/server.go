package server

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/login"
	"github.com/wolfeidau/taskbook/internal/store"
)

// Stores groups the storage dependencies of the API.
type Stores struct {
	Tasks     store.TaskStore
	Users     store.UserStore
	Divisions store.DivisionStore
}

// Pinger reports whether the backing database is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the JSON API.
type Server struct {
	stores Stores
	gate   *auth.Gate
	login  *login.Handlers
	pinger Pinger
}

// NewServer creates the API server. pinger may be nil when there is no database.
func NewServer(stores Stores, gate *auth.Gate, pinger Pinger) *Server {
	return &Server{
		stores: stores,
		gate:   gate,
		login:  login.NewHandlers(stores.Users, gate),
		pinger: pinger,
	}
}

// Handler returns the HTTP handler for /api/ routes and the health check.
// Every route except login, logout and the health check sits behind the API guard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	guard := s.gate.APIGuard()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("POST /api/auth/login", s.login.LoginHandler)
	mux.HandleFunc("POST /api/auth/logout", s.login.LogoutHandler)
	mux.Handle("GET /api/auth/session", guard(http.HandlerFunc(s.login.SessionHandler)))

	mux.Handle("GET /api/tasks", guard(http.HandlerFunc(s.listTasks)))
	mux.Handle("POST /api/tasks", guard(http.HandlerFunc(s.createTask)))
	mux.Handle("PUT /api/tasks/{id}", guard(http.HandlerFunc(s.updateTask)))

	mux.Handle("GET /api/admin/tasks", guard(http.HandlerFunc(s.listReport)))
	mux.Handle("GET /api/divisions", guard(http.HandlerFunc(s.listDivisions)))
	mux.Handle("GET /api/users", guard(http.HandlerFunc(s.listUsers)))

	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.pinger.Ping(ctx); err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
