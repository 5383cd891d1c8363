// Package httpapi exposes the REST surface (auth, sessions, rounds,
// statistics, reviews) and mounts the Connection Hub's WebSocket upgrade.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/decred/slog"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/hub"
	"github.com/llmholdem/server/internal/review"
	"github.com/llmholdem/server/internal/store"
)

// Server wires the auth, store, hub, and review façades to an HTTP mux.
type Server struct {
	auth   *auth.Service
	store  *store.Store
	hub    *hub.Hub
	review *review.Service
	log    slog.Logger
}

// NewServer builds the REST + WebSocket mux.
func NewServer(authSvc *auth.Service, st *store.Store, h *hub.Hub, rev *review.Service, log slog.Logger) *Server {
	if log == nil {
		log = slog.Disabled
	}
	return &Server{auth: authSvc, store: st, hub: h, review: rev, log: log}
}

type userCtxKey struct{}

// Router returns the http.Handler for the whole HTTP + WebSocket surface.
func (s *Server) Router(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/me", s.withAuth(s.handleMe))
	mux.HandleFunc("PUT /auth/api-key", s.withAuth(s.handleSetAPIKey))
	mux.HandleFunc("DELETE /auth/api-key", s.withAuth(s.handleClearAPIKey))

	mux.HandleFunc("POST /sessions", s.withAuth(s.handleCreateSession))
	mux.HandleFunc("GET /sessions", s.withAuth(s.handleListSessions))
	mux.HandleFunc("GET /sessions/{id}", s.withAuth(s.handleGetSession))
	mux.HandleFunc("GET /sessions/{id}/rounds", s.withAuth(s.handleListRounds))

	mux.HandleFunc("GET /rounds/{id}", s.withAuth(s.handleGetRound))
	mux.HandleFunc("POST /rounds/{id}/review", s.withAuth(s.handleReviewRound))

	mux.HandleFunc("GET /stats", s.withAuth(s.handleStats))

	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	return withCORS(corsOrigins, mux)
}

func withCORS(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(o)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll || allowed[strings.ToLower(origin)] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withAuth(next func(w http.ResponseWriter, r *http.Request, user auth.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "auth", "missing bearer token")
			return
		}
		user, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "auth", "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)), user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"kind": kind, "message": message})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
