// Package hub is the Connection Hub: the WebSocket-facing transport layer
// that registers connections under their authenticated user, fans events
// out to every live transport of a user, and owns the per-user Session
// Runtime registry (replacing the teacher's single global game manager).
package hub

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/session"
	"github.com/llmholdem/server/internal/store"
)

// Reviewer produces a post-hand AI review, offloaded to its own worker
// pool so the transport loop is never blocked by it.
type Reviewer interface {
	Review(ctx context.Context, userID, roundID string) events.ReviewResult
}

// Close codes for authentication failures at connection open. ServeWS does
// not send them: it rejects a missing or invalid token with HTTP 401 before
// the WebSocket upgrade, so no socket is opened to close.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4003
)

// Hub tracks user_id -> set of live connections and owns one Session
// Runtime per user.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*Connection]struct{}
	runtimes map[string]*session.Runtime

	auth       *auth.Service
	store      *store.Store
	reviewer   Reviewer
	envLLMKey  string
	llmFactory session.LLMFactory
	log        slog.Logger
	upgrader   websocket.Upgrader

	reviewWork chan reviewJob
}

type reviewJob struct {
	userID  string
	roundID string
	conn    *Connection
}

// NewHub builds a Hub. allowedOrigins configures the WebSocket upgrader's
// CORS allowlist; an empty list allows every origin (useful for local
// development only).
func NewHub(authSvc *auth.Service, st *store.Store, reviewer Reviewer, envLLMKey string, llmFactory session.LLMFactory, allowedOrigins []string, log slog.Logger) *Hub {
	if log == nil {
		log = slog.Disabled
	}
	h := &Hub{
		conns:      make(map[string]map[*Connection]struct{}),
		runtimes:   make(map[string]*session.Runtime),
		auth:       authSvc,
		store:      st,
		reviewer:   reviewer,
		envLLMKey:  envLLMKey,
		llmFactory: llmFactory,
		log:        log,
		reviewWork: make(chan reviewJob, 64),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	for i := 0; i < 4; i++ {
		go h.reviewWorker()
	}
	return h
}

// SendToOne delivers msg to a single connection. Tolerant of a full/closed
// send buffer: the connection is dropped rather than blocking the caller.
func (h *Hub) SendToOne(c *Connection, env events.Envelope) {
	c.enqueue(env)
}

// SendToUser implements session.Hub: fan env out to every live transport
// of userID, in no defined order across connections. A connection whose
// buffer is full is closed and the fan-out goes on to the others.
func (h *Hub) SendToUser(userID string, env events.Envelope) {
	h.mu.RLock()
	set := h.conns[userID]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.enqueue(env)
	}
}

// Broadcast sends env to every connected user; kept for legacy parity with
// the teacher's global notification path.
func (h *Hub) Broadcast(env events.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.conns {
		for c := range set {
			c.enqueue(env)
		}
	}
}

func (h *Hub) register(userID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Connection]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) deregister(userID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
}

// runtimeFor returns the registered Session Runtime for userID, creating
// one if absent. The runtime registry is the hub's only process-wide
// mutable state beyond the connection table.
func (h *Hub) runtimeFor(userID string) *session.Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rt, ok := h.runtimes[userID]; ok {
		return rt
	}
	rt := session.NewRuntime(userID, h, h.store, h.envLLMKey, h.llmFactory, h.log)
	h.runtimes[userID] = rt
	return rt
}

// ServeWS is the HTTP handler that upgrades a request to a WebSocket
// connection after token authentication.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade: %v", err)
		return
	}

	conn := newConnection(wsConn, h, user)
	h.register(user.ID, conn)
	conn.start(r.Context())
}

func (h *Hub) reviewWorker() {
	for job := range h.reviewWork {
		if h.reviewer == nil {
			job.conn.enqueue(events.Envelope{
				Type: events.TypeReviewResult,
				Data: events.ReviewResult{Error: "review service not configured"},
			})
			continue
		}
		result := h.reviewer.Review(context.Background(), job.userID, job.roundID)
		job.conn.enqueue(events.Envelope{Type: events.TypeReviewResult, Data: result})
	}
}
