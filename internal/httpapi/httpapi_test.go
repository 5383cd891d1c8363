package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/internal/hub"
	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/review"
	"github.com/llmholdem/server/internal/session"
	"github.com/llmholdem/server/internal/store"
)

type stubReviewer struct{}

func (stubReviewer) Review(ctx context.Context, userID, roundID string) events.ReviewResult {
	return events.ReviewResult{}
}

func newTestServer(t *testing.T) (*Server, *auth.Service) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	authSvc := auth.NewService(st, []byte("test-secret"), time.Hour)
	factory := func(key string) (llmclient.Client, bool) { return nil, false }
	h := hub.NewHub(authSvc, st, stubReviewer{}, "", session.LLMFactory(factory), nil, nil)
	revSvc := review.NewService(st, "", review.LLMFactory(factory), nil)
	return NewServer(authSvc, st, h, revSvc, nil), authSvc
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin_FullRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router(nil)

	w := doJSON(t, router, http.MethodPost, "/auth/register", "", registerRequest{Name: "alice", Email: "alice@example.com", Password: "hunter2"})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg authResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reg))
	require.NotEmpty(t, reg.Token)

	w = doJSON(t, router, http.MethodPost, "/auth/login", "", loginRequest{Name: "alice", Password: "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_DuplicateNameReturnsConflict(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router(nil)

	doJSON(t, router, http.MethodPost, "/auth/register", "", registerRequest{Name: "bob", Email: "bob@example.com", Password: "pw"})
	w := doJSON(t, router, http.MethodPost, "/auth/register", "", registerRequest{Name: "bob", Email: "bob2@example.com", Password: "pw"})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_WrongPasswordReturnsUnauthorized(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router(nil)

	doJSON(t, router, http.MethodPost, "/auth/register", "", registerRequest{Name: "carol", Email: "carol@example.com", Password: "correct"})
	w := doJSON(t, router, http.MethodPost, "/auth/login", "", loginRequest{Name: "carol", Password: "wrong"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_RejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router(nil)

	w := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_AcceptsValidToken(t *testing.T) {
	s, authSvc := newTestServer(t)
	router := s.Router(nil)

	u, err := authSvc.CreateUser("dave", "dave@example.com", "pw")
	require.NoError(t, err)
	token, err := authSvc.IssueToken(u.ID)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got auth.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Equal(t, "dave", got.Name)
}

func TestSessionAndRoundEndpoints_FullFlow(t *testing.T) {
	s, authSvc := newTestServer(t)
	router := s.Router(nil)

	u, err := authSvc.CreateUser("erin", "erin@example.com", "pw")
	require.NoError(t, err)
	token, err := authSvc.IssueToken(u.ID)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/sessions", token, map[string]int{"small_blind": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	var sess store.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sess))
	require.NotEmpty(t, sess.ID)

	w = doJSON(t, router, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/sessions/"+sess.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/sessions/does-not-exist", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/sessions/"+sess.ID+"/rounds", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyEndpoints_SetAndClear(t *testing.T) {
	s, authSvc := newTestServer(t)
	router := s.Router(nil)

	u, err := authSvc.CreateUser("frank", "frank@example.com", "pw")
	require.NoError(t, err)
	token, err := authSvc.IssueToken(u.ID)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPut, "/auth/api-key", token, apiKeyRequest{Key: "sk-test"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/auth/api-key", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestWithCORS_AllowsConfiguredOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router([]string{"https://example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/auth/register", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithCORS_RejectsUnlistedOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router([]string{"https://example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/auth/register", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
