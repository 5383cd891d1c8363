package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/llmholdem/server/internal/auth"
	"github.com/llmholdem/server/internal/store"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed body")
		return
	}
	user, err := s.auth.CreateUser(req.Name, req.Email, req.Password)
	if errors.Is(err, auth.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "already_exists", "name or email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, UserID: user.ID, IsAdmin: user.IsAdmin})
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed body")
		return
	}
	user, err := s.auth.Authenticate(req.Name, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid name or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, UserID: user.ID, IsAdmin: user.IsAdmin})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user auth.User) {
	writeJSON(w, http.StatusOK, user)
}

type apiKeyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req apiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed body")
		return
	}
	if err := s.auth.SetLLMKey(user.ID, req.Key); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAPIKey(w http.ResponseWriter, r *http.Request, user auth.User) {
	if err := s.auth.ClearLLMKey(user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, user auth.User) {
	var cfg map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&cfg)
	cfgJSON, _ := json.Marshal(cfg)
	sess, err := s.store.CreateSession(user.ID, string(cfgJSON))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, user auth.User) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	sessions, err := s.store.ListSessions(user.ID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, user auth.User) {
	sess, err := s.store.GetSession(user.ID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request, user auth.User) {
	hands, err := s.store.GetSessionRounds(user.ID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hands)
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request, user auth.User) {
	hand, err := s.store.GetRound(user.ID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "round not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hand)
}

func (s *Server) handleReviewRound(w http.ResponseWriter, r *http.Request, user auth.User) {
	roundID := r.PathValue("id")
	if _, err := s.store.GetRound(user.ID, roundID); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "round not found")
		return
	}
	result := s.review.Review(r.Context(), user.ID, roundID)
	if result.Error != "" {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if err := s.store.UpdateRoundReview(user.ID, roundID, mustJSON(result)); err != nil {
		s.log.Errorf("persist review: round=%s err=%v", roundID, err)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, user auth.User) {
	stats, err := s.store.RecomputeStats(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
