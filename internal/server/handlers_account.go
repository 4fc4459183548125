package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
}

type revokeRequest struct {
	Token string `json:"token" validate:"required"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	u, token, err := s.accounts.Signup(r.Context(), req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "token": token})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.accounts.ListKeys(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	token, key, err := s.accounts.IssueKey(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          key.ID,
		"token":       token,
		"key_preview": key.Preview,
		"created_at":  key.CreatedAt,
	})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.accounts.RevokeByToken(r.Context(), userFromContext(r.Context()).ID, req.Token); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeKeyByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key ID")
		return
	}
	if err := s.accounts.RevokeByID(r.Context(), userFromContext(r.Context()).ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteUser(r.Context(), userFromContext(r.Context()).ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
