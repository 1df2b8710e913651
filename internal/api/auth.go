package api

import (
	"net/http"

	"github.com/pbaille/autojournal/internal/auth"
	"github.com/pbaille/autojournal/internal/domain"
)

type credentialsRequest struct {
	UserID   string `json:"userId" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=72"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.Register(r.Context(), req.UserID, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.FromContext(r.Context()).User)
}

type settingsRequest struct {
	Settings *domain.SettingsPatch `json:"settings" validate:"required"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.UpdateSettings(r.Context(), auth.FromContext(r.Context()).User, *req.Settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
