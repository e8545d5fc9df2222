package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/version"
)

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
	})
}

func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Email and password are required")
		return
	}

	user, err := s.services.Auth.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	session, err := s.services.Auth.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		TokenType: "bearer",
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (s *Server) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.services.Auth.ChangePassword(r.Context(), currentUser(r), req.OldPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	updated, err := s.services.Users.UpdateProfile(r.Context(), currentUser(r), forum.ProfileUpdate{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}
