package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/realtime"
)

type Server struct {
	services *forum.Services
	hub      *realtime.Hub
	logger   *log.Logger
}

func NewServer(services *forum.Services, hub *realtime.Hub) *Server {
	return &Server{
		services: services,
		hub:      hub,
		logger:   log.ForService("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// writeServiceError maps forum sentinel errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forum.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, forum.ErrForbidden):
		s.writeError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, forum.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, forum.ErrConflict):
		s.writeError(w, http.StatusBadRequest, "Conflict", err.Error())
	case errors.Is(err, forum.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		s.logger.Errorf("internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error", "Something went wrong")
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// pageParams reads 1-indexed pagination query parameters with bounds.
func pageParams(r *http.Request, defaultSize, maxSize int) (page, size int) {
	page = 1
	size = defaultSize

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
