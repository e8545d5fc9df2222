package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/storage"
)

type contextKey string

const userContextKey contextKey = "user"

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// requireAuth resolves the bearer token to its user and injects it into the
// request context. Requests without a valid session are rejected.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized", "Bearer token required")
			return
		}

		user, err := s.services.Auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// optionalAuth injects the user when a valid token is present and stays
// anonymous otherwise.
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if user, err := s.services.Auth.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}
		}
		next(w, r)
	}
}

// requireRole wraps requireAuth and additionally demands one of the given
// roles.
func (s *Server) requireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		for _, want := range roles {
			if user.HasRole(want) {
				next(w, r)
				return
			}
		}
		s.writeError(w, http.StatusForbidden, "Forbidden", "Insufficient role")
	})
}

// rateLimited rejects requests once the caller's quota on limiter is spent.
// Callers are identified by client IP.
func (s *Server) rateLimited(limiter *forum.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(r.Context(), clientIP(r)) {
			s.writeError(w, http.StatusTooManyRequests, "Too many requests", "Rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the original client.
		if ip, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(forwarded)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// currentUser returns the authenticated user, or nil on optionalAuth routes
// hit anonymously.
func currentUser(r *http.Request) *storage.User {
	user, _ := r.Context().Value(userContextKey).(*storage.User)
	return user
}

// currentUserID returns the authenticated user's id, or nil.
func currentUserID(r *http.Request) *int64 {
	if user := currentUser(r); user != nil {
		return &user.ID
	}
	return nil
}
