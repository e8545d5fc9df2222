package api

import (
	"net/http"

	"github.com/agoradev/agora/pkg/storage"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", s.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.rateLimited(s.services.LoginLimiter, s.HandleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.HandleLogout))
	mux.HandleFunc("POST /api/v1/auth/change-password", s.requireAuth(s.HandleChangePassword))
	mux.HandleFunc("GET /api/v1/auth/me", s.requireAuth(s.HandleMe))
	mux.HandleFunc("PUT /api/v1/auth/me", s.requireAuth(s.HandleUpdateProfile))

	// Threads
	mux.HandleFunc("POST /api/v1/threads", s.requireAuth(s.HandleCreateThread))
	mux.HandleFunc("GET /api/v1/threads", s.optionalAuth(s.HandleListThreads))
	mux.HandleFunc("GET /api/v1/threads/{id}", s.optionalAuth(s.HandleGetThread))
	mux.HandleFunc("PUT /api/v1/threads/{id}", s.requireAuth(s.HandleUpdateThread))
	mux.HandleFunc("DELETE /api/v1/threads/{id}", s.requireAuth(s.HandleDeleteThread))

	// Comments
	mux.HandleFunc("POST /api/v1/comments", s.rateLimited(s.services.CommentLimiter, s.requireAuth(s.HandleCreateComment)))
	mux.HandleFunc("GET /api/v1/comments/thread/{id}", s.optionalAuth(s.HandleListThreadComments))
	mux.HandleFunc("PUT /api/v1/comments/{id}", s.requireAuth(s.HandleUpdateComment))
	mux.HandleFunc("DELETE /api/v1/comments/{id}", s.requireAuth(s.HandleDeleteComment))

	// Likes
	mux.HandleFunc("POST /api/v1/likes", s.requireAuth(s.HandleAddLike))
	mux.HandleFunc("DELETE /api/v1/likes", s.requireAuth(s.HandleRemoveLike))

	// Mentions
	mux.HandleFunc("GET /api/v1/mentions", s.requireAuth(s.HandleListMentions))

	// Notifications
	mux.HandleFunc("GET /api/v1/notifications", s.requireAuth(s.HandleListNotifications))
	mux.HandleFunc("GET /api/v1/notifications/unread-count", s.requireAuth(s.HandleUnreadCount))
	mux.HandleFunc("PATCH /api/v1/notifications/read-all", s.requireAuth(s.HandleMarkAllRead))
	mux.HandleFunc("PATCH /api/v1/notifications/{id}/read", s.requireAuth(s.HandleMarkRead))

	// Moderation
	moderator := func(h http.HandlerFunc) http.HandlerFunc {
		return s.requireRole(h, storage.RoleAdmin, storage.RoleModerator)
	}
	mux.HandleFunc("POST /api/v1/moderation/report", s.requireAuth(s.HandleReport))
	mux.HandleFunc("GET /api/v1/moderation/pending", moderator(s.HandlePendingReviews))
	mux.HandleFunc("GET /api/v1/moderation/completed", moderator(s.HandleCompletedReviews))
	mux.HandleFunc("PUT /api/v1/moderation/{id}", moderator(s.HandleUpdateReview))

	// Users
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.requireRole(h, storage.RoleAdmin)
	}
	mux.HandleFunc("GET /api/v1/users", admin(s.HandleListUsers))
	mux.HandleFunc("GET /api/v1/users/role-stats", admin(s.HandleListUsersByRole))
	mux.HandleFunc("GET /api/v1/users/suggest", s.requireAuth(s.HandleSuggestUsers))
	mux.HandleFunc("GET /api/v1/users/{id}", s.requireAuth(s.HandleGetUser))
	mux.HandleFunc("GET /api/v1/users/{id}/activity", admin(s.HandleUserActivity))
	mux.HandleFunc("PUT /api/v1/users/{id}", admin(s.HandleAdminUpdateUser))
	mux.HandleFunc("POST /api/v1/users/{id}/roles", admin(s.HandleSetUserRole))

	// Search
	mux.HandleFunc("GET /api/v1/search/threads", s.HandleSearchThreads)
	mux.HandleFunc("GET /api/v1/search/comments", s.HandleSearchComments)

	// Realtime
	mux.HandleFunc("GET /api/v1/ws", s.HandleWebSocket)

	mux.HandleFunc("GET /health", s.HandleHealth)
}
