package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/storage"
)

func (s *Server) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Notifications.List(r.Context(), currentUser(r).ID, page, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.services.Notifications.UnreadCount(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

func (s *Server) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Notification id must be a positive integer")
		return
	}

	updated, err := s.services.Notifications.MarkRead(r.Context(), currentUser(r).ID, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.services.Notifications.MarkAllRead(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
}

func (s *Server) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	contentType := strings.ToUpper(strings.TrimSpace(req.ContentType))
	if contentType != "THREAD" && contentType != "COMMENT" {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "content_type must be THREAD or COMMENT")
		return
	}

	review, err := s.services.Moderation.CreateReview(r.Context(), forum.ReviewInput{
		ContentType: contentType,
		ThreadID:    req.ThreadID,
		CommentID:   req.CommentID,
		Reason:      req.Reason,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, review)
}

func (s *Server) HandlePendingReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.services.Moderation.ListPending(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if reviews == nil {
		reviews = []*storage.ModerationReview{}
	}
	s.writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) HandleCompletedReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.services.Moderation.ListCompleted(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if reviews == nil {
		reviews = []*storage.ModerationReview{}
	}
	s.writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Review id must be a positive integer")
		return
	}

	var req ReviewUpdateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	review, err := s.services.Moderation.UpdateReview(
		r.Context(), id, strings.ToUpper(req.Status), req.ActionTaken, currentUser(r).ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, review)
}

func (s *Server) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Users.List(r.Context(), currentUser(r), page, size, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleListUsersByRole(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)
	role := strings.ToUpper(r.URL.Query().Get("role"))

	result, err := s.services.Users.ListByRole(r.Context(), currentUser(r), role, page, size, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleSuggestUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	suggestions, err := s.services.Users.Suggest(r.Context(), currentUser(r), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) HandleUserActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "User id must be a positive integer")
		return
	}

	limitFor := func(name string) int {
		if v := r.URL.Query().Get(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return 0
	}

	snapshot, err := s.services.Users.Activity(r.Context(), currentUser(r), id,
		limitFor("limit_threads"), limitFor("limit_comments"), limitFor("limit_likes"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "User id must be a positive integer")
		return
	}

	user, err := s.services.Users.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) HandleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "User id must be a positive integer")
		return
	}

	var req AdminUpdateUserRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user, err := s.services.Users.AdminUpdate(r.Context(), currentUser(r), id, forum.ProfileUpdate{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	}, req.IsActive)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) HandleSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "User id must be a positive integer")
		return
	}

	var req SetRoleRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user, err := s.services.Users.SetRole(r.Context(), currentUser(r), id, strings.ToUpper(req.Role))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}
