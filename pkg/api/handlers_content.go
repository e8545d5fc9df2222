package api

import (
	"net/http"
	"strings"

	"github.com/agoradev/agora/pkg/forum"
)

func (s *Server) HandleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req CreateThreadRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Title is required")
		return
	}

	view, err := s.services.Threads.Create(r.Context(), currentUser(r), req.Title, req.Description, req.Tags)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) HandleListThreads(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Threads.List(r.Context(), currentUserID(r), page, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleGetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Thread id must be a positive integer")
		return
	}

	view, err := s.services.Threads.Get(r.Context(), id, currentUserID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleUpdateThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Thread id must be a positive integer")
		return
	}

	var req UpdateThreadRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	view, err := s.services.Threads.Update(r.Context(), currentUser(r), id, forum.ThreadUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Thread id must be a positive integer")
		return
	}

	if err := s.services.Threads.Delete(r.Context(), currentUser(r), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Thread deleted"})
}

func (s *Server) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Content) == "" || req.ThreadID <= 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid request", "Content and thread_id are required")
		return
	}

	view, err := s.services.Comments.Create(r.Context(), currentUser(r), req.ThreadID, req.Content, req.ParentCommentID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) HandleListThreadComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Thread id must be a positive integer")
		return
	}
	page, size := pageParams(r, 100, 200)

	result, err := s.services.Comments.ListForThread(r.Context(), id, currentUserID(r), page, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Comment id must be a positive integer")
		return
	}

	var req UpdateCommentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	view, err := s.services.Comments.Update(r.Context(), currentUser(r), id, req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Comment id must be a positive integer")
		return
	}

	if err := s.services.Comments.Delete(r.Context(), currentUser(r), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment deleted"})
}

func (s *Server) HandleAddLike(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	like, err := s.services.Likes.Add(r.Context(), currentUser(r), req.ThreadID, req.CommentID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, like)
}

func (s *Server) HandleRemoveLike(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.services.Likes.Remove(r.Context(), currentUser(r), req.ThreadID, req.CommentID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Message: "Like removed"})
}

func (s *Server) HandleListMentions(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Mentions.ListForUser(r.Context(), currentUser(r).ID, page, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleSearchThreads(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Search.Threads(
		r.Context(), r.URL.Query().Get("q"), page, size, r.URL.Query().Get("sort_by"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) HandleSearchComments(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, 20, 100)

	result, err := s.services.Search.Comments(r.Context(), r.URL.Query().Get("q"), page, size)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
