package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskwing/chat"
	"taskwing/store"
)

type conversationsListResponse struct {
	Conversations []chat.Summary `json:"conversations"`
	Total         int            `json:"total"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	summaries, err := s.chat.ListConversations(uid)
	if err != nil {
		s.logger.Error("listing conversations", zap.String("user_id", uid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	s.writeJSON(w, http.StatusOK, conversationsListResponse{
		Conversations: summaries,
		Total:         len(summaries),
	})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	detail, err := s.chat.GetConversation(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not load conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	err = s.chat.DeleteConversation(uid, id)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting conversation", zap.Int64("conversation_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not delete conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Conversation deleted",
		"id":      id,
	})
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	conv, err := s.chat.RenameConversation(uid, id, req.Title)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not rename conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}
