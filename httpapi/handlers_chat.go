package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"taskwing/store"
)

const maxChatMessageRunes = 4000

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID int64                  `json:"conversation_id"`
	MessageID      int64                  `json:"message_id"`
	Content        string                 `json:"content"`
	ToolCalls      []store.ToolCallRecord `json:"tool_calls,omitempty"`
}

// handleChat runs one conversational turn. Provider faults are already
// degraded to apology text inside the agent, so this handler returns
// 200 with coherent content for everything except authentication and
// request-shape problems.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if utf8.RuneCountInString(req.Message) > maxChatMessageRunes {
		s.writeError(w, http.StatusBadRequest, "message must be 4000 characters or less")
		return
	}

	started := time.Now()
	outcome, err := s.chat.SendMessage(r.Context(), uid, req.ConversationID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", zap.String("user_id", uid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	s.logger.Info("chat turn",
		zap.String("user_id", uid),
		zap.Int64("conversation_id", outcome.ConversationID),
		zap.Int("tool_calls", len(outcome.ToolCalls)),
		zap.Duration("elapsed", time.Since(started)))

	s.writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: outcome.ConversationID,
		MessageID:      outcome.MessageID,
		Content:        outcome.Content,
		ToolCalls:      outcome.ToolCalls,
	})
}
