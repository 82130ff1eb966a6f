// Package chat owns the conversation lifecycle around the agent: it
// resolves or creates the conversation, loads the history window,
// persists both sides of the exchange and keeps conversation metadata
// fresh.
package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskwing/agent"
	"taskwing/errors"
	"taskwing/llm"
	"taskwing/store"
)

const (
	// historyWindow caps how many prior messages are replayed to the
	// model per turn.
	historyWindow = 50

	// titleRunes is how much of the first message seeds the
	// conversation title.
	titleRunes = 50

	maxTitleRunes = 200
)

// Responder produces one assistant turn. Satisfied by agent.Bridge.
type Responder interface {
	Respond(ctx context.Context, owner string, history []llm.Message, userMessage string) *agent.TurnResult
}

// TurnOutcome is what one chat turn returns to the transport layer.
type TurnOutcome struct {
	ConversationID int64
	MessageID      int64
	Content        string
	ToolCalls      []store.ToolCallRecord
}

// Summary is the list projection of a conversation.
type Summary struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Detail is the full view of a conversation with its messages in
// creation order.
type Detail struct {
	ConversationID int64            `json:"conversation_id"`
	Title          string           `json:"title"`
	Messages       []*store.Message `json:"messages"`
	Total          int              `json:"total"`
}

// Service coordinates conversations, messages and the agent.
type Service struct {
	store     store.Store
	responder Responder
	logger    *zap.Logger
}

// NewService wires a chat service.
func NewService(st store.Store, responder Responder, logger *zap.Logger) *Service {
	return &Service{store: st, responder: responder, logger: logger}
}

// SendMessage runs one complete turn for the user. A zero
// conversationID (or one that does not resolve for this user) starts a
// new conversation titled from the message. The user message and the
// assistant reply are both persisted before returning.
func (s *Service) SendMessage(ctx context.Context, userID string, conversationID int64, message string) (*TurnOutcome, error) {
	conv, fresh, err := s.getOrCreate(userID, conversationID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving conversation")
	}

	if fresh && conv.Title == store.DefaultConversationTitle {
		conv.Title = autoTitle(message)
		if err := s.store.UpdateConversation(conv); err != nil {
			return nil, errors.Wrapf(err, "titling conversation %d", conv.ID)
		}
	}

	history, err := s.history(conv.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading history for conversation %d", conv.ID)
	}

	userMsg := &store.Message{
		ConversationID: conv.ID,
		Role:           llm.RoleUser,
		Content:        message,
	}
	if err := s.store.AppendMessage(userMsg); err != nil {
		return nil, errors.Wrapf(err, "recording user message")
	}

	turn := s.responder.Respond(ctx, userID, history, message)

	assistantMsg := &store.Message{
		ConversationID: conv.ID,
		Role:           llm.RoleAssistant,
		Content:        turn.Content,
		ToolCalls:      turn.ToolCalls,
	}
	if err := s.store.AppendMessage(assistantMsg); err != nil {
		return nil, errors.Wrapf(err, "recording assistant message")
	}

	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConversation(conv); err != nil {
		s.logger.Warn("touching conversation failed",
			zap.Int64("conversation_id", conv.ID),
			zap.Error(err))
	}

	return &TurnOutcome{
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		Content:        turn.Content,
		ToolCalls:      turn.ToolCalls,
	}, nil
}

// getOrCreate resolves an existing owned conversation or starts a new
// one. An ID that is missing or foreign silently falls through to
// creation. fresh reports whether this turn may retitle it.
func (s *Service) getOrCreate(userID string, conversationID int64) (*store.Conversation, bool, error) {
	if conversationID != 0 {
		conv, err := s.store.GetConversation(userID, conversationID)
		if err == nil {
			return conv, false, nil
		}
		if err != store.ErrNotFound {
			return nil, false, err
		}
	}

	conv := &store.Conversation{
		UserID: userID,
		Title:  store.DefaultConversationTitle,
	}
	if err := s.store.CreateConversation(conv); err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// history returns the first historyWindow messages of the conversation
// mapped to the model-facing roles. Tool call details are not replayed.
func (s *Service) history(conversationID int64) ([]llm.Message, error) {
	msgs, err := s.store.ListMessages(conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > historyWindow {
		msgs = msgs[:historyWindow]
	}

	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleAssistant
		if m.Role == llm.RoleUser {
			role = llm.RoleUser
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return history, nil
}

// autoTitle derives a conversation title from the first message: up to
// titleRunes characters, with an ellipsis when truncated.
func autoTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleRunes {
		title := strings.TrimSpace(message)
		if title == "" {
			return store.DefaultConversationTitle
		}
		return title
	}
	return strings.TrimSpace(string(runes[:titleRunes])) + "..."
}

// ListConversations returns the user's conversations ordered by last
// activity, most recent first, each with its message count.
func (s *Service) ListConversations(userID string) ([]Summary, error) {
	convs, err := s.store.ListConversations(userID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing conversations")
	}

	summaries := make([]Summary, 0, len(convs))
	for _, c := range convs {
		count, err := s.store.CountMessages(c.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "counting messages for conversation %d", c.ID)
		}
		summaries = append(summaries, Summary{
			ID:           c.ID,
			Title:        c.Title,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			MessageCount: count,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// GetConversation returns the full conversation with messages in
// creation order. Returns store.ErrNotFound for missing or foreign IDs.
func (s *Service) GetConversation(userID string, conversationID int64) (*Detail, error) {
	conv, err := s.store.GetConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(conv.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing messages for conversation %d", conv.ID)
	}
	return &Detail{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Messages:       msgs,
		Total:          len(msgs),
	}, nil
}

// RenameConversation sets a new title, truncated to the title limit.
// Returns store.ErrNotFound for missing or foreign IDs.
func (s *Service) RenameConversation(userID string, conversationID int64, title string) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateConversation(conv); err != nil {
		return nil, errors.Wrapf(err, "renaming conversation %d", conversationID)
	}
	return conv, nil
}

// DeleteConversation removes the conversation and its messages.
// Returns store.ErrNotFound for missing or foreign IDs.
func (s *Service) DeleteConversation(userID string, conversationID int64) error {
	return s.store.DeleteConversation(userID, conversationID)
}
