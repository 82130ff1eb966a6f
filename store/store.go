// Package store provides persistence for tasks, conversations and
// messages. Two implementations exist: BoltStore for the server and
// MemoryStore for tests and the console shell.
//
// Every read and mutation of tasks and conversations is scoped by the
// owner's user ID; an object belonging to another user is reported as
// ErrNotFound, never exposed.
package store

import (
	"fmt"
	"time"
)

// Task is a single todo item owned by exactly one user.
type Task struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Conversation groups an ordered sequence of chat messages for a user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultConversationTitle is used until the first message supplies one.
const DefaultConversationTitle = "New Conversation"

// Message is one turn in a conversation. Messages are append-only:
// there is no update path, and ordering follows the assigned ID.
type Message struct {
	ID             int64            `json:"id"`
	ConversationID int64            `json:"conversation_id"`
	Role           string           `json:"role"` // "user" or "assistant"
	Content        string           `json:"content"`
	ToolCalls      []ToolCallRecord `json:"tool_calls,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ToolCallRecord captures one tool invocation made while producing an
// assistant message. It is embedded in the message and never stored
// independently.
type ToolCallRecord struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    map[string]interface{} `json:"result"`
}

// Store is the persistence interface shared by the tool executor, the
// chat services and the HTTP handlers.
type Store interface {
	// CreateTask assigns an ID and timestamps and persists the task.
	CreateTask(t *Task) error
	// GetTask returns the task only if it is owned by userID.
	GetTask(userID string, id int64) (*Task, error)
	// ListTasks returns all tasks owned by userID, ordered by ID.
	ListTasks(userID string) ([]*Task, error)
	// UpdateTask replaces a task the owner already holds.
	// Returns ErrNotFound if the task is missing or foreign.
	UpdateTask(t *Task) error
	// DeleteTask removes the task if owned by userID.
	DeleteTask(userID string, id int64) error

	// CreateConversation assigns an ID and timestamps and persists it.
	CreateConversation(c *Conversation) error
	// GetConversation returns the conversation only if owned by userID.
	GetConversation(userID string, id int64) (*Conversation, error)
	// ListConversations returns all conversations owned by userID,
	// ordered by ID. Callers re-order by recency as needed.
	ListConversations(userID string) ([]*Conversation, error)
	// UpdateConversation replaces an owned conversation.
	UpdateConversation(c *Conversation) error
	// DeleteConversation removes the conversation and every message in
	// it. Returns ErrNotFound if missing or foreign.
	DeleteConversation(userID string, id int64) error

	// AppendMessage assigns an ID and timestamp and persists the
	// message. IDs are monotonically increasing, so reading messages
	// back always reproduces creation order.
	AppendMessage(m *Message) error
	// ListMessages returns all messages of a conversation in creation
	// order.
	ListMessages(conversationID int64) ([]*Message, error)
	// CountMessages returns the number of messages in a conversation.
	CountMessages(conversationID int64) (int, error)

	// Close releases held resources (e.g. the BoltDB file handle).
	Close() error
}

// Sentinel errors shared by all implementations.
var (
	ErrNotFound = fmt.Errorf("not found")
)
