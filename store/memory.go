package store

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. It backs unit tests and
// the interactive console shell.
type MemoryStore struct {
	mu sync.RWMutex

	tasks         map[int64]*Task
	conversations map[int64]*Conversation
	messages      map[int64]*Message

	nextTaskID int64
	nextConvID int64
	nextMsgID  int64
}

// NewMemoryStore creates a ready-to-use in-memory store. The first
// object of each kind receives ID 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:         make(map[int64]*Task),
		conversations: make(map[int64]*Conversation),
		messages:      make(map[int64]*Message),
	}
}

// ---------- Tasks ----------

func (m *MemoryStore) CreateTask(t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTaskID++
	t.ID = m.nextTaskID
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTask(userID string, id int64) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTasks(userID string) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateTask(t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteTask(userID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// ---------- Conversations ----------

func (m *MemoryStore) CreateConversation(c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextConvID++
	c.ID = m.nextConvID
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Title == "" {
		c.Title = DefaultConversationTitle
	}

	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetConversation(userID string, id int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListConversations(userID string) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Conversation
	for _, c := range m.conversations {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateConversation(c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.conversations[c.ID]
	if !ok || existing.UserID != c.UserID {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteConversation(userID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	for msgID, msg := range m.messages {
		if msg.ConversationID == id {
			delete(m.messages, msgID)
		}
	}
	delete(m.conversations, id)
	return nil
}

// ---------- Messages ----------

func (m *MemoryStore) AppendMessage(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsgID++
	msg.ID = m.nextMsgID
	msg.CreatedAt = time.Now().UTC()

	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *MemoryStore) ListMessages(conversationID int64) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CountMessages(conversationID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
