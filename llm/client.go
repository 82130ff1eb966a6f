// Package llm abstracts the language-model providers behind a single
// capability: submit a message history plus the tool catalogue, receive
// one neutral turn result (text and/or requested tool calls). Each
// provider SDK's incompatible wire shapes stay inside its adapter.
package llm

import (
	"context"

	"taskwing/catalog"
)

// Message roles used in the neutral representation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one function-call request extracted from a model
// response. Arguments is the raw JSON-encoded object exactly as the
// provider produced it; parsing and validation happen at execution
// time so malformed arguments become structured failures instead of
// adapter errors.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is the provider-neutral conversation unit. A RoleTool
// message carries a tool execution result in Content and identifies
// the originating call through ToolCalls[0].
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Client is the single capability every provider adapter implements.
type Client interface {
	Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error)
}

// MockClient returns scripted responses in order and records every
// request it receives. It stands in for a real provider in tests.
type MockClient struct {
	Responses []*Message
	Err       error

	// Requests holds a copy of the message slice of each Chat call.
	Requests [][]Message
}

func (m *MockClient) Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error) {
	cp := make([]Message, len(messages))
	copy(cp, messages)
	m.Requests = append(m.Requests, cp)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Message{Role: RoleAssistant, Content: ""}, nil
	}
	next := m.Responses[0]
	m.Responses = m.Responses[1:]
	return next, nil
}
