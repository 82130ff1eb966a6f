package agent

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"taskwing/catalog"
	"taskwing/events"
	"taskwing/llm"
	"taskwing/store"
	"taskwing/tools"
)

func newBridge(t *testing.T, mock *llm.MockClient) (*Bridge, store.Store) {
	t.Helper()
	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	st := store.NewMemoryStore()
	executor := tools.NewExecutor(cat, st, events.NopEmitter{}, zap.NewNop())
	return NewBridge(mock, executor, cat, zap.NewNop()), st
}

func TestRespondDirectAnswer(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, Content: "You have no tasks yet."},
	}}
	bridge, _ := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "anything on my list?")

	if result.Content != "You have no tasks yet." {
		t.Errorf("content = %q", result.Content)
	}
	if result.ToolCalls != nil {
		t.Errorf("tool calls = %v, want none", result.ToolCalls)
	}
	if len(mock.Requests) != 1 {
		t.Fatalf("provider invoked %d times, want 1", len(mock.Requests))
	}
	first := mock.Requests[0]
	if first[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q, want system", first[0].Role)
	}
	if first[len(first)-1].Content != "anything on my list?" {
		t.Errorf("last message = %q, want the user message", first[len(first)-1].Content)
	}
}

func TestRespondExecutesToolThenFinalAnswer(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "create_task", Arguments: `{"title":"Buy milk"}`},
		}},
		{Role: llm.RoleAssistant, Content: "Added 'Buy milk' to your tasks"},
	}}
	bridge, st := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "remind me to buy milk")

	if result.Content != "Added 'Buy milk' to your tasks" {
		t.Errorf("content = %q", result.Content)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(result.ToolCalls))
	}
	record := result.ToolCalls[0]
	if record.Name != "create_task" {
		t.Errorf("tool name = %q", record.Name)
	}
	if record.Arguments["user_id"] != "u1" {
		t.Errorf("recorded arguments missing owner: %v", record.Arguments)
	}
	if record.Result["success"] != true {
		t.Errorf("recorded result = %v", record.Result)
	}

	// The task is persisted before the turn completes.
	tasks, err := st.ListTasks("u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("persisted tasks = %v", tasks)
	}

	// Second invocation carries the tool result back to the model.
	if len(mock.Requests) != 2 {
		t.Fatalf("provider invoked %d times, want 2", len(mock.Requests))
	}
	second := mock.Requests[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool {
		t.Errorf("last message role = %q, want tool", last.Role)
	}
	if !strings.Contains(last.Content, `"success":true`) {
		t.Errorf("tool result content = %q", last.Content)
	}
}

func TestRespondProviderFaultFallsBack(t *testing.T) {
	mock := &llm.MockClient{Err: context.DeadlineExceeded}
	bridge, _ := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "hello")

	if result.Content != FallbackUnavailable {
		t.Errorf("content = %q, want apology", result.Content)
	}
	if result.ToolCalls != nil {
		t.Errorf("tool calls = %v, want none", result.ToolCalls)
	}
}

func TestRespondUnknownToolFallsBack(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "format_disk", Arguments: `{}`},
		}},
	}}
	bridge, st := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "do something weird")

	if result.Content != FallbackUnavailable {
		t.Errorf("content = %q, want apology", result.Content)
	}
	if result.ToolCalls != nil {
		t.Errorf("tool calls = %v, want none", result.ToolCalls)
	}
	if len(mock.Requests) != 1 {
		t.Errorf("provider invoked %d times, want no re-invocation", len(mock.Requests))
	}
	if tasks, _ := st.ListTasks("u1"); len(tasks) != 0 {
		t.Errorf("store mutated by unknown tool: %v", tasks)
	}
}

func TestRespondMalformedArgumentsStaysStructured(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "create_task", Arguments: `{"title": nope}`},
		}},
		{Role: llm.RoleAssistant, Content: "Sorry, that did not work."},
	}}
	bridge, _ := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "add a task")

	if result.Content != "Sorry, that did not work." {
		t.Errorf("content = %q", result.Content)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(result.ToolCalls))
	}
	if result.ToolCalls[0].Result["success"] != false {
		t.Errorf("result = %v, want structured failure", result.ToolCalls[0].Result)
	}
}

func TestRespondIgnoresSecondRoundToolRequests(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "list_tasks", Arguments: `{}`},
		}},
		{Role: llm.RoleAssistant, Content: "Your list is empty.", ToolCalls: []llm.ToolCall{
			{ID: "call_2", Name: "list_tasks", Arguments: `{}`},
		}},
	}}
	bridge, _ := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "what's on my list?")

	if result.Content != "Your list is empty." {
		t.Errorf("content = %q", result.Content)
	}
	if len(result.ToolCalls) != 1 {
		t.Errorf("tool calls = %d, want only the first round recorded", len(result.ToolCalls))
	}
	if len(mock.Requests) != 2 {
		t.Errorf("provider invoked %d times, want exactly 2", len(mock.Requests))
	}
}

func TestRespondEmptySecondResponseUsesFallbackText(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "list_tasks", Arguments: `{}`},
		}},
		{Role: llm.RoleAssistant, Content: ""},
	}}
	bridge, _ := newBridge(t, mock)

	result := bridge.Respond(context.Background(), "u1", nil, "list please")

	if result.Content != FallbackEmpty {
		t.Errorf("content = %q, want %q", result.Content, FallbackEmpty)
	}
	if len(result.ToolCalls) != 1 {
		t.Errorf("tool calls = %d, want 1", len(result.ToolCalls))
	}
}
