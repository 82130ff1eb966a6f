package llm

import (
	"context"
	"encoding/json"
	"testing"

	"taskwing/catalog"
)

func TestMockClientReplaysScriptedResponses(t *testing.T) {
	mock := &MockClient{
		Responses: []*Message{
			{Role: RoleAssistant, Content: "first"},
			{Role: RoleAssistant, Content: "second"},
		},
	}

	history := []Message{{Role: RoleUser, Content: "hi"}}

	resp, err := mock.Chat(context.Background(), history, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("got %q, want first scripted response", resp.Content)
	}

	resp, err = mock.Chat(context.Background(), history, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("got %q, want second scripted response", resp.Content)
	}

	// Exhausted scripts yield an empty assistant message, not an error.
	resp, err = mock.Chat(context.Background(), history, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Role != RoleAssistant || resp.Content != "" {
		t.Errorf("exhausted mock returned %+v", resp)
	}

	if len(mock.Requests) != 3 {
		t.Errorf("recorded %d requests, want 3", len(mock.Requests))
	}
}

func TestBedrockRequestBodyShape(t *testing.T) {
	defs, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	messages := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "add a task"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "call_1", Name: "create_task", Arguments: `{"title":"x"}`},
		}},
		{Role: RoleTool, Content: `{"success":true}`, ToolCalls: []ToolCall{{ID: "call_1"}}},
	}

	body, err := bedrockRequestBody(messages, defs.All())
	if err != nil {
		t.Fatalf("build body: %v", err)
	}

	var req map[string]interface{}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}

	if req["anthropic_version"] != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %v", req["anthropic_version"])
	}
	if req["system"] != "be helpful" {
		t.Errorf("system = %v", req["system"])
	}
	msgs, ok := req["messages"].([]interface{})
	if !ok || len(msgs) != 3 {
		t.Fatalf("messages = %v, want 3 entries with system split off", req["messages"])
	}
	tools, ok := req["tools"].([]interface{})
	if !ok || len(tools) != len(defs.All()) {
		t.Fatalf("tools = %v entries, want %d", len(tools), len(defs.All()))
	}
	first := tools[0].(map[string]interface{})
	schema, ok := first["input_schema"].(map[string]interface{})
	if !ok {
		t.Fatalf("tool missing input_schema: %v", first)
	}
	if _, ok := schema["properties"].(map[string]interface{}); !ok {
		t.Errorf("input_schema has no properties: %v", schema)
	}
}

func TestFromBedrockResponseExtractsToolCalls(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "on it"},
			{"type": "tool_use", "id": "tu_1", "name": "list_tasks", "input": {"user_id": "alice"}}
		]
	}`)

	msg, err := fromBedrockResponse(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Content != "on it" {
		t.Errorf("content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.ID != "tu_1" || tc.Name != "list_tasks" {
		t.Errorf("tool call = %+v", tc)
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		t.Fatalf("arguments not JSON: %v", err)
	}
	if args["user_id"] != "alice" {
		t.Errorf("arguments = %v", args)
	}
}

func TestFromBedrockResponseSurfacesAPIError(t *testing.T) {
	if _, err := fromBedrockResponse([]byte(`{"error": {"message": "throttled"}}`)); err == nil {
		t.Fatal("expected error from error payload")
	}
}
