package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskwing/agent"
	"taskwing/auth"
	"taskwing/catalog"
	"taskwing/chat"
	"taskwing/config"
	"taskwing/events"
	"taskwing/llm"
	"taskwing/store"
	"taskwing/tools"
)

type testEnv struct {
	server *Server
	store  store.Store
	authn  *auth.Authenticator
	mock   *llm.MockClient
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	st := store.NewMemoryStore()
	logger := zap.NewNop()
	mock := &llm.MockClient{}
	executor := tools.NewExecutor(cat, st, events.NopEmitter{}, logger)
	bridge := agent.NewBridge(mock, executor, cat, logger)
	chatSvc := chat.NewService(st, bridge, logger)
	authn := auth.NewAuthenticator("test-secret", time.Hour)
	srv := NewServer("127.0.0.1:0", st, chatSvc, authn, events.NopEmitter{}, nil,
		config.LLM{Provider: "mock", Model: "scripted"}, logger)
	return &testEnv{server: srv, store: st, authn: authn, mock: mock}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := e.authn.IssueToken(uid)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	rec := env.request(t, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLoginDerivesUserFromEmail(t *testing.T) {
	env := newEnv(t)

	rec := env.request(t, "POST", "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "anything",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["user_id"] != "alice" {
		t.Errorf("user_id = %v", body["user_id"])
	}
	if body["token_type"] != "bearer" {
		t.Errorf("token_type = %v", body["token_type"])
	}

	// The issued token works against a protected endpoint.
	token, _ := body["access_token"].(string)
	tasksRec := env.request(t, "GET", "/tasks", token, nil)
	if tasksRec.Code != http.StatusOK {
		t.Errorf("tasks with issued token = %d", tasksRec.Code)
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	env := newEnv(t)

	paths := []struct{ method, path string }{
		{"GET", "/tasks"},
		{"POST", "/api/chat"},
		{"GET", "/api/conversations"},
	}
	for _, p := range paths {
		rec := env.request(t, p.method, p.path, "", map[string]string{"message": "hi"})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", p.method, p.path, rec.Code)
		}
	}

	rec := env.request(t, "GET", "/tasks", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", rec.Code)
	}
}

func TestTaskCRUDRoundTrip(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "alice")

	created := env.request(t, "POST", "/tasks", token, map[string]string{
		"title":       "  Buy milk  ",
		"description": "2 litres",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", created.Code, created.Body.String())
	}
	body := decode(t, created)
	if body["title"] != "Buy milk" {
		t.Errorf("title = %v, want trimmed", body["title"])
	}
	id := int64(body["id"].(float64))

	got := env.request(t, "GET", fmt.Sprintf("/tasks/%d", id), token, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get = %d", got.Code)
	}

	updated := env.request(t, "PUT", fmt.Sprintf("/tasks/%d", id), token, map[string]string{"title": "Buy oat milk"})
	if updated.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", updated.Code, updated.Body.String())
	}
	if decode(t, updated)["title"] != "Buy oat milk" {
		t.Errorf("updated title = %v", decode(t, updated)["title"])
	}

	toggled := env.request(t, "PATCH", fmt.Sprintf("/tasks/%d/toggle", id), token, nil)
	if toggled.Code != http.StatusOK || decode(t, toggled)["completed"] != true {
		t.Errorf("toggle = %d %s", toggled.Code, toggled.Body.String())
	}

	deleted := env.request(t, "DELETE", fmt.Sprintf("/tasks/%d", id), token, nil)
	if deleted.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", deleted.Code)
	}
	if rec := env.request(t, "GET", fmt.Sprintf("/tasks/%d", id), token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestTaskValidationErrors(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "alice")

	rec := env.request(t, "POST", "/tasks", token, map[string]string{"title": "   "})
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != "Title is required" {
		t.Errorf("blank title = %d %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, "POST", "/tasks", token, map[string]string{"title": strings.Repeat("x", 201)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("long title = %d", rec.Code)
	}

	created := env.request(t, "POST", "/tasks", token, map[string]string{"title": "ok"})
	id := int64(decode(t, created)["id"].(float64))
	rec = env.request(t, "PUT", fmt.Sprintf("/tasks/%d", id), token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update = %d, want 400", rec.Code)
	}
}

func TestTaskOwnershipOverHTTP(t *testing.T) {
	env := newEnv(t)
	alice := env.token(t, "alice")
	bob := env.token(t, "bob")

	created := env.request(t, "POST", "/tasks", alice, map[string]string{"title": "alice's"})
	id := int64(decode(t, created)["id"].(float64))

	if rec := env.request(t, "GET", fmt.Sprintf("/tasks/%d", id), bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bob reads alice's task = %d, want 404", rec.Code)
	}
	if rec := env.request(t, "DELETE", fmt.Sprintf("/tasks/%d", id), bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("bob deletes alice's task = %d, want 404", rec.Code)
	}
}

func TestChatTurnPersistsTaskBeforeResponding(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "u1")

	env.mock.Responses = []*llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "create_task", Arguments: `{"title":"Buy milk"}`},
		}},
		{Role: llm.RoleAssistant, Content: "Added 'Buy milk' to your tasks"},
	}

	rec := env.request(t, "POST", "/api/chat", token, map[string]interface{}{
		"message": "remind me to buy milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["content"] != "Added 'Buy milk' to your tasks" {
		t.Errorf("content = %v", body["content"])
	}
	calls, ok := body["tool_calls"].([]interface{})
	if !ok || len(calls) != 1 {
		t.Fatalf("tool_calls = %v", body["tool_calls"])
	}
	first := calls[0].(map[string]interface{})
	if first["name"] != "create_task" {
		t.Errorf("tool call name = %v", first["name"])
	}

	tasks, err := env.store.ListTasks("u1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("persisted tasks = %v", tasks)
	}
}

func TestChatProviderFaultDegradesTo200(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "u1")
	env.mock.Err = fmt.Errorf("provider exploded")

	rec := env.request(t, "POST", "/api/chat", token, map[string]string{"message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d, want 200 with degraded content", rec.Code)
	}
	body := decode(t, rec)
	content, _ := body["content"].(string)
	if !strings.Contains(content, "trouble processing") {
		t.Errorf("content = %q, want apology", content)
	}
	if strings.Contains(content, "exploded") {
		t.Errorf("internal error leaked: %q", content)
	}
}

func TestChatRequestValidation(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "u1")

	rec := env.request(t, "POST", "/api/chat", token, map[string]string{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message = %d, want 400", rec.Code)
	}

	rec = env.request(t, "POST", "/api/chat", token, map[string]string{
		"message": strings.Repeat("a", 4001),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized message = %d, want 400", rec.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	env := newEnv(t)
	token := env.token(t, "u1")

	env.mock.Responses = []*llm.Message{
		{Role: llm.RoleAssistant, Content: "hello there"},
	}
	chatRec := env.request(t, "POST", "/api/chat", token, map[string]string{"message": "hi assistant"})
	if chatRec.Code != http.StatusOK {
		t.Fatalf("chat = %d", chatRec.Code)
	}
	convID := int64(decode(t, chatRec)["conversation_id"].(float64))

	listRec := env.request(t, "GET", "/api/conversations", token, nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list = %d", listRec.Code)
	}
	listBody := decode(t, listRec)
	if listBody["total"] != float64(1) {
		t.Errorf("total = %v", listBody["total"])
	}
	convs := listBody["conversations"].([]interface{})
	summary := convs[0].(map[string]interface{})
	if summary["title"] != "hi assistant" {
		t.Errorf("title = %v", summary["title"])
	}
	if summary["message_count"] != float64(2) {
		t.Errorf("message_count = %v", summary["message_count"])
	}

	getRec := env.request(t, "GET", fmt.Sprintf("/api/conversations/%d", convID), token, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get = %d", getRec.Code)
	}
	detail := decode(t, getRec)
	msgs := detail["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d", len(msgs))
	}
	firstMsg := msgs[0].(map[string]interface{})
	if firstMsg["role"] != "user" || firstMsg["content"] != "hi assistant" {
		t.Errorf("first message = %v", firstMsg)
	}

	renameRec := env.request(t, "PATCH", fmt.Sprintf("/api/conversations/%d/title", convID), token,
		map[string]string{"title": "greetings"})
	if renameRec.Code != http.StatusOK || decode(t, renameRec)["title"] != "greetings" {
		t.Errorf("rename = %d %s", renameRec.Code, renameRec.Body.String())
	}

	// Foreign access is a 404.
	other := env.token(t, "intruder")
	if rec := env.request(t, "GET", fmt.Sprintf("/api/conversations/%d", convID), other, nil); rec.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", rec.Code)
	}

	delRec := env.request(t, "DELETE", fmt.Sprintf("/api/conversations/%d", convID), token, nil)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete = %d", delRec.Code)
	}
	if rec := env.request(t, "GET", fmt.Sprintf("/api/conversations/%d", convID), token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestRateLimitHeadersAndExhaustion(t *testing.T) {
	env := newEnv(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < authRateLimit; i++ {
		last = env.request(t, "POST", "/auth/login", "", map[string]string{"email": "a@b.c", "password": "x"})
		if last.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, last.Code)
		}
	}
	if last.Header().Get("X-RateLimit-Limit") != "20" {
		t.Errorf("limit header = %q", last.Header().Get("X-RateLimit-Limit"))
	}
	if last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("remaining header = %q", last.Header().Get("X-RateLimit-Remaining"))
	}

	over := env.request(t, "POST", "/auth/login", "", map[string]string{"email": "a@b.c", "password": "x"})
	if over.Code != http.StatusTooManyRequests {
		t.Fatalf("over limit = %d, want 429", over.Code)
	}
	if over.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing on 429")
	}

	// Health is exempt.
	if rec := env.request(t, "GET", "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health during exhaustion = %d", rec.Code)
	}
}

func TestChatHealthAndAnalytics(t *testing.T) {
	env := newEnv(t)

	rec := env.request(t, "GET", "/api/chat/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat health = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["provider"] != "mock" {
		t.Errorf("chat health body = %v", body)
	}

	rec = env.request(t, "GET", "/analytics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics = %d", rec.Code)
	}
	if decode(t, rec)["status"] != "disabled" {
		t.Errorf("analytics body = %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
