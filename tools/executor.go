// Package tools executes catalogue operations on behalf of the model.
// Every call is scoped to the authenticated owner: the owner identity
// is injected by the caller and always overwrites whatever the model
// put in the arguments. Validation problems come back as structured
// failure results so the model can read the error and react in
// conversation instead of the turn aborting.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskwing/catalog"
	"taskwing/events"
	"taskwing/llm"
	"taskwing/store"
)

// Result is the structured outcome of one tool call. It always carries
// a "success" boolean; failures add "error", successes add the affected
// entity's fields.
type Result map[string]interface{}

func failure(format string, args ...interface{}) Result {
	return Result{"success": false, "error": fmt.Sprintf(format, args...)}
}

// UnknownToolError reports a dispatch name absent from the catalogue.
// The message enumerates the valid names so the fault is actionable in
// logs.
type UnknownToolError struct {
	Name  string
	Valid []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q, valid tools: %s", e.Name, strings.Join(e.Valid, ", "))
}

type handlerFunc func(ctx context.Context, owner string, args map[string]interface{}) Result

// Executor dispatches validated tool calls against the task store.
type Executor struct {
	catalog  *catalog.Catalog
	store    store.Store
	emitter  events.Emitter
	logger   *zap.Logger
	handlers map[string]handlerFunc
}

// NewExecutor wires an executor over the given store. Events are
// emitted best-effort through emitter; pass events.NopEmitter{} to
// disable them.
func NewExecutor(cat *catalog.Catalog, st store.Store, emitter events.Emitter, logger *zap.Logger) *Executor {
	e := &Executor{
		catalog: cat,
		store:   st,
		emitter: emitter,
		logger:  logger,
	}
	e.handlers = map[string]handlerFunc{
		"create_task":   e.createTask,
		"list_tasks":    e.listTasks,
		"get_task":      e.getTask,
		"update_task":   e.updateTask,
		"complete_task": e.completeTask,
		"delete_task":   e.deleteTask,
		"search_tasks":  e.searchTasks,
	}
	return e
}

// Execute runs the named tool for the given owner. The owner identity
// overwrites any user_id present in args. An unrecognized name returns
// an UnknownToolError; every other problem is folded into the Result.
func (e *Executor) Execute(ctx context.Context, owner, name string, args map[string]interface{}) (Result, error) {
	handler, ok := e.handlers[name]
	if !ok {
		return nil, &UnknownToolError{Name: name, Valid: e.catalog.Names()}
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	args["user_id"] = owner

	result := handler(ctx, owner, args)
	e.logger.Debug("executed tool",
		zap.String("tool", name),
		zap.String("user_id", owner),
		zap.Bool("success", result["success"] == true))
	return result, nil
}

// ExecuteCall unpacks a provider tool call and runs it. Malformed
// argument JSON becomes a structured failure, not an error: the model
// produced it, so the model gets to see it.
func (e *Executor) ExecuteCall(ctx context.Context, owner string, call llm.ToolCall) (Result, error) {
	args := map[string]interface{}{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			if !e.catalog.Has(call.Name) {
				return nil, &UnknownToolError{Name: call.Name, Valid: e.catalog.Names()}
			}
			return failure("Invalid JSON arguments: %v", err), nil
		}
	}
	return e.Execute(ctx, owner, call.Name, args)
}

// stringArg returns the named argument as a string, empty if absent or
// not a string.
func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// optionalString distinguishes an absent argument from an empty one.
func optionalString(args map[string]interface{}, key string) *string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// intArg extracts an integer argument. JSON decoding yields float64,
// but providers occasionally send integers as strings, so both are
// accepted.
func intArg(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		var n int64
		_, err := fmt.Sscanf(v, "%d", &n)
		return n, err == nil
	default:
		return 0, false
	}
}

func optionalBool(args map[string]interface{}, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
