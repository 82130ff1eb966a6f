// Package agent runs one conversational turn against a language-model
// provider: compose the message sequence, invoke the model, execute any
// requested tools, and re-invoke exactly once for the final answer.
// Provider faults never escape; the turn degrades to a fixed apology.
package agent

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"taskwing/catalog"
	"taskwing/llm"
	"taskwing/store"
	"taskwing/tools"
)

// Fallback strings substituted when the provider fails or returns
// nothing usable.
const (
	FallbackUnavailable = "I'm sorry, I'm having trouble processing your request right now. Please try again in a moment."
	FallbackEmpty       = "I apologize, I couldn't generate a response."
)

// TurnResult is what one turn produces: the assistant's text and the
// tool calls that were executed while producing it.
type TurnResult struct {
	Content   string
	ToolCalls []store.ToolCallRecord
}

// Bridge coordinates the model, the tool executor and the catalogue for
// a single turn. It holds no per-conversation state.
type Bridge struct {
	client   llm.Client
	executor *tools.Executor
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

// NewBridge wires a bridge over the given provider client.
func NewBridge(client llm.Client, executor *tools.Executor, cat *catalog.Catalog, logger *zap.Logger) *Bridge {
	return &Bridge{
		client:   client,
		executor: executor,
		catalog:  cat,
		logger:   logger,
	}
}

// Respond runs one turn for the given owner. The history is the prior
// conversation in creation order; userMessage is the new message. The
// returned result is always usable: faults are logged and replaced by
// fallback content.
//
// At most one tool round-trip happens per turn. If the second model
// response requests further tools, those requests are ignored and its
// text is used as the final answer.
func (b *Bridge) Respond(ctx context.Context, owner string, history []llm.Message, userMessage string) *TurnResult {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemInstructions})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	response, err := b.client.Chat(ctx, messages, b.catalog.All())
	if err != nil {
		b.logger.Error("provider call failed", zap.String("user_id", owner), zap.Error(err))
		return &TurnResult{Content: FallbackUnavailable}
	}

	if len(response.ToolCalls) == 0 {
		content := response.Content
		if content == "" {
			content = FallbackEmpty
		}
		return &TurnResult{Content: content}
	}

	messages = append(messages, *response)

	records := make([]store.ToolCallRecord, 0, len(response.ToolCalls))
	for _, call := range response.ToolCalls {
		result, err := b.executor.ExecuteCall(ctx, owner, call)
		if err != nil {
			// Unknown tool name. The model went off the rails, so the
			// whole turn falls back rather than feeding it a half-done
			// round-trip.
			b.logger.Error("tool dispatch failed",
				zap.String("user_id", owner),
				zap.String("tool", call.Name),
				zap.Error(err))
			return &TurnResult{Content: FallbackUnavailable}
		}

		records = append(records, store.ToolCallRecord{
			Name:      call.Name,
			Arguments: recordedArguments(owner, call),
			Result:    result,
		})

		messages = append(messages, llm.Message{
			Role:      llm.RoleTool,
			Content:   encodeResult(result),
			ToolCalls: []llm.ToolCall{{ID: call.ID, Name: call.Name}},
		})
	}

	final, err := b.client.Chat(ctx, messages, b.catalog.All())
	if err != nil {
		b.logger.Error("provider call failed after tools", zap.String("user_id", owner), zap.Error(err))
		return &TurnResult{Content: FallbackUnavailable}
	}
	if len(final.ToolCalls) > 0 {
		b.logger.Warn("model requested tools after tool round-trip, ignoring",
			zap.String("user_id", owner),
			zap.Int("requested", len(final.ToolCalls)))
	}

	content := final.Content
	if content == "" {
		content = FallbackEmpty
	}
	return &TurnResult{Content: content, ToolCalls: records}
}

// recordedArguments reconstructs the argument mapping for persistence,
// with the trusted owner identity overwriting anything model-supplied.
func recordedArguments(owner string, call llm.ToolCall) map[string]interface{} {
	args := map[string]interface{}{}
	if call.Arguments != "" {
		// A decode failure leaves the map empty; the executor already
		// reported the malformed payload in its result.
		_ = json.Unmarshal([]byte(call.Arguments), &args)
	}
	args["user_id"] = owner
	return args
}

func encodeResult(result tools.Result) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return `{"success":false,"error":"result encoding failed"}`
	}
	return string(encoded)
}
