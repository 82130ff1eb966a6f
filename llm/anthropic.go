package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"taskwing/catalog"
	"taskwing/errors"
)

const anthropicMaxTokens = 4096

// AnthropicClient is an adapter for the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates an AnthropicClient. It requires the
// ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(ctx context.Context, modelName string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client, model: modelName}, nil
}

// Chat submits the neutral history and catalogue to Anthropic and maps
// the response back into a neutral Message.
func (a *AnthropicClient) Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error) {
	anthropicMessages, systemPrompt := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	for _, tool := range toAnthropicTools(defs) {
		t := tool
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &t})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "anthropic message failed")
	}

	return fromAnthropicResponse(resp), nil
}

// toAnthropicMessages converts the neutral history into Anthropic's
// block structure. The last system message becomes the system prompt;
// tool results travel as tool_result blocks inside a user message.
func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				for _, tc := range msg.ToolCalls {
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							Type:  "tool_use",
							ID:    tc.ID,
							Name:  tc.Name,
							Input: json.RawMessage(tc.Arguments),
						},
					})
				}
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			} else if msg.Content != "" {
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				})
			}
		case RoleTool:
			if len(msg.ToolCalls) != 1 {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCalls[0].ID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: msg.Content},
						}},
					},
				}},
			})
		}
	}

	return out, systemPrompt
}

func toAnthropicTools(defs []catalog.Definition) []anthropic.ToolParam {
	var out []anthropic.ToolParam
	for _, d := range defs {
		props := make(map[string]interface{}, len(d.Parameters.Properties))
		for name, p := range d.Parameters.Properties {
			props[name] = map[string]interface{}{
				"type":        p.Type,
				"description": p.Description,
			}
		}
		out = append(out, anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: props,
				Required:   d.Parameters.Required,
			},
		})
	}
	return out
}

func fromAnthropicResponse(resp *anthropic.Message) *Message {
	msg := &Message{Role: RoleAssistant}
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += c.Text
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:        c.ID,
				Name:      c.Name,
				Arguments: string(c.Input),
			})
		}
	}
	return msg
}
