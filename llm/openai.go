package llm

import (
	"context"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"taskwing/catalog"
	"taskwing/errors"
)

// OpenAIClient is an adapter for the OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAIClient. It requires the
// OPENAI_API_KEY environment variable; OPENAI_BASE_URL optionally
// points it at a compatible endpoint.
func NewOpenAIClient(ctx context.Context, modelName string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c, model: modelName}, nil
}

// Chat submits the neutral history and catalogue to OpenAI and maps
// the completion back into a neutral Message.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(defs),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "openai chat completion failed")
	}

	return fromOpenAIResponse(resp), nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, assistant.ToParam())
		case RoleTool:
			if len(msg.ToolCalls) != 1 {
				// A tool message must name exactly one originating call.
				continue
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(defs []catalog.Definition) []openai.ChatCompletionToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, d := range defs {
		props := make(map[string]interface{}, len(d.Parameters.Properties))
		for name, p := range d.Parameters.Properties {
			props[name] = map[string]interface{}{
				"type":        p.Type,
				"description": p.Description,
			}
		}
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": props,
			"required":   d.Parameters.Required,
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  params,
		}))
	}
	return out
}

func fromOpenAIResponse(resp *openai.ChatCompletion) *Message {
	if len(resp.Choices) == 0 {
		return &Message{Role: RoleAssistant, Content: ""}
	}

	choice := resp.Choices[0].Message
	msg := &Message{Role: RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg
}
