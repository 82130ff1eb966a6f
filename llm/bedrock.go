package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"taskwing/catalog"
	"taskwing/errors"
)

// BedrockClient is an adapter for Anthropic models hosted on AWS
// Bedrock. Bedrock's InvokeModel takes a raw Anthropic-format JSON
// body, so conversion here works on plain maps.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient creates a BedrockClient using the default AWS
// credential chain from the environment.
func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "loading AWS config")
	}

	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// Chat submits the neutral history and catalogue to Bedrock and maps
// the Anthropic-format response back into a neutral Message.
func (b *BedrockClient) Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error) {
	body, err := bedrockRequestBody(messages, defs)
	if err != nil {
		return nil, errors.Wrapf(err, "building bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invoking bedrock model")
	}

	return fromBedrockResponse(resp.Body)
}

func bedrockRequestBody(messages []Message, defs []catalog.Definition) ([]byte, error) {
	var converted []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleUser:
			converted = append(converted, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": msg.Content},
				},
			})
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				var blocks []map[string]interface{}
				for _, tc := range msg.ToolCalls {
					var input map[string]interface{}
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						input = map[string]interface{}{}
					}
					blocks = append(blocks, map[string]interface{}{
						"type":  "tool_use",
						"id":    tc.ID,
						"name":  tc.Name,
						"input": input,
					})
				}
				converted = append(converted, map[string]interface{}{
					"role":    "assistant",
					"content": blocks,
				})
			} else if msg.Content != "" {
				converted = append(converted, map[string]interface{}{
					"role": "assistant",
					"content": []map[string]interface{}{
						{"type": "text", "text": msg.Content},
					},
				})
			}
		case RoleTool:
			if len(msg.ToolCalls) != 1 {
				continue
			}
			converted = append(converted, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCalls[0].ID,
						"content":     msg.Content,
					},
				},
			})
		}
	}

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        anthropicMaxTokens,
		"messages":          converted,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(defs) > 0 {
		var tools []map[string]interface{}
		for _, d := range defs {
			props := make(map[string]interface{}, len(d.Parameters.Properties))
			for name, p := range d.Parameters.Properties {
				props[name] = map[string]interface{}{
					"type":        p.Type,
					"description": p.Description,
				}
			}
			tools = append(tools, map[string]interface{}{
				"name":        d.Name,
				"description": d.Description,
				"input_schema": map[string]interface{}{
					"type":       "object",
					"properties": props,
					"required":   d.Parameters.Required,
				},
			})
		}
		request["tools"] = tools
	}

	return json.Marshal(request)
}

func fromBedrockResponse(body []byte) (*Message, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "decoding bedrock response")
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("bedrock API error: %v", errMsg)
	}

	contentArray, ok := response["content"].([]interface{})
	if !ok {
		return &Message{Role: RoleAssistant, Content: ""}, nil
	}

	msg := &Message{Role: RoleAssistant}
	for i, item := range contentArray {
		block, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := block["text"].(string); ok {
				msg.Content += text
			}
		case "tool_use":
			name, _ := block["name"].(string)
			if name == "" {
				continue
			}
			input, _ := block["input"].(map[string]interface{})
			raw, err := json.Marshal(input)
			if err != nil {
				return nil, errors.Wrapf(err, "encoding tool input for %s", name)
			}
			id, _ := block["id"].(string)
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, name)
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:        id,
				Name:      name,
				Arguments: string(raw),
			})
		}
	}
	return msg, nil
}
