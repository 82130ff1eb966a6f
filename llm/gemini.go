package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"taskwing/catalog"
	"taskwing/errors"
)

// GeminiClient is an adapter for the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a GeminiClient. It requires the
// GEMINI_API_KEY environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "creating genai client")
	}

	return &GeminiClient{client: client, model: modelName}, nil
}

// Chat submits the neutral history and catalogue to Gemini and maps the
// candidate content back into a neutral Message.
func (g *GeminiClient) Chat(ctx context.Context, messages []Message, defs []catalog.Definition) (*Message, error) {
	model := g.client.GenerativeModel(g.model)
	model.Tools = toGeminiTools(defs)

	history, systemPrompt := toGeminiContents(messages)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if len(history) == 0 {
		return nil, errors.New("no messages to send")
	}

	last := history[len(history)-1]
	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "gemini send message failed")
	}

	return fromGeminiResponse(resp)
}

// toGeminiContents converts the neutral history into Gemini contents.
// The system message is split off for the model's SystemInstruction;
// tool results become FunctionResponse parts.
func toGeminiContents(messages []Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]interface{}{}
				}
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case RoleTool:
			if len(msg.ToolCalls) != 1 {
				continue
			}
			var result map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
				result = map[string]interface{}{"result": msg.Content}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     msg.ToolCalls[0].Name,
					Response: result,
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	return contents, systemPrompt
}

func toGeminiTools(defs []catalog.Definition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, d := range defs {
		props := make(map[string]*genai.Schema, len(d.Parameters.Properties))
		for name, p := range d.Parameters.Properties {
			props[name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   d.Parameters.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiType(t string) genai.Type {
	switch t {
	case catalog.TypeInteger:
		return genai.TypeInteger
	case catalog.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Message{Role: RoleAssistant, Content: ""}, nil
	}

	msg := &Message{Role: RoleAssistant}
	for i, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			msg.Content += string(v)
		case genai.FunctionCall:
			raw, err := json.Marshal(v.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "encoding gemini function call arguments")
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:        geminiCallID(v.Name, i),
				Name:      v.Name,
				Arguments: string(raw),
			})
		}
	}
	return msg, nil
}

// geminiCallID synthesizes a call ID; Gemini does not assign one.
func geminiCallID(name string, index int) string {
	return fmt.Sprintf("call_%d_%s", index, name)
}
