package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

// GeminiModel invokes Google's Gemini models. Gemini does not issue call
// identifiers, so tool calls get a generated one and results are matched back
// by function name.
type GeminiModel struct {
	client    *genai.Client
	model     string
	maxTokens int
}

var _ Model = (*GeminiModel)(nil)

func NewGeminiModel(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiModel, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model, maxTokens: maxTokens}, nil
}

func (g *GeminiModel) Name() string { return "gemini/" + g.model }

// Close releases the underlying connection.
func (g *GeminiModel) Close() error {
	return g.client.Close()
}

func (g *GeminiModel) Generate(ctx context.Context, messages []Message, defs []tools.Definition) (*Response, error) {
	contents := toGeminiContents(messages)
	if len(contents) == 0 {
		return nil, errors.New("gemini: no messages to send")
	}

	gm := g.client.GenerativeModel(g.model)
	if g.maxTokens > 0 {
		gm.SetMaxOutputTokens(int32(g.maxTokens))
	}
	if len(defs) > 0 {
		gm.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiDeclarations(defs)}}
	}

	chat := gm.StartChat()
	chat.History = contents[:len(contents)-1]
	resp, err := chat.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no content returned from Gemini")
	}

	candidate := resp.Candidates[0]
	out := Message{Role: RoleAssistant}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, tools.Call{
				ID:        "gemini-" + uuid.NewString(),
				Name:      v.Name,
				Arguments: args,
			})
		}
	}
	out.Content = strings.TrimSpace(text.String())
	return &Response{Message: out, StopReason: candidate.FinishReason.String()}, nil
}

// toGeminiContents maps the conversation onto Gemini's user/model turns.
// Consecutive tool messages become one user turn of function responses.
func toGeminiContents(messages []Message) []*genai.Content {
	var out []*genai.Content
	var responses []genai.Part

	flush := func() {
		if len(responses) > 0 {
			out = append(out, &genai.Content{Role: "user", Parts: responses})
			responses = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			responses = append(responses, genai.FunctionResponse{
				Name:     msg.Name,
				Response: functionResponse(msg.Content, msg.IsError),
			})
		case RoleAssistant:
			flush()
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, &genai.Content{Role: "model", Parts: parts})
		default:
			flush()
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	flush()
	return out
}

// functionResponse wraps a tool result as the object Gemini requires; JSON
// object payloads are passed through as structured data.
func functionResponse(content string, isError bool) map[string]any {
	key := "content"
	if isError {
		key = "error"
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && !isError {
		return obj
	}
	return map[string]any{key: content}
}

func toGeminiDeclarations(defs []tools.Definition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGeminiSchema(d.Parameters()),
		})
	}
	return out
}

func toGeminiSchema(s map[string]interface{}) *genai.Schema {
	out := &genai.Schema{}
	t, _ := s["type"].(string)
	switch t {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	}
	out.Description, _ = s["description"].(string)
	out.Enum = stringList(s["enum"])
	out.Required = stringList(s["required"])

	if props, ok := s["properties"].(map[string]interface{}); ok && len(props) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]interface{}); ok {
				out.Properties[name] = toGeminiSchema(child)
			}
		}
	}
	if items, ok := s["items"].(map[string]interface{}); ok {
		out.Items = toGeminiSchema(items)
	}
	return out
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
