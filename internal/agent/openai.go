package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

// OpenAIModel invokes the OpenAI chat completions API.
type OpenAIModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

var _ Model = (*OpenAIModel)(nil)

// NewOpenAIModel creates a client for model. baseURL overrides the endpoint
// for OpenAI-compatible providers.
func NewOpenAIModel(apiKey, model, baseURL string, maxTokens int) *OpenAIModel {
	if model == "" {
		model = "gpt-4o"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIModel{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (m *OpenAIModel) Name() string { return "openai/" + m.model }

func (m *OpenAIModel) Generate(ctx context.Context, messages []Message, defs []tools.Definition) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: toOpenAIMessages(messages),
	}
	if m.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(m.maxTokens))
	}
	if len(defs) > 0 {
		params.Tools = toOpenAITools(defs)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	choice := resp.Choices[0]
	msg := choice.Message
	out := Message{Role: RoleAssistant, Content: msg.Content, native: msg}
	for _, tc := range msg.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("parse arguments for %s: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, tools.Call{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return &Response{Message: out, StopReason: string(choice.FinishReason)}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case RoleAssistant:
			if native, ok := msg.native.(openai.ChatCompletionMessage); ok {
				out = append(out, native.ToParam())
				continue
			}
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(defs []tools.Definition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  openai.FunctionParameters(d.Parameters()),
		}))
	}
	return out
}
