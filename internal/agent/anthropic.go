package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

// AnthropicModel wraps the Anthropic Messages API or a compatible provider.
type AnthropicModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

var _ Model = (*AnthropicModel)(nil)

func NewAnthropicModel(apiKey, model, baseURL string, maxTokens int) *AnthropicModel {
	if model == "" {
		model = "claude-sonnet-4-6"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (a *AnthropicModel) Name() string { return "anthropic/" + a.model }

func (a *AnthropicModel) Generate(ctx context.Context, messages []Message, defs []tools.Definition) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(a.maxTokens)),
		Messages:  anthropic.F(toAnthropicMessages(messages)),
	}
	if len(defs) > 0 {
		params.Tools = anthropic.F(toAnthropicTools(defs))
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	out := Message{Role: RoleAssistant, native: resp}
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			out.Content += b.Text
		case anthropic.ToolUseBlock:
			input := map[string]interface{}{}
			if err := json.Unmarshal(b.Input, &input); err != nil {
				log.Warn().Err(err).Str("tool", b.Name).Msg("failed to parse tool input")
				input = map[string]interface{}{}
			}
			out.ToolCalls = append(out.ToolCalls, tools.Call{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: input,
			})
		}
	}
	return &Response{Message: out, StopReason: string(resp.StopReason)}, nil
}

// toAnthropicMessages folds consecutive tool messages into the single user
// message of tool_result blocks the API expects.
func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		case RoleAssistant:
			flush()
			if native, ok := msg.native.(*anthropic.Message); ok {
				out = append(out, native.ToParam())
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flush()
	return out
}

func toAnthropicTools(defs []tools.Definition) []anthropic.ToolUnionUnionParam {
	out := make([]anthropic.ToolUnionUnionParam, len(defs))
	for i, d := range defs {
		params := d.Parameters()
		props, ok := params["properties"]
		if !ok || props == nil {
			props = map[string]interface{}{}
		}
		schema := map[string]interface{}{
			"type":       "object",
			"properties": props,
		}
		if required, ok := params["required"]; ok {
			schema["required"] = required
		}
		out[i] = anthropic.ToolParam{
			Name:        anthropic.String(d.Name),
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.F[interface{}](schema),
		}
	}
	return out
}
