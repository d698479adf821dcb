// Package agent binds hub tools to a chat-completion model and runs the
// two-phase conversation: invoke, execute the requested tools, re-invoke.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

var (
	ErrUnknownProvider = errors.New("unknown model provider")
	ErrNoAPIKey        = errors.New("model provider API key not set")
)

// Role is the originator of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one provider-agnostic conversation turn.
type Message struct {
	Role    Role
	Content string
	// ToolCalls are the calls requested by an assistant message.
	ToolCalls []tools.Call
	// ToolCallID and Name correlate a tool message with its call.
	ToolCallID string
	Name       string
	IsError    bool

	// native is the provider's own response object, replayed verbatim when the
	// message is sent back to the same provider.
	native interface{}
}

// Response is the result of one model invocation.
type Response struct {
	Message    Message
	StopReason string
}

// Model is a stateless chat-completion round trip.
type Model interface {
	// Name identifies provider and model, e.g. "openai/gpt-4o".
	Name() string
	Generate(ctx context.Context, messages []Message, defs []tools.Definition) (*Response, error)
}

// ModelConfig selects and configures a provider.
type ModelConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// NewModel builds the Model for cfg.Provider.
func NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "anthropic":
		return NewAnthropicModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "gemini":
		return NewGeminiModel(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
