package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

// ErrNoTools is returned when tools are required but the catalog is unavailable.
var ErrNoTools = errors.New("tool catalog unavailable")

// Catalog supplies the tool definitions bound to the model.
type Catalog interface {
	FetchTools(ctx context.Context) ([]tools.Definition, error)
}

// Conversation runs the prompt → tools → answer exchange once per call to Run.
type Conversation struct {
	catalog  Catalog
	model    Model
	executor *Executor
	// requireTools aborts the run when the catalog cannot be fetched instead
	// of continuing with no tools bound.
	requireTools bool
}

func NewConversation(catalog Catalog, model Model, executor *Executor, requireTools bool) *Conversation {
	return &Conversation{
		catalog:      catalog,
		model:        model,
		executor:     executor,
		requireTools: requireTools,
	}
}

// Outcome is everything a run produced.
type Outcome struct {
	Prompt  string
	Answer  string
	Tools   []tools.Definition
	Calls   []tools.Call
	Results []tools.Result
	// Context is the message list of the final invocation.
	Context  []Message
	Duration time.Duration
}

// Failed counts the tool calls that did not succeed.
func (o *Outcome) Failed() int {
	n := 0
	for _, r := range o.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}

func (c *Conversation) Run(ctx context.Context, prompt string) (*Outcome, error) {
	start := time.Now()

	defs, err := c.Tools(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Prompt: prompt, Tools: defs}

	turns := []Message{{Role: RoleUser, Content: prompt}}
	first, err := c.model.Generate(ctx, turns, defs)
	if err != nil {
		return nil, fmt.Errorf("initial invocation: %w", err)
	}
	out.Calls = first.Message.ToolCalls

	log.Info().
		Str("model", c.model.Name()).
		Int("tool_calls", len(out.Calls)).
		Str("stop_reason", first.StopReason).
		Msg("initial invocation complete")

	out.Results = c.executor.ExecuteAll(ctx, out.Calls)

	turns = append(turns, first.Message)
	turns = append(turns, ToolMessages(out.Results)...)
	out.Context = turns

	final, err := c.model.Generate(ctx, turns, defs)
	if err != nil {
		return nil, fmt.Errorf("final invocation: %w", err)
	}
	if n := len(final.Message.ToolCalls); n > 0 {
		log.Warn().Int("tool_calls", n).Msg("final response requested more tools; not executed")
	}

	out.Answer = final.Message.Content
	out.Duration = time.Since(start)
	log.Info().
		Int("tool_calls", len(out.Calls)).
		Int("failed_calls", out.Failed()).
		Dur("duration", out.Duration).
		Msg("conversation complete")
	return out, nil
}

// Tools fetches the catalog. A fetch failure degrades to an empty, non-nil
// list unless tools are required.
func (c *Conversation) Tools(ctx context.Context) ([]tools.Definition, error) {
	defs, err := c.catalog.FetchTools(ctx)
	if err != nil {
		if c.requireTools {
			return nil, fmt.Errorf("%w: %v", ErrNoTools, err)
		}
		log.Error().Err(err).Msg("tool catalog fetch failed; continuing without tools")
		return []tools.Definition{}, nil
	}
	if defs == nil {
		defs = []tools.Definition{}
	}
	log.Info().Strs("tools", tools.Names(defs)).Msg("tools bound")
	return defs, nil
}

// ToolMessages wraps each result in a tool message carrying the originating
// call's identifier and tool name, in result order.
func ToolMessages(results []tools.Result) []Message {
	msgs := make([]Message, 0, len(results))
	for _, r := range results {
		content := r.Content()
		if content == "" {
			content = "ok"
		}
		if !r.OK() {
			log.Warn().
				Str("tool", r.Name).
				Str("call_id", r.CallID).
				Str("error", r.Err.Error()).
				Msg("tool call failed; returning error to model")
		}
		msgs = append(msgs, Message{
			Role:       RoleTool,
			Content:    content,
			ToolCallID: r.CallID,
			Name:       r.Name,
			IsError:    !r.OK(),
		})
	}
	return msgs
}
