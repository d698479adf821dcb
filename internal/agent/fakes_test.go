package agent_test

import (
	"context"
	"errors"
	"sync"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

type fakeCatalog struct {
	defs []tools.Definition
	err  error
}

func (c *fakeCatalog) FetchTools(context.Context) ([]tools.Definition, error) {
	return c.defs, c.err
}

// fakeModel replays scripted responses and records what it was sent.
type fakeModel struct {
	mu        sync.Mutex
	responses []*agent.Response
	errs      []error
	calls     [][]agent.Message
	defs      [][]tools.Definition
}

func (m *fakeModel) Name() string { return "fake/test" }

func (m *fakeModel) Generate(_ context.Context, messages []agent.Message, defs []tools.Definition) (*agent.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.calls)
	m.calls = append(m.calls, append([]agent.Message(nil), messages...))
	m.defs = append(m.defs, defs)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, errors.New("fake model: no scripted response")
	}
	return m.responses[i], nil
}

type performFunc func(ctx context.Context, name string, args map[string]interface{}) tools.Result

func (f performFunc) Perform(ctx context.Context, name string, args map[string]interface{}) tools.Result {
	return f(ctx, name, args)
}

var weatherDefs = []tools.Definition{{
	Name:        "getWeather",
	Description: "Current weather",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"city": map[string]interface{}{"type": "string"}},
	},
}}

func weatherCall(id, city string) tools.Call {
	return tools.Call{ID: id, Name: "getWeather", Arguments: map[string]interface{}{"city": city}}
}
