package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/martyndavies/hubapi-example-langchain/internal/tools"
)

// Performer executes a single tool call. Failures are reported in the Result.
type Performer interface {
	Perform(ctx context.Context, name string, args map[string]interface{}) tools.Result
}

// Executor runs the tool calls of one model response as a task group.
type Executor struct {
	performer Performer
	limit     int
}

// NewExecutor returns an Executor running at most limit calls at once;
// limit <= 0 means unbounded.
func NewExecutor(p Performer, limit int) *Executor {
	return &Executor{performer: p, limit: limit}
}

// ExecuteAll launches every call, waits for all of them and returns their
// results in call order. A failed call does not cancel the others.
func (e *Executor) ExecuteAll(ctx context.Context, calls []tools.Call) []tools.Result {
	results := make([]tools.Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, call := range calls {
		g.Go(func() error {
			res := e.performer.Perform(ctx, call.Name, call.Arguments)
			res.CallID = call.ID
			res.Name = call.Name
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
