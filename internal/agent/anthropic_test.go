package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
)

const toolUseMessage = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-6",
  "content": [
    {"type": "text", "text": "Checking."},
    {"type": "tool_use", "id": "toolu_1", "name": "getWeather", "input": {"city": "Prague"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

const textMessage = `{
  "id": "msg_2",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-6",
  "content": [{"type": "text", "text": "21 degrees in Prague."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 6}
}`

func TestAnthropicToolRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, body)
		n := len(bodies)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(toolUseMessage))
			return
		}
		w.Write([]byte(textMessage))
	}))
	defer srv.Close()
	sentBody := func(i int) map[string]interface{} {
		mu.Lock()
		defer mu.Unlock()
		return bodies[i]
	}

	m := agent.NewAnthropicModel("ak-test", "", srv.URL+"/", 128)
	if m.Name() != "anthropic/claude-sonnet-4-6" {
		t.Errorf("Name() = %q", m.Name())
	}
	ctx := context.Background()
	msgs := []agent.Message{{Role: agent.RoleUser, Content: "Weather in Prague?"}}

	first, err := m.Generate(ctx, msgs, weatherDefs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.Message.Content != "Checking." || first.StopReason != "tool_use" {
		t.Errorf("first = %+v", first)
	}
	if len(first.Message.ToolCalls) != 1 || first.Message.ToolCalls[0].ID != "toolu_1" || first.Message.ToolCalls[0].Arguments["city"] != "Prague" {
		t.Fatalf("tool calls = %+v", first.Message.ToolCalls)
	}
	if sentBody(0)["max_tokens"] != float64(128) {
		t.Errorf("max_tokens = %v", sentBody(0)["max_tokens"])
	}

	msgs = append(msgs, first.Message, agent.Message{
		Role: agent.RoleTool, ToolCallID: "toolu_1", Name: "getWeather", Content: `{"temp":21}`,
	})
	final, err := m.Generate(ctx, msgs, weatherDefs)
	if err != nil {
		t.Fatalf("Generate final: %v", err)
	}
	if final.Message.Content != "21 degrees in Prague." {
		t.Errorf("final content = %q", final.Message.Content)
	}

	sent, _ := sentBody(1)["messages"].([]interface{})
	if len(sent) != 3 {
		t.Fatalf("final request has %d messages, want 3", len(sent))
	}
	last := sent[2].(map[string]interface{})
	blocks, _ := last["content"].([]interface{})
	if last["role"] != "user" || len(blocks) != 1 {
		t.Fatalf("tool result message = %v", last)
	}
	block := blocks[0].(map[string]interface{})
	if block["type"] != "tool_result" || block["tool_use_id"] != "toolu_1" {
		t.Errorf("tool result block = %v", block)
	}
}
