package agent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "refusal": null,
      "tool_calls": [
        {"id": "call_1", "type": "function", "function": {"name": "getWeather", "arguments": "{\"city\":\"Prague\"}"}},
        {"id": "call_2", "type": "function", "function": {"name": "getWeather", "arguments": "{\"city\":\"Kosice\"}"}}
      ]
    }
  }]
}`

const answerCompletion = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000001,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Sunny in both.", "refusal": null}}]
}`

func TestOpenAIToolRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
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
			w.Write([]byte(toolCallCompletion))
			return
		}
		w.Write([]byte(answerCompletion))
	}))
	defer srv.Close()
	sentBody := func(i int) map[string]interface{} {
		mu.Lock()
		defer mu.Unlock()
		return bodies[i]
	}

	m := agent.NewOpenAIModel("sk-test", "gpt-4o", srv.URL+"/v1/", 128)
	ctx := context.Background()
	msgs := []agent.Message{{Role: agent.RoleUser, Content: "What's the weather like in Prague and in Kosice?"}}

	first, err := m.Generate(ctx, msgs, weatherDefs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	calls := first.Message.ToolCalls
	if len(calls) != 2 || calls[0].ID != "call_1" || calls[1].Arguments["city"] != "Kosice" {
		t.Fatalf("tool calls = %+v", calls)
	}

	req := sentBody(0)
	if req["model"] != "gpt-4o" || req["max_tokens"] != float64(128) {
		t.Errorf("model/max_tokens = %v/%v", req["model"], req["max_tokens"])
	}
	toolsSent, _ := req["tools"].([]interface{})
	if len(toolsSent) != 1 {
		t.Fatalf("tools = %v", req["tools"])
	}
	fn := toolsSent[0].(map[string]interface{})["function"].(map[string]interface{})
	if fn["name"] != "getWeather" {
		t.Errorf("function = %v", fn)
	}

	msgs = append(msgs, first.Message)
	msgs = append(msgs,
		agent.Message{Role: agent.RoleTool, ToolCallID: "call_1", Name: "getWeather", Content: `{"temp":21}`},
		agent.Message{Role: agent.RoleTool, ToolCallID: "call_2", Name: "getWeather", Content: `{"error":"timeout"}`, IsError: true},
	)
	final, err := m.Generate(ctx, msgs, weatherDefs)
	if err != nil {
		t.Fatalf("Generate final: %v", err)
	}
	if final.Message.Content != "Sunny in both." || final.StopReason != "stop" {
		t.Errorf("final = %+v", final)
	}

	sent, _ := sentBody(1)["messages"].([]interface{})
	if len(sent) != 4 {
		t.Fatalf("final request has %d messages, want 4", len(sent))
	}
	assistant := sent[1].(map[string]interface{})
	if replayed, _ := assistant["tool_calls"].([]interface{}); len(replayed) != 2 {
		t.Errorf("assistant tool calls not replayed: %v", assistant)
	}
	for i, id := range []string{"call_1", "call_2"} {
		tm := sent[2+i].(map[string]interface{})
		if tm["role"] != "tool" || tm["tool_call_id"] != id {
			t.Errorf("tool message %d = %v", i, tm)
		}
	}
}

func TestNewModelErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := agent.NewModel(ctx, agent.ModelConfig{Provider: "openai"}); err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("missing key err = %v", err)
	}
	if _, err := agent.NewModel(ctx, agent.ModelConfig{Provider: "llama", APIKey: "x"}); err == nil {
		t.Error("expected unknown provider error")
	}

	m, err := agent.NewModel(ctx, agent.ModelConfig{Provider: "OpenAI", APIKey: "x", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if m.Name() != "openai/gpt-4o" {
		t.Errorf("Name() = %q", m.Name())
	}
}
