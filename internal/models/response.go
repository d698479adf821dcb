package models

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ToolInfo describes one hub tool.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolsResponse is returned by GET /api/v1/tools
type ToolsResponse struct {
	Status string     `json:"status"`
	Count  int        `json:"count"`
	Tools  []ToolInfo `json:"tools"`
}

// ToolCallInfo reports one executed tool call.
type ToolCallInfo struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    string                 `json:"result"`
	Error     *string                `json:"error,omitempty"`
}

// AskResponse is returned by POST /api/v1/ask
type AskResponse struct {
	Status        string                 `json:"status"`
	Prompt        string                 `json:"prompt"`
	Answer        string                 `json:"answer"`
	ToolCalls     []ToolCallInfo         `json:"tool_calls"`
	AgentMetadata map[string]interface{} `json:"agent_metadata"`
}
