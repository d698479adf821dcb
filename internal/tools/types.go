// Package tools defines the hub tool catalog types and the tagged result of a
// tool invocation, shared by the hub client and the agent.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Definition describes a remote function the model may call.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Parameters returns the input schema, or an empty object schema when the hub
// did not supply one. Providers reject a nil schema.
func (d Definition) Parameters() map[string]interface{} {
	if len(d.InputSchema) > 0 {
		return d.InputSchema
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// UnmarshalJSON accepts both the OpenAI function descriptor returned by the hub
// ({"type":"function","function":{...}}) and a flat {"name","description","parameters"} object.
func (d *Definition) UnmarshalJSON(data []byte) error {
	type fn struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
		InputSchema map[string]interface{} `json:"input_schema"`
	}
	var raw struct {
		fn
		Function *fn `json:"function"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f := raw.fn
	if raw.Function != nil {
		f = *raw.Function
	}
	if f.Name == "" {
		return fmt.Errorf("tool definition without name")
	}
	d.Name = f.Name
	d.Description = f.Description
	d.InputSchema = f.Parameters
	if d.InputSchema == nil {
		d.InputSchema = f.InputSchema
	}
	return nil
}

// ParseCatalog decodes a catalog body: a JSON array of definitions. Entries
// that fail to decode are logged and skipped so the rest can still be bound;
// a body that is not a JSON array is an error.
func ParseCatalog(data []byte) ([]Definition, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	defs := make([]Definition, 0, len(raw))
	for i, entry := range raw {
		var d Definition
		if err := json.Unmarshal(entry, &d); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping malformed tool definition")
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Names lists definition names in order.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// Call is a model-issued request to invoke a tool.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ErrorKind classifies a failed action.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindEncode    ErrorKind = "encode"
	KindDecode    ErrorKind = "decode"
)

// ActionError is the failure half of a Result.
type ActionError struct {
	Kind       ErrorKind
	Detail     string
	StatusCode int
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Result is the outcome of one tool call. Err == nil means success; on failure
// Payload still carries the error response body when the hub sent one.
type Result struct {
	CallID  string
	Name    string
	Payload string
	Err     *ActionError
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Content is the text handed back to the model for this result.
func (r Result) Content() string {
	if r.Err == nil || r.Payload != "" {
		return r.Payload
	}
	return "error: " + r.Err.Error()
}
