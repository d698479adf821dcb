package models

import "strings"

// AskRequest for POST /api/v1/ask
type AskRequest struct {
	Prompt  string `json:"prompt"`
	Timeout int    `json:"timeout"` // seconds
}

func (r *AskRequest) SetDefaults(defaultPrompt string) {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Prompt == "" {
		r.Prompt = defaultPrompt
	}
	if r.Timeout == 0 {
		r.Timeout = 120
	}
	if r.Timeout < 5 {
		r.Timeout = 5
	}
	if r.Timeout > 600 {
		r.Timeout = 600
	}
}
