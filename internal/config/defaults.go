package config

import "time"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"

	DefaultRateLimitPerMinute = 60

	DefaultHubBaseURL     = "https://pod.superface.ai/api/hub"
	DefaultHubUserID      = "sflangchainexample|1234"
	DefaultHubTimeout     = 30 * time.Second
	DefaultCatalogTTL     = 5 * time.Minute
	DefaultCatalogEntries = 64

	DefaultProvider  = "openai"
	DefaultMaxTokens = 128

	DefaultAgentTimeout = 120 * time.Second

	DefaultMaxPromptLength = 2000

	DefaultPrompt = "What's the weather like in Prague and in Kosice?"
)

// DefaultModels maps a provider to the model used when none is configured.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-sonnet-4-6",
	"gemini":    "gemini-1.5-flash",
}

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
