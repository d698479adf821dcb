package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host        string `json:"host" yaml:"host" env:"HUBAGENT_HOST"`
	Port        int    `json:"port" yaml:"port" env:"HUBAGENT_PORT"`
	Environment string `json:"environment" yaml:"environment" env:"HUBAGENT_ENV"`
	APIPrefix   string `json:"api_prefix" yaml:"api_prefix" env:"HUBAGENT_API_PREFIX"`
	LogLevel    string `json:"log_level" yaml:"log_level" env:"HUBAGENT_LOG_LEVEL"`
	LogFormat   string `json:"log_format" yaml:"log_format" env:"HUBAGENT_LOG_FORMAT"`

	// CORS
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" env:"HUBAGENT_CORS_ORIGINS"`

	// Auth
	APIKeyHeader string   `json:"api_key_header" yaml:"api_key_header" env:"HUBAGENT_API_KEY_HEADER"`
	APIKeys      []string `json:"api_keys" yaml:"api_keys" env:"HUBAGENT_API_KEYS"`
	EnableAuth   bool     `json:"enable_auth" yaml:"enable_auth" env:"HUBAGENT_ENABLE_AUTH"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" env:"HUBAGENT_RATE_LIMIT_PER_MINUTE"`

	// Hub
	HubBaseURL    string        `json:"hub_base_url" yaml:"hub_base_url" env:"SUPERFACE_BASE_URL"`
	HubAuthToken  string        `json:"hub_auth_token" yaml:"hub_auth_token" env:"SUPERFACE_AUTH_TOKEN"`
	HubUserID     string        `json:"hub_user_id" yaml:"hub_user_id" env:"SUPERFACE_USER_ID"`
	HubTimeout    time.Duration `json:"hub_timeout" yaml:"hub_timeout" env:"HUBAGENT_HUB_TIMEOUT"`
	HubRateLimit  float64       `json:"hub_rate_limit" yaml:"hub_rate_limit" env:"HUBAGENT_HUB_RATE_LIMIT"` // requests per second, 0 = unlimited
	RequireTools  bool          `json:"require_tools" yaml:"require_tools" env:"HUBAGENT_REQUIRE_TOOLS"`
	MaxParallel   int           `json:"max_parallel_tools" yaml:"max_parallel_tools" env:"HUBAGENT_MAX_PARALLEL_TOOLS"` // 0 = unbounded
	CatalogTTL    time.Duration `json:"catalog_ttl" yaml:"catalog_ttl" env:"HUBAGENT_CATALOG_TTL"`
	CatalogMaxLen int           `json:"catalog_max_entries" yaml:"catalog_max_entries" env:"HUBAGENT_CATALOG_MAX_ENTRIES"`
	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr" env:"REDIS_ADDR"`

	// AI / LLM
	Provider         string        `json:"provider" yaml:"provider" env:"HUBAGENT_PROVIDER"`
	Model            string        `json:"model" yaml:"model" env:"HUBAGENT_MODEL"`
	MaxTokens        int           `json:"max_tokens" yaml:"max_tokens" env:"HUBAGENT_MAX_TOKENS"`
	OpenAIAPIKey     string        `json:"openai_api_key" yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `json:"openai_base_url" yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string        `json:"anthropic_api_key" yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `json:"anthropic_base_url" yaml:"anthropic_base_url" env:"ANTHROPIC_BASE_URL"`
	GeminiAPIKey     string        `json:"gemini_api_key" yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	AgentTimeout     time.Duration `json:"agent_timeout" yaml:"agent_timeout" env:"HUBAGENT_AGENT_TIMEOUT"`

	// Prompt
	Prompt          string `json:"prompt" yaml:"prompt" env:"HUBAGENT_PROMPT"`
	MaxPromptLength int    `json:"max_prompt_length" yaml:"max_prompt_length" env:"HUBAGENT_MAX_PROMPT_LENGTH"`
	EnableAudit     bool   `json:"enable_audit_logging" yaml:"enable_audit_logging" env:"HUBAGENT_ENABLE_AUDIT_LOGGING"`
}

// Default returns a Config populated with the built-in defaults only.
func Default() *Config {
	return &Config{
		Host:               DefaultHost,
		Port:               DefaultPort,
		Environment:        DefaultEnvironment,
		APIPrefix:          DefaultAPIPrefix,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		CORSOrigins:        DefaultCORSOrigins,
		APIKeyHeader:       "X-API-Key",
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		HubBaseURL:         DefaultHubBaseURL,
		HubUserID:          DefaultHubUserID,
		HubTimeout:         DefaultHubTimeout,
		CatalogTTL:         DefaultCatalogTTL,
		CatalogMaxLen:      DefaultCatalogEntries,
		Provider:           DefaultProvider,
		MaxTokens:          DefaultMaxTokens,
		AgentTimeout:       DefaultAgentTimeout,
		Prompt:             DefaultPrompt,
		MaxPromptLength:    DefaultMaxPromptLength,
		EnableAudit:        true,
	}
}

// Load builds the configuration from defaults, an optional config file
// (HUBAGENT_CONFIG, JSON or YAML), a .env file and the process environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(getEnv("HUBAGENT_CONFIG", ""))
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}
	cfg.HubBaseURL = strings.TrimRight(cfg.HubBaseURL, "/")

	return cfg, nil
}

// duration decodes a JSON string like "5s" or an integer count of nanoseconds.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = duration(parsed)
	case float64:
		*d = duration(time.Duration(x))
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// UnmarshalJSON decodes duration fields from strings as well as nanoseconds,
// matching the YAML form. Fields absent from the input keep their values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		HubTimeout   duration `json:"hub_timeout"`
		CatalogTTL   duration `json:"catalog_ttl"`
		AgentTimeout duration `json:"agent_timeout"`
	}{
		plain:        (*plain)(c),
		HubTimeout:   duration(c.HubTimeout),
		CatalogTTL:   duration(c.CatalogTTL),
		AgentTimeout: duration(c.AgentTimeout),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.HubTimeout = time.Duration(aux.HubTimeout)
	c.CatalogTTL = time.Duration(aux.CatalogTTL)
	c.AgentTimeout = time.Duration(aux.AgentTimeout)
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// APIKey returns the credential for the configured model provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// BaseURL returns the endpoint override for the configured provider, if any.
func (c *Config) BaseURL() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicBaseURL
	case "openai":
		return c.OpenAIBaseURL
	}
	return ""
}

// Validate reports the first problem that would prevent a run.
func (c *Config) Validate() error {
	if _, ok := DefaultModels[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.APIKey() == "" {
		return fmt.Errorf("no API key configured for provider %q", c.Provider)
	}
	if c.HubBaseURL == "" {
		return errors.New("hub base url is empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.HubRateLimit < 0 {
		return fmt.Errorf("hub_rate_limit must not be negative, got %v", c.HubRateLimit)
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel_tools must not be negative, got %d", c.MaxParallel)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
