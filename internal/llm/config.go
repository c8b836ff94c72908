package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock", "none"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single Generate call including provider-level
	// retries. Default: 60s.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Any OpenAI-compatible endpoint.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-exp"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
	Referer string // Optional HTTP-Referer attribution header.
}

// RetryConfig configures provider-level retries of transient failures.
// Question batches have their own retry loop on top of this one.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// envBinding copies one environment variable into a Config field when the
// variable is set.
type envBinding struct {
	name string
	set  func(c *Config, v string)
}

var envBindings = []envBinding{
	{"ASSESSGEN_LLM_PROVIDER", func(c *Config, v string) { c.Provider = v }},
	{"ASSESSGEN_ANTHROPIC_API_KEY", func(c *Config, v string) { c.Anthropic.APIKey = v }},
	{"ASSESSGEN_ANTHROPIC_MODEL", func(c *Config, v string) { c.Anthropic.Model = v }},
	{"ASSESSGEN_OPENAI_API_KEY", func(c *Config, v string) { c.OpenAI.APIKey = v }},
	{"ASSESSGEN_OPENAI_MODEL", func(c *Config, v string) { c.OpenAI.Model = v }},
	{"ASSESSGEN_OPENAI_BASE_URL", func(c *Config, v string) { c.OpenAI.BaseURL = v }},
	{"ASSESSGEN_GEMINI_API_KEY", func(c *Config, v string) { c.Gemini.APIKey = v }},
	{"ASSESSGEN_GEMINI_MODEL", func(c *Config, v string) { c.Gemini.Model = v }},
	{"ASSESSGEN_OPENROUTER_API_KEY", func(c *Config, v string) { c.OpenRouter.APIKey = v }},
	{"ASSESSGEN_OPENROUTER_MODEL", func(c *Config, v string) { c.OpenRouter.Model = v }},
	{"ASSESSGEN_OPENROUTER_REFERER", func(c *Config, v string) { c.OpenRouter.Referer = v }},
	{"ASSESSGEN_LLM_TIMEOUT", func(c *Config, v string) {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}},
	{"ASSESSGEN_LLM_MAX_ATTEMPTS", func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}},
}

// ConfigFromEnv builds a Config from ASSESSGEN_* variables on top of
// DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	for _, b := range envBindings {
		if v := os.Getenv(b.name); v != "" {
			b.set(&cfg, v)
		}
	}
	return cfg
}

// ResolveConfig returns the explicit ASSESSGEN_* configuration when
// ASSESSGEN_LLM_PROVIDER is set, otherwise the result of DiscoverConfig.
// The boolean is false when no provider could be determined or the
// provider is "none".
func ResolveConfig() (Config, bool) {
	if os.Getenv("ASSESSGEN_LLM_PROVIDER") != "" {
		cfg := ConfigFromEnv()
		return cfg, cfg.Provider != "none"
	}
	return DiscoverConfig()
}

// vendorKeys lists the well-known API key variables in discovery order.
var vendorKeys = []struct {
	env      string
	provider string
	set      func(c *Config, key string)
}{
	{"GEMINI_API_KEY", "gemini", func(c *Config, k string) { c.Gemini.APIKey = k }},
	{"OPENAI_API_KEY", "openai", func(c *Config, k string) { c.OpenAI.APIKey = k }},
	{"ANTHROPIC_API_KEY", "anthropic", func(c *Config, k string) { c.Anthropic.APIKey = k }},
	{"OPENROUTER_API_KEY", "openrouter", func(c *Config, k string) { c.OpenRouter.APIKey = k }},
}

// DiscoverConfig returns a Config for the first vendor whose standard API
// key variable is set, or (Config{}, false).
func DiscoverConfig() (Config, bool) {
	for _, v := range vendorKeys {
		if k := os.Getenv(v.env); k != "" {
			cfg := DefaultConfig()
			cfg.Provider = v.provider
			v.set(&cfg, k)
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	case "mock", "none":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("ASSESSGEN_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}
