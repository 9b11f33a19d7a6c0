package anthropic

import (
	"fmt"
	"time"

	"github.com/modelcouncil/council/pkg/registry"
)

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultAPIVersion  = "2023-06-01"
	defaultBaseURL     = "https://api.anthropic.com/v1"
	defaultTimeout     = 90 * time.Second
	// defaultBurstSize allows a council-sized burst of requests before the
	// token bucket starts throttling, when rate_limit is set.
	defaultBurstSize = 5.0
)

// Config holds typed configuration for the Anthropic model client.
type Config struct {
	APIKey      string
	BaseURL     string
	APIVersion  string
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int

	// RateLimit is the sustained request rate (requests per second) the
	// transport is throttled to. Zero disables transport-level limiting.
	RateLimit float64
	BurstSize float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		APIVersion:  defaultAPIVersion,
		BaseURL:     defaultBaseURL,
		BurstSize:   defaultBurstSize,
	}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MODEL_API_KEY", "anthropic")
	if err != nil {
		return cfg, fmt.Errorf("anthropic client: %w", err)
	}
	cfg.APIKey = apiKey

	cfg.BaseURL = registry.GetString(m, "base_url", cfg.BaseURL)
	cfg.APIVersion = registry.GetString(m, "api_version", cfg.APIVersion)
	cfg.Temperature = registry.GetFloat64(m, "temperature", cfg.Temperature)
	cfg.MaxTokens = registry.GetInt(m, "max_tokens", cfg.MaxTokens)
	cfg.TopP = registry.GetFloat64(m, "top_p", cfg.TopP)
	cfg.TopK = registry.GetInt(m, "top_k", cfg.TopK)
	cfg.RateLimit = registry.GetFloat64(m, "rate_limit", cfg.RateLimit)
	cfg.BurstSize = registry.GetFloat64(m, "burst_size", cfg.BurstSize)

	return cfg, nil
}
