package openai

import (
	"fmt"

	"github.com/modelcouncil/council/pkg/registry"
)

// Config holds typed configuration for the OpenAI model client.
type Config struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Temperature: 0.7}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MODEL_API_KEY", "openai")
	if err != nil {
		return cfg, fmt.Errorf("openai client: %w", err)
	}
	cfg.APIKey = apiKey

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	cfg.Temperature = registry.GetFloat32(m, "temperature", cfg.Temperature)
	cfg.MaxTokens = registry.GetInt(m, "max_tokens", cfg.MaxTokens)
	cfg.TopP = registry.GetFloat32(m, "top_p", cfg.TopP)

	return cfg, nil
}
