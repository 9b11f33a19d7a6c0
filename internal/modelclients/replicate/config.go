package replicate

import (
	"github.com/modelcouncil/council/pkg/registry"
)

// Config holds typed configuration for the Replicate model client.
type Config struct {
	APIKey            string
	BaseURL           string
	Temperature       float32
	TopP              float32
	RepetitionPenalty float32
	MaxTokens         int
	Seed              int
}

// DefaultConfig returns a Config with sensible defaults, matching the
// provider's own model defaults rather than this project's.
func DefaultConfig() Config {
	return Config{
		Temperature:       1.0,
		TopP:              1.0,
		RepetitionPenalty: 1.0,
		Seed:              9,
	}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	apiKey, err := registry.GetAPIKeyWithEnv(m, "MODEL_API_KEY", "replicate")
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = apiKey

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	cfg.Temperature = registry.GetFloat32(m, "temperature", cfg.Temperature)
	cfg.TopP = registry.GetFloat32(m, "top_p", cfg.TopP)
	cfg.RepetitionPenalty = registry.GetFloat32(m, "repetition_penalty", cfg.RepetitionPenalty)
	cfg.MaxTokens = registry.GetInt(m, "max_tokens", cfg.MaxTokens)
	cfg.Seed = registry.GetInt(m, "seed", cfg.Seed)

	return cfg, nil
}
