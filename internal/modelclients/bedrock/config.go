package bedrock

import (
	"github.com/modelcouncil/council/pkg/registry"
)

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
)

// Config holds typed configuration for the Bedrock model client.
type Config struct {
	Region      string
	Endpoint    string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Temperature: defaultTemperature, MaxTokens: defaultMaxTokens}
}

// ConfigFromMap parses a registry.Config map into a typed Config. Bedrock
// authenticates via the AWS default credential chain, not an api_key field,
// matching the teacher's Bedrock generator.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	region, err := registry.RequireString(m, "region")
	if err != nil {
		return cfg, err
	}
	cfg.Region = region

	cfg.Endpoint = registry.GetString(m, "endpoint", "")
	cfg.Temperature = registry.GetFloat64(m, "temperature", cfg.Temperature)
	cfg.MaxTokens = registry.GetInt(m, "max_tokens", cfg.MaxTokens)
	cfg.TopP = registry.GetFloat64(m, "top_p", 0)

	return cfg, nil
}
