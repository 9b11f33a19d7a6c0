// Package replicate adapts the Replicate prediction API to the
// modelclient.ModelClient interface. Model identifiers are Replicate's own
// "owner/model-name" or "owner/model-name:version" strings, passed straight
// through as modelID.
package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/registry"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	modelclient.Register("replicate.Prediction", New)
}

// Client is a single-turn Replicate prediction client.
type Client struct {
	client            *replicatego.Client
	temperature       float32
	topP              float32
	repetitionPenalty float32
	maxTokens         int
	seed              int
}

// New constructs a Replicate client from registry.Config.
func New(m registry.Config) (modelclient.ModelClient, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}

	opts := []replicatego.ClientOption{replicatego.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate client: %w", err)
	}

	return &Client{
		client:            client,
		temperature:       cfg.Temperature,
		topP:              cfg.TopP,
		repetitionPenalty: cfg.RepetitionPenalty,
		maxTokens:         cfg.MaxTokens,
		seed:              cfg.Seed,
	}, nil
}

// Complete implements modelclient.ModelClient.
func (c *Client) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	input := replicatego.PredictionInput{
		"prompt":             userPrompt,
		"temperature":        float64(c.temperature),
		"top_p":              float64(c.topP),
		"repetition_penalty": float64(c.repetitionPenalty),
		"seed":               c.seed,
	}
	if systemPrompt != "" {
		input["system_prompt"] = systemPrompt
	}
	if c.maxTokens > 0 {
		input["max_length"] = c.maxTokens
	}

	output, err := c.client.Run(ctx, modelID, input, nil)
	if err != nil {
		return "", classify(ctx, err)
	}
	return extractText(output), nil
}

// Name implements modelclient.ModelClient.
func (c *Client) Name() string {
	return "replicate.Prediction"
}

// extractText converts Replicate prediction output to a string. Output can
// be a plain string, a []string of streamed tokens, or a []any of mixed
// elements depending on the model's output schema.
func extractText(output replicatego.PredictionOutput) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", output)
	}
}

// classify maps a Replicate API error into a clienterrors.Kind.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return clienterrors.TimeoutErr("replicate", ctx.Err())
	}

	var apiErr *replicatego.APIError
	if e, ok := err.(*replicatego.APIError); ok {
		apiErr = e
	}
	if apiErr == nil {
		return clienterrors.TransientErr("replicate", err)
	}

	switch apiErr.Status {
	case 429, 500, 502, 503, 504:
		return clienterrors.TransientErr("replicate", err)
	case 400, 401, 403, 404, 422:
		return clienterrors.PermanentErr("replicate", err)
	default:
		return clienterrors.PermanentErr("replicate", err)
	}
}
