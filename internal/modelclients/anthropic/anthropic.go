// Package anthropic adapts the Anthropic Messages API to the
// modelclient.ModelClient interface, using a direct net/http client the same
// way the teacher's internal/generators/anthropic package talks to the API
// without a vendored SDK.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/ratelimit"
	"github.com/modelcouncil/council/pkg/registry"
)

func init() {
	modelclient.Register("anthropic.Messages", New)
}

// Client is a single-turn Anthropic Messages API client. httpClient is an
// HTTPDoer rather than a bare *http.Client so the transport can be wrapped
// with token-bucket rate limiting when the adapter's rate_limit config is
// set.
type Client struct {
	httpClient  ratelimit.HTTPDoer
	baseURL     string
	apiKey      string
	apiVersion  string
	temperature float64
	maxTokens   int
	topP        float64
	topK        int
}

// New constructs an Anthropic client from registry.Config.
func New(m registry.Config) (modelclient.ModelClient, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}

	var httpClient ratelimit.HTTPDoer = &http.Client{Timeout: defaultTimeout}
	if cfg.RateLimit > 0 {
		limiter := ratelimit.NewLimiter(cfg.BurstSize, cfg.RateLimit)
		httpClient = ratelimit.NewRateLimitedHTTPClient(httpClient, limiter)
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		apiVersion:  cfg.APIVersion,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topP:        cfg.TopP,
		topK:        cfg.TopK,
	}, nil
}

type messageRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []messageTurn `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	TopK        int           `json:"top_k,omitempty"`
}

type messageTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiErrorBody  `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete implements modelclient.ModelClient.
func (c *Client) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	reqBody := messageRequest{
		Model:       modelID,
		MaxTokens:   c.maxTokens,
		System:      systemPrompt,
		Messages:    []messageTurn{{Role: "user", Content: userPrompt}},
		Temperature: c.temperature,
		TopP:        c.topP,
		TopK:        c.topK,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", clienterrors.PermanentErr("anthropic", fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", clienterrors.PermanentErr("anthropic", fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", clienterrors.TimeoutErr("anthropic", ctx.Err())
		}
		return "", clienterrors.TransientErr("anthropic", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", clienterrors.TransientErr("anthropic", fmt.Errorf("read response: %w", err))
	}

	var parsed messageResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr != nil {
			return "", classifyStatus(ctx, resp.StatusCode, nil)
		}
		return "", classifyStatus(ctx, resp.StatusCode, &parsed)
	}
	if decodeErr != nil {
		return "", clienterrors.PermanentErr("anthropic", fmt.Errorf("decode response: %w", decodeErr))
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", clienterrors.PermanentErr("anthropic", errNoTextBlock)
}

// Name implements modelclient.ModelClient.
func (c *Client) Name() string {
	return "anthropic.Messages"
}

var errNoTextBlock = fmt.Errorf("anthropic: response contained no text content block")

// classifyStatus maps an HTTP status code (and, where present, the API's
// error body) into a clienterrors.Kind, mirroring the teacher's handleError
// switch on status code for the same provider.
func classifyStatus(ctx context.Context, status int, body *messageResponse) error {
	msg := "anthropic: unexpected status " + http.StatusText(status)
	if body != nil && body.Error != nil && body.Error.Message != "" {
		msg = fmt.Sprintf("anthropic: %s: %s", body.Error.Type, body.Error.Message)
	}
	err := fmt.Errorf("%s", msg)

	if ctx.Err() != nil {
		return clienterrors.TimeoutErr("anthropic", ctx.Err())
	}

	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return clienterrors.TransientErr("anthropic", err)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return clienterrors.PermanentErr("anthropic", err)
	default:
		return clienterrors.PermanentErr("anthropic", err)
	}
}
