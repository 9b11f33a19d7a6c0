// Package openai adapts the OpenAI chat completions API to the
// modelclient.ModelClient interface. Every council member, judge, the
// Chairman, or the adjudicator may be backed by this adapter by naming an
// OpenAI model id in CouncilConfig.
package openai

import (
	"context"

	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	modelclient.Register("openai.Chat", New)
}

// Client wraps the OpenAI chat completions API as a single-call ModelClient.
// Unlike the teacher's generator, it never handles the completions-API
// fallback or the N-completions parameter: deliberation only ever needs one
// response per call.
type Client struct {
	client      *goopenai.Client
	temperature float32
	maxTokens   int
	topP        float32
}

// New constructs an OpenAI client from registry.Config.
func New(m registry.Config) (modelclient.ModelClient, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:      goopenai.NewClientWithConfig(clientCfg),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topP:        cfg.TopP,
	}, nil
}

// Complete implements modelclient.ModelClient.
func (c *Client) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: modelID,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		N: 1,
	}
	if c.temperature != 0 {
		req.Temperature = c.temperature
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}
	if c.topP != 0 {
		req.TopP = c.topP
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", clienterrors.PermanentErr("openai", errEmptyChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

// Name implements modelclient.ModelClient.
func (c *Client) Name() string {
	return "openai.Chat"
}

var errEmptyChoices = errNoChoices{}

type errNoChoices struct{}

func (errNoChoices) Error() string { return "openai: response contained no choices" }

// classify maps an OpenAI SDK error into clienterrors.Kind, the same way the
// teacher's openaicompat.WrapError maps HTTP status codes, but returning a
// ClassifiedError instead of a prefixed string so StageRunner can branch on
// kind without parsing messages.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return clienterrors.TimeoutErr("openai", ctx.Err())
	}

	var apiErr *goopenai.APIError
	if e, ok := err.(*goopenai.APIError); ok {
		apiErr = e
	}
	if apiErr == nil {
		return clienterrors.TransientErr("openai", err)
	}

	switch apiErr.HTTPStatusCode {
	case 429, 500, 502, 503, 504:
		return clienterrors.TransientErr("openai", err)
	case 400, 401, 403, 404:
		return clienterrors.PermanentErr("openai", err)
	default:
		return clienterrors.PermanentErr("openai", err)
	}
}
