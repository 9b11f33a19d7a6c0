// Package bedrock adapts the AWS Bedrock Runtime InvokeModel API to the
// modelclient.ModelClient interface, supporting the same three model
// families (Anthropic Claude, Amazon Titan, Meta Llama) the teacher's
// Bedrock generator handled, keyed off the modelID's prefix.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/modelcouncil/council/pkg/clienterrors"
	"github.com/modelcouncil/council/pkg/modelclient"
	"github.com/modelcouncil/council/pkg/registry"
)

func init() {
	modelclient.Register("bedrock.Runtime", New)
}

// Client is a single-turn Bedrock InvokeModel client. Unlike the teacher's
// generator it never owns conversation history: systemPrompt and userPrompt
// arrive fully formed from the orchestrator on every call.
type Client struct {
	client      *bedrockruntime.Client
	temperature float64
	maxTokens   int
	topP        float64
}

// New constructs a Bedrock client from registry.Config.
func New(m registry.Config) (modelclient.ModelClient, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, fmt.Errorf("bedrock client: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock client: load AWS config: %w", err)
	}

	var opts []func(*bedrockruntime.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Client{
		client:      bedrockruntime.NewFromConfig(awsCfg, opts...),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topP:        cfg.TopP,
	}, nil
}

// Complete implements modelclient.ModelClient.
func (c *Client) Complete(ctx context.Context, modelID, systemPrompt, userPrompt string) (string, error) {
	body, err := c.buildRequest(modelID, systemPrompt, userPrompt)
	if err != nil {
		return "", clienterrors.PermanentErr("bedrock", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", classify(ctx, modelID, err)
	}

	text, err := c.parseResponse(modelID, out.Body)
	if err != nil {
		return "", clienterrors.PermanentErr("bedrock", fmt.Errorf("parse response: %w", err))
	}
	return text, nil
}

// Name implements modelclient.ModelClient.
func (c *Client) Name() string {
	return "bedrock.Runtime"
}

func (c *Client) buildRequest(modelID, systemPrompt, userPrompt string) ([]byte, error) {
	switch {
	case strings.HasPrefix(modelID, "anthropic.claude"):
		return c.buildClaudeRequest(systemPrompt, userPrompt)
	case strings.HasPrefix(modelID, "amazon.titan"):
		return c.buildTitanRequest(systemPrompt, userPrompt)
	case strings.HasPrefix(modelID, "meta.llama"):
		return c.buildLlamaRequest(systemPrompt, userPrompt)
	default:
		return nil, fmt.Errorf("bedrock: unsupported model family: %s", modelID)
	}
}

func (c *Client) parseResponse(modelID string, body []byte) (string, error) {
	switch {
	case strings.HasPrefix(modelID, "anthropic.claude"):
		return parseClaudeResponse(body)
	case strings.HasPrefix(modelID, "amazon.titan"):
		return parseTitanResponse(body)
	case strings.HasPrefix(modelID, "meta.llama"):
		return parseLlamaResponse(body)
	default:
		return "", fmt.Errorf("bedrock: unsupported model family: %s", modelID)
	}
}

func (c *Client) buildClaudeRequest(systemPrompt, userPrompt string) ([]byte, error) {
	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        c.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
		"temperature": c.temperature,
	}
	if systemPrompt != "" {
		req["system"] = systemPrompt
	}
	if c.topP > 0 {
		req["top_p"] = c.topP
	}
	return json.Marshal(req)
}

func parseClaudeResponse(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func (c *Client) buildTitanRequest(systemPrompt, userPrompt string) ([]byte, error) {
	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}
	genConfig := map[string]any{
		"maxTokenCount": c.maxTokens,
		"temperature":   c.temperature,
	}
	if c.topP > 0 {
		genConfig["topP"] = c.topP
	}
	req := map[string]any{
		"inputText":            prompt,
		"textGenerationConfig": genConfig,
	}
	return json.Marshal(req)
}

func parseTitanResponse(body []byte) (string, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no results in Titan response")
	}
	return resp.Results[0].OutputText, nil
}

func (c *Client) buildLlamaRequest(systemPrompt, userPrompt string) ([]byte, error) {
	var prompt string
	if systemPrompt != "" {
		prompt = fmt.Sprintf("<s>[INST] <<SYS>>\n%s\n<</SYS>>\n\n%s [/INST]", systemPrompt, userPrompt)
	} else {
		prompt = fmt.Sprintf("<s>[INST] %s [/INST]", userPrompt)
	}

	req := map[string]any{
		"prompt":      prompt,
		"max_gen_len": c.maxTokens,
		"temperature": c.temperature,
	}
	if c.topP > 0 {
		req["top_p"] = c.topP
	}
	return json.Marshal(req)
}

func parseLlamaResponse(body []byte) (string, error) {
	var resp struct {
		Generation string `json:"generation"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.Generation, nil
}

// classify maps a Bedrock/AWS SDK error into a clienterrors.Kind by matching
// the AWS exception name in the error string, the same approach as the
// teacher's handleError for this provider (the SDK does not expose a stable
// typed exception for every service in a client-friendly way across model
// families).
func classify(ctx context.Context, modelID string, err error) error {
	if ctx.Err() != nil {
		return clienterrors.TimeoutErr("bedrock", ctx.Err())
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "ThrottlingException"), strings.Contains(errStr, "TooManyRequestsException"),
		strings.Contains(errStr, "ServiceUnavailableException"), strings.Contains(errStr, "InternalServerException"):
		return clienterrors.TransientErr("bedrock", err)
	case strings.Contains(errStr, "AccessDeniedException"), strings.Contains(errStr, "UnauthorizedException"),
		strings.Contains(errStr, "ValidationException"), strings.Contains(errStr, "ResourceNotFoundException"):
		return clienterrors.PermanentErr("bedrock", err)
	default:
		return clienterrors.TransientErr("bedrock", fmt.Errorf("model %s: %w", modelID, err))
	}
}
