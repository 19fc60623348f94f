package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// anthropicMessagesRequest is the Bedrock Anthropic Messages API request
// body shape; kept minimal to the fields this module sets.
type anthropicMessagesRequest struct {
	AnthropicVersion string                `json:"anthropic_version"`
	MaxTokens        int                   `json:"max_tokens"`
	System           string                `json:"system,omitempty"`
	Messages         []anthropicMessage    `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockClient calls a Bedrock-hosted model through InvokeModel, following
// the BedrockClient dependency shape used for self-correction prompts in the
// retrieval pack's nlq package.
type BedrockClient struct {
	runtime *bedrockruntime.Client
	modelID string
	logger  *slog.Logger
}

func NewBedrockClient(runtime *bedrockruntime.Client, modelID string, logger *slog.Logger) *BedrockClient {
	return &BedrockClient{runtime: runtime, modelID: modelID, logger: logger}
}

func (c *BedrockClient) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := anthropicMessagesRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           opts.SystemPrompt,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Error("bedrock invoke model failed", "model", c.modelID, "error", err)
		}
		return "", fmt.Errorf("bedrock invoke model: %w", err)
	}

	var resp anthropicMessagesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal bedrock response: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
