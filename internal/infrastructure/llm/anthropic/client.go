package anthropic

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

const maxAnswerTokens = 1500

// Client adapts the Anthropic Messages API as a provider in the generation
// fallback chain.
type Client struct {
	client *anthropic.Client
	model  string
}

func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (c *Client) Name() string {
	return "anthropic/" + c.model
}

func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(user)},
		MaxTokens: maxAnswerTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	return firstText(resp)
}

func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    "Return only a valid JSON object. No markdown, no commentary.",
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens: maxAnswerTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	return firstText(resp)
}

func firstText(resp anthropic.MessagesResponse) (string, error) {
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return "", fmt.Errorf("anthropic messages: no text content returned")
	}
	return *resp.Content[0].Text, nil
}
