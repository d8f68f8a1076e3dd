package universities

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient talks to any OpenAI-compatible chat completions endpoint,
// Groq in production.
type ChatClient struct {
	client *openai.Client
	model  string
}

// NewChatClient returns nil when apiKey is empty.
func NewChatClient(apiKey, baseURL, model string) *ChatClient {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "llama3-8b-8192"
	}
	return &ChatClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *ChatClient) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
