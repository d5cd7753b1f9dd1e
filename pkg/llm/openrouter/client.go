// Package openrouter implements the llm.Provider interface against the
// OpenRouter chat completions API, which is OpenAI-compatible.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deepagent/selfloop-go/pkg/llm"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-4o-mini"
)

// Config configures an OpenRouter client.
type Config struct {
	// APIKey authenticates requests. When empty, the key is read from the
	// environment variable named by APIKeyEnv.
	APIKey string

	// APIKeyEnv names the environment variable holding the API key.
	// Defaults to "OPENROUTER_API_KEY".
	APIKeyEnv string

	// Model is the OpenRouter model slug. Defaults to "openai/gpt-4o-mini".
	Model string

	// BaseURL overrides the OpenRouter endpoint, mainly for tests.
	BaseURL string
}

// Client calls OpenRouter through the OpenAI-compatible chat API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates an OpenRouter client. It fails when no API key can be
// resolved from cfg or the environment.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		envName := cfg.APIKeyEnv
		if envName == "" {
			envName = "OPENROUTER_API_KEY"
		}
		apiKey = os.Getenv(envName)
	}
	if apiKey == "" {
		return nil, errors.New("openrouter: missing API key")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Generate produces text from a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateWithMessages produces text from a conversation history.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the underlying SDK holds no closable resources.
func (c *Client) Close() error {
	return nil
}
