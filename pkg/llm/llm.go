// Package llm defines the text-generation provider interface the agent layer
// invokes, along with message types and generation options shared by the
// concrete clients.
package llm

import "context"

// Provider is the interface all text-generation backends implement.
type Provider interface {
	// Generate produces text from a single user prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages produces text from a conversation history of
	// system, user and assistant messages.
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Message is one turn in a conversation.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateOptions holds resolved generation parameters.
type GenerateOptions struct {
	// Temperature controls randomness, 0.0 (deterministic) to 2.0.
	Temperature float64

	// MaxTokens caps the response length.
	MaxTokens int

	// TopP controls nucleus sampling, 0.0 to 1.0.
	TopP float64

	// Stop sequences end generation when emitted.
	Stop []string
}

// GenerateOption configures a single generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens caps the response length in tokens.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// WithStop sets the stop sequences.
func WithStop(stop ...string) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Stop = stop
	}
}

// ApplyGenerateOptions resolves opts over the defaults Temperature 0.7,
// MaxTokens 1000, TopP 1.0. Concrete clients call it at the top of each
// generation method.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
