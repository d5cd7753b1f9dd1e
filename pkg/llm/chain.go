package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoProviders is returned by a Chain constructed without providers.
var ErrNoProviders = errors.New("llm: chain has no providers")

// Chain is a Provider that tries its members in order and returns the first
// successful generation. A member failure is logged and the next member is
// tried; only when every member fails does the call return an error, wrapping
// the last failure.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a fallback chain over providers, in priority order. A nil
// logger disables logging.
//
// Example:
//
//	primary, _ := openrouter.NewClient(&openrouter.Config{APIKey: key})
//	local, _ := ollama.NewClient(&ollama.Config{})
//	provider := llm.NewChain([]llm.Provider{primary, local}, logger)
func NewChain(providers []Provider, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, logger: logger}
}

// Generate tries each provider's Generate until one succeeds.
func (c *Chain) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	return c.try(ctx, func(p Provider) (string, error) {
		return p.Generate(ctx, prompt, opts...)
	})
}

// GenerateWithMessages tries each provider's GenerateWithMessages until one
// succeeds.
func (c *Chain) GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error) {
	return c.try(ctx, func(p Provider) (string, error) {
		return p.GenerateWithMessages(ctx, messages, opts...)
	})
}

func (c *Chain) try(ctx context.Context, generate func(Provider) (string, error)) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}
	var lastErr error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := generate(p)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("llm provider failed, trying next",
			zap.Int("provider_index", i),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("llm: all %d providers failed: %w", len(c.providers), lastErr)
}

// Close closes every member, returning the first error encountered.
func (c *Chain) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
