// Package llm assembles language-model provider adapters into an ordered
// fallback chain.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ntria/tax-assistant/internal/core/domain"
	"github.com/ntria/tax-assistant/internal/core/ports"
)

// Chain tries each provider in order until one answers. A provider failure
// (error, timeout, quota) moves on to the next; only when every provider has
// failed does the chain give up, with ErrGenerationUnavailable. Request
// cancellation stops the iteration immediately.
type Chain struct {
	providers []ports.TextGenerator
}

func NewChain(providers ...ports.TextGenerator) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("generation chain needs at least one provider")
	}
	return &Chain{providers: providers}, nil
}

func (c *Chain) Generate(ctx context.Context, system, user string) (domain.Generation, error) {
	return c.call(ctx, func(provider ports.TextGenerator) (string, error) {
		return provider.Generate(ctx, system, user)
	})
}

func (c *Chain) GenerateJSON(ctx context.Context, prompt string) (domain.Generation, error) {
	return c.call(ctx, func(provider ports.TextGenerator) (string, error) {
		return provider.GenerateJSON(ctx, prompt)
	})
}

func (c *Chain) call(ctx context.Context, invoke func(ports.TextGenerator) (string, error)) (domain.Generation, error) {
	var lastErr error
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return domain.Generation{}, err
		}
		text, err := invoke(provider)
		if err == nil {
			return domain.Generation{Text: text, Model: provider.Name()}, nil
		}
		if errors.Is(err, context.Canceled) {
			return domain.Generation{}, err
		}
		lastErr = err
		slog.Warn("llm_provider_failed", "provider", provider.Name(), "error", err)
	}
	return domain.Generation{}, domain.WrapError(domain.ErrGenerationUnavailable, "generate", lastErr)
}
