package ports

import (
	"context"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

// ChatService answers one chat turn through the full retrieval and
// generation pipeline.
type ChatService interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error)
}
