package usecase

import (
	"context"
	"log/slog"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

// retrieveVector embeds the resolved query and searches the semantic index.
// Items below the relevance floor are discarded; returning fewer than K is
// valid. Embedding or index failures degrade to an empty list.
func (uc *ChatUseCase) retrieveVector(ctx context.Context, queryText string) []domain.EvidenceItem {
	if uc.embedder == nil || uc.vector == nil {
		return nil
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		slog.Warn("query_embedding_failed", "error", err)
		return nil
	}

	items, err := uc.vector.Search(ctx, queryVector, uc.limits.VectorTopK)
	if err != nil {
		slog.Warn("vector_search_failed", "error", err)
		return nil
	}

	out := make([]domain.EvidenceItem, 0, len(items))
	for _, item := range items {
		if item.RawScore < uc.limits.VectorMinScore {
			continue
		}
		out = append(out, item)
	}
	return out
}
