package ports

import (
	"context"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

// EntityResolver maps an extracted entity reference to zero or more graph
// nodes. Implementations differ only in matching strategy (substring/alias
// vs exact name).
type EntityResolver interface {
	Resolve(ctx context.Context, ref domain.EntityRef) ([]domain.GraphNode, error)
}

// GraphStore reads the knowledge graph. The graph is never mutated at query
// time; implementations must reject writes at their own boundary.
type GraphStore interface {
	Neighborhood(ctx context.Context, nodeID string, maxHops, visitCap int) ([]domain.GraphFact, error)
}

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs nearest-neighbor search over the document index.
// Scores are normalized to [0,1].
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.EvidenceItem, error)
}

// TextGenerator is a single language-model provider.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// AnswerGenerator produces text with provider fallback; the returned
// Generation carries the provider that actually answered.
type AnswerGenerator interface {
	Generate(ctx context.Context, system, user string) (domain.Generation, error)
	GenerateJSON(ctx context.Context, prompt string) (domain.Generation, error)
}

// SessionStore holds bounded conversation history per session id.
type SessionStore interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)
	AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error
}

// WebSearcher supplies external context when local retrieval finds nothing.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// EventPublisher emits chat-turn events for downstream consumers.
type EventPublisher interface {
	PublishChatTurn(ctx context.Context, event domain.ChatTurnEvent) error
}
