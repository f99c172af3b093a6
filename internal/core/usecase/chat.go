package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ntria/tax-assistant/internal/core/domain"
	"github.com/ntria/tax-assistant/internal/core/ports"
)

const maxMessageChars = 5000

// ChatUseCase drives one chat turn: rewrite, parallel graph and vector
// retrieval, fusion, prompt assembly, generation with provider fallback and
// answer validation. Retrieval and rewrite failures degrade to empty results;
// only input validation and total generation failure surface as errors.
type ChatUseCase struct {
	rewriter  *Rewriter
	resolver  ports.EntityResolver
	graph     ports.GraphStore
	embedder  ports.Embedder
	vector    ports.VectorSearcher
	generator ports.AnswerGenerator
	sessions  ports.SessionStore
	events    ports.EventPublisher
	webSearch ports.WebSearcher
	limits    Limits
}

func NewChatUseCase(
	rewriter *Rewriter,
	resolver ports.EntityResolver,
	graph ports.GraphStore,
	embedder ports.Embedder,
	vector ports.VectorSearcher,
	generator ports.AnswerGenerator,
	sessions ports.SessionStore,
	limits Limits,
) *ChatUseCase {
	return &ChatUseCase{
		rewriter:  rewriter,
		resolver:  resolver,
		graph:     graph,
		embedder:  embedder,
		vector:    vector,
		generator: generator,
		sessions:  sessions,
		limits:    limits.normalize(),
	}
}

// WithEventPublisher enables best-effort chat-turn event publishing.
func (uc *ChatUseCase) WithEventPublisher(events ports.EventPublisher) *ChatUseCase {
	uc.events = events
	return uc
}

// WithWebSearch enables the external-search fallback used when both
// retrievers come back empty.
func (uc *ChatUseCase) WithWebSearch(search ports.WebSearcher) *ChatUseCase {
	uc.webSearch = search
	return uc
}

func (uc *ChatUseCase) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(message) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("message must be at least 2 characters"))
	}
	if utf8.RuneCountInString(message) > maxMessageChars {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "chat", fmt.Errorf("message exceeds %d characters", maxMessageChars))
	}
	for _, turn := range req.History {
		if !domain.ValidRole(turn.Role) {
			return nil, domain.WrapError(domain.ErrSchemaViolation, "chat", fmt.Errorf("unsupported history role: %q", turn.Role))
		}
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := uc.loadHistory(ctx, sessionID, req.History)

	if isGreeting(message) {
		return uc.answerGreeting(ctx, sessionID, message)
	}

	rewritten := uc.rewriter.Rewrite(ctx, message, history)

	graphItems, vectorItems := uc.retrieve(ctx, rewritten)
	fused := fuseEvidence(graphItems, vectorItems, fusionConfig{
		GraphWeight:         uc.limits.GraphWeight,
		VectorWeight:        uc.limits.VectorWeight,
		SingleSourcePenalty: uc.limits.SingleSourcePenalty,
		Cap:                 uc.limits.FusedCap,
	})

	webContext := ""
	if len(fused) == 0 && uc.webSearch != nil {
		webContext = uc.searchWeb(ctx, rewritten.ResolvedText)
	}

	prompt, used := assemblePrompt(rewritten, fused, history, webContext, req.Context, uc.limits.PromptBudgetChars)

	generation, err := uc.generator.Generate(ctx, systemPersona, prompt)
	if err != nil {
		return nil, err
	}

	confidence, valid := scoreAnswer(generation.Text, used, validationConfig{
		Threshold:          uc.limits.ValidityThreshold,
		EmptyCeiling:       uc.limits.EmptyEvidenceCeiling,
		CorroborationBonus: uc.limits.CorroborationBonus,
	})

	result := &domain.ChatResult{
		Answer: domain.Answer{
			Text:       generation.Text,
			Sources:    used,
			Confidence: confidence,
			Valid:      valid,
			ModelUsed:  generation.Model,
		},
		SessionID: sessionID,
		Stats: domain.RetrievalStats{
			GraphResults:  len(graphItems),
			VectorResults: len(vectorItems),
			FusedResults:  len(fused),
		},
	}

	uc.finishTurn(ctx, result, message)
	return result, nil
}

// retrieve runs both retrievers concurrently with individual timeouts so the
// end-to-end latency is bounded by the slower of the two. Failures are
// logged and converted to empty result sets at this boundary.
func (uc *ChatUseCase) retrieve(ctx context.Context, query domain.RewrittenQuery) (graphItems, vectorItems []domain.EvidenceItem) {
	var group errgroup.Group

	group.Go(func() error {
		retrCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrieverTimeout)
		defer cancel()
		graphItems = uc.retrieveGraph(retrCtx, query.Entities)
		return nil
	})
	group.Go(func() error {
		retrCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrieverTimeout)
		defer cancel()
		vectorItems = uc.retrieveVector(retrCtx, query.ResolvedText)
		return nil
	})

	_ = group.Wait()
	return graphItems, vectorItems
}

func (uc *ChatUseCase) answerGreeting(ctx context.Context, sessionID, message string) (*domain.ChatResult, error) {
	generation, err := uc.generator.Generate(ctx, systemPersona, greetingPrompt(message))
	if err != nil {
		return nil, err
	}
	result := &domain.ChatResult{
		Answer: domain.Answer{
			Text:       generation.Text,
			Sources:    []domain.EvidenceItem{},
			Confidence: 1.0,
			Valid:      true,
			ModelUsed:  generation.Model,
		},
		SessionID: sessionID,
	}
	uc.finishTurn(ctx, result, message)
	return result, nil
}

func (uc *ChatUseCase) loadHistory(ctx context.Context, sessionID string, provided []domain.ConversationTurn) []domain.ConversationTurn {
	history := provided
	if len(history) == 0 && uc.sessions != nil {
		stored, err := uc.sessions.RecentTurns(ctx, sessionID, uc.limits.HistoryTurns)
		if err != nil {
			slog.Warn("session_history_load_failed", "session_id", sessionID, "error", err)
		} else {
			history = stored
		}
	}
	return trimHistory(history, uc.limits.HistoryTurns)
}

// trimHistory keeps the most recent limit turns, dropping oldest first so
// role alternation is preserved.
func trimHistory(history []domain.ConversationTurn, limit int) []domain.ConversationTurn {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func (uc *ChatUseCase) searchWeb(ctx context.Context, query string) string {
	searchCtx, cancel := context.WithTimeout(ctx, uc.limits.WebSearchTimeout)
	defer cancel()

	text, err := uc.webSearch.Search(searchCtx, query)
	if err != nil {
		slog.Warn("web_search_failed", "error", err)
		return ""
	}
	return text
}

// finishTurn appends both turns to the session and publishes the chat event.
// The pipeline result is already final here; neither step may fail the request.
func (uc *ChatUseCase) finishTurn(ctx context.Context, result *domain.ChatResult, userMessage string) {
	now := time.Now().UTC()
	if uc.sessions != nil {
		if err := uc.sessions.AppendTurn(ctx, result.SessionID, domain.ConversationTurn{
			Role: domain.RoleUser, Text: userMessage, Timestamp: now,
		}); err != nil {
			slog.Warn("session_append_failed", "session_id", result.SessionID, "role", domain.RoleUser, "error", err)
		} else if err := uc.sessions.AppendTurn(ctx, result.SessionID, domain.ConversationTurn{
			Role: domain.RoleAssistant, Text: result.Answer.Text, Timestamp: now,
		}); err != nil {
			slog.Warn("session_append_failed", "session_id", result.SessionID, "role", domain.RoleAssistant, "error", err)
		}
	}

	if uc.events != nil {
		if err := uc.events.PublishChatTurn(ctx, domain.ChatTurnEvent{
			SessionID:  result.SessionID,
			Question:   userMessage,
			ModelUsed:  result.Answer.ModelUsed,
			Confidence: result.Answer.Confidence,
			Valid:      result.Answer.Valid,
			Stats:      result.Stats,
			CreatedAt:  now,
		}); err != nil {
			slog.Warn("chat_event_publish_failed", "session_id", result.SessionID, "error", err)
		}
	}
}
