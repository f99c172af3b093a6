package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ntria/tax-assistant/internal/core/domain"
	"github.com/ntria/tax-assistant/internal/core/ports"
)

// Rewriter turns a follow-up question into a self-contained query and
// extracts the domain entities it mentions, in a single JSON model call.
// It is an optimization, not a correctness requirement: any failure falls
// back to the verbatim message with an empty entity set.
type Rewriter struct {
	generator ports.AnswerGenerator
	timeout   time.Duration
}

func NewRewriter(generator ports.AnswerGenerator, timeout time.Duration) *Rewriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Rewriter{generator: generator, timeout: timeout}
}

func (r *Rewriter) Rewrite(ctx context.Context, message string, history []domain.ConversationTurn) domain.RewrittenQuery {
	verbatim := domain.RewrittenQuery{
		OriginalText: message,
		ResolvedText: message,
		Entities:     []domain.EntityRef{},
	}
	if r == nil || r.generator == nil {
		return verbatim
	}
	// short first-turn queries have nothing to resolve; skip the model call
	if len(history) == 0 && len(strings.Fields(message)) <= 3 {
		return verbatim
	}

	rewriteCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	generation, err := r.generator.GenerateJSON(rewriteCtx, buildRewritePrompt(message, history))
	if err != nil {
		slog.Warn("query_rewrite_failed", "error", err)
		return verbatim
	}

	parsed, err := parseRewriteResponse(generation.Text)
	if err != nil {
		slog.Warn("query_rewrite_unparseable", "error", err)
		return verbatim
	}

	resolved := strings.TrimSpace(parsed.StandaloneQuery)
	// the first turn has no pronouns to resolve; keep the user's wording
	if resolved == "" || len(history) == 0 {
		resolved = message
	}

	entities := make([]domain.EntityRef, 0, len(parsed.Entities))
	for _, entity := range parsed.Entities {
		name := strings.TrimSpace(entity.Name)
		if name == "" {
			continue
		}
		entities = append(entities, domain.EntityRef{Name: name, Type: strings.TrimSpace(entity.Type)})
	}

	return domain.RewrittenQuery{
		OriginalText: message,
		ResolvedText: resolved,
		Entities:     entities,
	}
}

type rewriteResponse struct {
	StandaloneQuery string `json:"standalone_query"`
	Entities        []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
}

func parseRewriteResponse(raw string) (rewriteResponse, error) {
	raw = extractJSONObject(raw)
	if strings.TrimSpace(raw) == "" {
		return rewriteResponse{}, fmt.Errorf("empty rewrite response")
	}
	var parsed rewriteResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return rewriteResponse{}, fmt.Errorf("unmarshal rewrite json: %w", err)
	}
	return parsed, nil
}

func buildRewritePrompt(message string, history []domain.ConversationTurn) string {
	historyLines := make([]string, 0, len(history))
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		historyLines = append(historyLines, fmt.Sprintf("%s: %s", turn.Role, text))
	}
	if len(historyLines) == 0 {
		historyLines = append(historyLines, "(none)")
	}

	return fmt.Sprintf(`Analyze the conversation and the follow-up question.
1. REPHRASE the question into a standalone tax search query, resolving pronouns against the history.
2. EXTRACT tax-related entities (tax names, taxpayer categories, agencies, income types).

Return ONLY a JSON object:
{"standalone_query":"...","entities":[{"name":"...","type":"Tax|Taxpayer|Agency|..."}]}
If no relevant entities are found, return an empty entities array.

Conversation history:
%s

Follow-up question: %s`, strings.Join(historyLines, "\n"), message)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
