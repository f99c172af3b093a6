package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

const systemPersona = `You are NTRIA (Nigeria Tax Reform Intelligence Assistant), a tax expert for the 2025 Nigerian Tax Reform.

Rules:
1. Answer ONLY from the supplied context. If the context is insufficient, say so directly instead of guessing.
2. Cite the source title for every major claim, using the [n] labels from the context.
3. Use the tax rates, income bands and deadlines from the context when they are present.
4. Keep the tone professional and conversational.
5. Remind users to consult FIRS and a professional for official filings. Never give binding legal advice.`

// assemblePrompt renders the fused evidence, history and user constraints
// into one generation prompt. When the evidence would exceed the character
// budget, whole lowest-scored items are dropped first; an item is never
// truncated mid-text. The returned slice holds the items that stayed in.
func assemblePrompt(
	query domain.RewrittenQuery,
	evidence []domain.EvidenceItem,
	history []domain.ConversationTurn,
	webContext string,
	extra map[string]string,
	budgetChars int,
) (string, []domain.EvidenceItem) {
	kept := fitEvidenceToBudget(evidence, budgetChars)

	var b strings.Builder
	b.WriteString("Context from official documents and the tax knowledge graph:\n")
	if len(kept) == 0 {
		b.WriteString("(no relevant documents found)\n")
	}
	for i, item := range kept {
		fmt.Fprintf(&b, "[%d] source=%s kind=%s score=%.3f\n%s\n\n", i+1, item.Provenance.String(), item.Kind, item.FusedScore, item.Text)
	}

	if webContext != "" {
		b.WriteString("Supplementary web search results (no local documents matched; treat as unverified):\n")
		b.WriteString(webContext)
		b.WriteString("\n\n")
	}

	if len(extra) > 0 {
		b.WriteString("Additional constraints from the caller:\n")
		keys := make([]string, 0, len(extra))
		for key := range extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", key, extra[key])
		}
		b.WriteString("\n")
	}

	b.WriteString("Conversation history:\n")
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, strings.TrimSpace(turn.Text))
	}

	fmt.Fprintf(&b, "\nUser question: %s\n", query.ResolvedText)
	return b.String(), kept
}

// fitEvidenceToBudget drops the lowest fused-score items until the rendered
// evidence fits. The input is already ordered by descending fused score, so
// dropping from the tail removes the weakest evidence first.
func fitEvidenceToBudget(evidence []domain.EvidenceItem, budgetChars int) []domain.EvidenceItem {
	if budgetChars <= 0 {
		return evidence
	}
	kept := evidence
	for len(kept) > 0 && renderedSize(kept) > budgetChars {
		kept = kept[:len(kept)-1]
	}
	return kept
}

func renderedSize(evidence []domain.EvidenceItem) int {
	total := 0
	for _, item := range evidence {
		// the per-item label line is small and bounded; 48 covers it
		total += len(item.Text) + len(item.Provenance.String()) + 48
	}
	return total
}

func greetingPrompt(message string) string {
	return fmt.Sprintf(`The user sent a greeting or small talk, not a tax question.
Reply briefly and warmly, introduce yourself in one sentence, and invite a question about the 2025 Nigerian Tax Reform.

User message: %s`, message)
}
