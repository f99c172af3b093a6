package usecase

import (
	"fmt"
	"strings"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type validationConfig struct {
	Threshold          float64
	EmptyCeiling       float64
	CorroborationBonus float64
}

// unmatchedCitationDamp discounts the evidence mean when the answer never
// names a source: the model may have paraphrased provenance, so the evidence
// still counts, just less.
const unmatchedCitationDamp = 0.75

// scoreAnswer computes the advisory confidence score and validity flag for a
// generated answer against the evidence that backed it. This is an explicit
// tunable heuristic, not a probability of correctness: base confidence is the
// mean fused score of the evidence the answer actually cites, an empty
// evidence set caps confidence at a low ceiling, and corroborated citations
// earn a bonus. The flag never blocks returning the answer.
func scoreAnswer(answerText string, evidence []domain.EvidenceItem, cfg validationConfig) (confidence float64, valid bool) {
	if len(evidence) == 0 {
		confidence = cfg.EmptyCeiling
		return confidence, confidence >= cfg.Threshold
	}

	cited := citedEvidence(answerText, evidence)
	if len(cited) > 0 {
		confidence = meanFusedScore(cited)
	} else {
		cited = evidence
		confidence = meanFusedScore(evidence) * unmatchedCitationDamp
	}

	for _, item := range cited {
		if item.Corroborated {
			confidence += cfg.CorroborationBonus
			break
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, confidence >= cfg.Threshold
}

// citedEvidence matches evidence against the answer by provenance title
// substring or by the [n] markers the prompt asks the model to emit.
func citedEvidence(answerText string, evidence []domain.EvidenceItem) []domain.EvidenceItem {
	lowered := strings.ToLower(answerText)
	cited := make([]domain.EvidenceItem, 0, len(evidence))
	for i, item := range evidence {
		marker := fmt.Sprintf("[%d]", i+1)
		title := strings.ToLower(strings.TrimSpace(item.Provenance.Title))
		if strings.Contains(answerText, marker) || (title != "" && strings.Contains(lowered, title)) {
			cited = append(cited, item)
		}
	}
	return cited
}

func meanFusedScore(items []domain.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		sum += item.FusedScore
	}
	return sum / float64(len(items))
}
