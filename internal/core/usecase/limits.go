package usecase

import "time"

// Limits carries every tunable of the pipeline. Zero values are replaced
// with defaults so partially filled configs stay safe.
type Limits struct {
	HistoryTurns int

	GraphMaxHops  int
	GraphVisitCap int

	VectorTopK     int
	VectorMinScore float64

	FusedCap            int
	GraphWeight         float64
	VectorWeight        float64
	SingleSourcePenalty float64

	PromptBudgetChars int

	ValidityThreshold    float64
	EmptyEvidenceCeiling float64
	CorroborationBonus   float64

	RewriteTimeout   time.Duration
	RetrieverTimeout time.Duration
	WebSearchTimeout time.Duration
}

func (l Limits) normalize() Limits {
	if l.HistoryTurns <= 0 {
		l.HistoryTurns = 6
	}
	if l.GraphMaxHops <= 0 {
		l.GraphMaxHops = 2
	}
	if l.GraphVisitCap <= 0 {
		l.GraphVisitCap = 50
	}
	if l.VectorTopK <= 0 {
		l.VectorTopK = 5
	}
	if l.VectorMinScore <= 0 {
		l.VectorMinScore = 0.5
	}
	if l.FusedCap <= 0 {
		l.FusedCap = 8
	}
	if l.GraphWeight <= 0 {
		l.GraphWeight = 0.5
	}
	if l.VectorWeight <= 0 {
		l.VectorWeight = 0.5
	}
	if l.SingleSourcePenalty <= 0 || l.SingleSourcePenalty > 1 {
		l.SingleSourcePenalty = 0.9
	}
	if l.PromptBudgetChars <= 0 {
		l.PromptBudgetChars = 9000
	}
	if l.ValidityThreshold <= 0 {
		l.ValidityThreshold = 0.4
	}
	if l.EmptyEvidenceCeiling <= 0 {
		l.EmptyEvidenceCeiling = 0.3
	}
	if l.CorroborationBonus <= 0 {
		l.CorroborationBonus = 0.1
	}
	if l.RewriteTimeout <= 0 {
		l.RewriteTimeout = 10 * time.Second
	}
	if l.RetrieverTimeout <= 0 {
		l.RetrieverTimeout = 8 * time.Second
	}
	if l.WebSearchTimeout <= 0 {
		l.WebSearchTimeout = 6 * time.Second
	}
	return l
}
