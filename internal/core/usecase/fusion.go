package usecase

import (
	"sort"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type fusionConfig struct {
	GraphWeight         float64
	VectorWeight        float64
	SingleSourcePenalty float64
	Cap                 int
}

type fusedCandidate struct {
	item        domain.EvidenceItem
	graphScore  float64
	hasGraph    bool
	vectorScore float64
	hasVector   bool
}

// fuseEvidence merges graph and vector evidence into one ordered set.
// Scores are min-max normalized per retriever before combining, since the
// two raw scales are not comparable. Items carrying the same provenance from
// both retrieval paths are collapsed into one corroborated item whose score
// rewards the agreement; single-source items take a small penalty instead.
func fuseEvidence(graph, vector []domain.EvidenceItem, cfg fusionConfig) []domain.EvidenceItem {
	acc := make(map[string]*fusedCandidate, len(graph)+len(vector))
	byProvenance := make(map[string]string, len(graph)+len(vector))
	order := make([]string, 0, len(graph)+len(vector))

	// corroborates reports whether an incoming item of the given kind can
	// collapse into cand. Only a cross-retriever provenance match counts:
	// two items from the same retriever are distinct excerpts of the
	// document and must both survive.
	corroborates := func(cand *fusedCandidate, kind domain.EvidenceKind) bool {
		if kind == domain.EvidenceGraph {
			return cand.hasVector && !cand.hasGraph
		}
		return cand.hasGraph && !cand.hasVector
	}

	add := func(items []domain.EvidenceItem, scores []float64, kind domain.EvidenceKind) {
		for i, item := range items {
			key := item.ID
			if mapped, ok := byProvenance[item.Provenance.Key()]; ok {
				if cand, live := acc[mapped]; live && corroborates(cand, kind) {
					key = mapped
				}
			}
			cand, ok := acc[key]
			if !ok {
				cand = &fusedCandidate{item: item}
				acc[key] = cand
				order = append(order, key)
				if pk := item.Provenance.Key(); pk != "" {
					if _, seen := byProvenance[pk]; !seen {
						byProvenance[pk] = key
					}
				}
			} else if item.RawScore > cand.item.RawScore {
				// same fact from both paths: keep the higher-scored rendition
				cand.item = item
			}
			if kind == domain.EvidenceGraph {
				cand.hasGraph = true
				if scores[i] > cand.graphScore {
					cand.graphScore = scores[i]
				}
			} else {
				cand.hasVector = true
				if scores[i] > cand.vectorScore {
					cand.vectorScore = scores[i]
				}
			}
		}
	}

	add(graph, normalizeScores(graph), domain.EvidenceGraph)
	add(vector, normalizeScores(vector), domain.EvidenceVector)

	out := make([]domain.EvidenceItem, 0, len(acc))
	for _, key := range order {
		cand := acc[key]
		item := cand.item
		if cand.hasGraph && cand.hasVector {
			item.Corroborated = true
			item.FusedScore = cfg.GraphWeight*cand.graphScore + cfg.VectorWeight*cand.vectorScore
		} else if cand.hasGraph {
			item.FusedScore = cand.graphScore * cfg.SingleSourcePenalty
		} else {
			item.FusedScore = cand.vectorScore * cfg.SingleSourcePenalty
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		// structured facts are treated as higher precision
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == domain.EvidenceGraph
		}
		pi, pj := out[i].Provenance.String(), out[j].Provenance.String()
		if len(pi) != len(pj) {
			return len(pi) < len(pj)
		}
		return out[i].ID < out[j].ID
	})

	if cfg.Cap > 0 && len(out) > cfg.Cap {
		out = out[:cfg.Cap]
	}
	return out
}

// normalizeScores maps one retriever's raw scores onto [0,1] with min-max.
// A degenerate set (all scores equal) normalizes to 1.0 for every item: the
// retriever was equally confident in each.
func normalizeScores(items []domain.EvidenceItem) []float64 {
	if len(items) == 0 {
		return nil
	}
	minScore, maxScore := items[0].RawScore, items[0].RawScore
	for _, item := range items[1:] {
		if item.RawScore < minScore {
			minScore = item.RawScore
		}
		if item.RawScore > maxScore {
			maxScore = item.RawScore
		}
	}

	out := make([]float64, len(items))
	if maxScore == minScore {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, item := range items {
		out[i] = (item.RawScore - minScore) / (maxScore - minScore)
	}
	return out
}
