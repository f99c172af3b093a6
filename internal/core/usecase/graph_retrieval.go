package usecase

import (
	"context"
	"log/slog"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

// retrieveGraph resolves each extracted entity to candidate nodes and walks
// their bounded neighborhood. Unresolvable entities and unreachable stores
// are a valid "no structured evidence" outcome, never an error.
func (uc *ChatUseCase) retrieveGraph(ctx context.Context, entities []domain.EntityRef) []domain.EvidenceItem {
	if uc.resolver == nil || uc.graph == nil || len(entities) == 0 {
		return nil
	}

	budget := uc.limits.GraphVisitCap
	best := make(map[string]domain.EvidenceItem)

	for _, ref := range entities {
		if budget <= 0 || ctx.Err() != nil {
			break
		}
		nodes, err := uc.resolver.Resolve(ctx, ref)
		if err != nil {
			slog.Warn("graph_entity_resolve_failed", "entity", ref.Name, "error", err)
			continue
		}
		for _, node := range nodes {
			if budget <= 0 {
				break
			}
			facts, err := uc.graph.Neighborhood(ctx, node.ID, uc.limits.GraphMaxHops, budget)
			if err != nil {
				slog.Warn("graph_traversal_failed", "node_id", node.ID, "error", err)
				continue
			}
			budget -= len(facts)
			collectGraphFacts(best, facts)
		}
	}

	out := make([]domain.EvidenceItem, 0, len(best))
	for _, item := range best {
		out = append(out, item)
	}
	return out
}

// collectGraphFacts converts facts to evidence items, keeping the maximum
// score when a node is reached over multiple paths (shortest path wins).
func collectGraphFacts(best map[string]domain.EvidenceItem, facts []domain.GraphFact) {
	for _, fact := range facts {
		item := domain.EvidenceItem{
			ID:   "graph:" + fact.NodeID,
			Kind: domain.EvidenceGraph,
			Text: fact.Fact,
			Provenance: domain.Provenance{
				Title:   fact.NodeName,
				Section: fact.Path,
			},
			RawScore: 1.0 / float64(1+fact.Hops),
		}
		if existing, ok := best[item.ID]; ok && existing.RawScore >= item.RawScore {
			continue
		}
		best[item.ID] = item
	}
}
