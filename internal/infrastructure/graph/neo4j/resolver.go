package neo4j

import (
	"context"
	"strings"

	"github.com/ntria/tax-assistant/internal/core/domain"
	"github.com/ntria/tax-assistant/internal/core/ports"
)

const (
	MatchContains = "contains"
	MatchExact    = "exact"
)

// ContainsResolver matches entity references by case-insensitive substring
// over node names and aliases. This is the default: users say "VAT", the
// graph says "Value Added Tax (VAT)".
type ContainsResolver struct {
	client *Client
}

func (r *ContainsResolver) Resolve(ctx context.Context, ref domain.EntityRef) ([]domain.GraphNode, error) {
	return r.client.SearchNodes(ctx, ref.Name)
}

// ExactResolver matches the canonical node name only.
type ExactResolver struct {
	client *Client
}

func (r *ExactResolver) Resolve(ctx context.Context, ref domain.EntityRef) ([]domain.GraphNode, error) {
	return r.client.SearchNodesExact(ctx, ref.Name)
}

// NewResolver selects the matching strategy by configuration.
func NewResolver(strategy string, client *Client) ports.EntityResolver {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case MatchExact:
		return &ExactResolver{client: client}
	default:
		return &ContainsResolver{client: client}
	}
}
