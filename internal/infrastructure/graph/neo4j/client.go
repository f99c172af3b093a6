package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

const resolveLimit = 5

// Client reads the tax knowledge graph over the Bolt protocol. All statements
// go through a ReadOnlyRunner; the client has no write path.
type Client struct {
	runner  Runner
	closeFn func(context.Context) error
}

func New(ctx context.Context, uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}
	return &Client{
		runner:  NewReadOnlyRunner(&driverRunner{driver: driver, database: database}),
		closeFn: driver.Close,
	}, nil
}

// NewWithRunner wires a custom runner; used by tests.
func NewWithRunner(runner Runner) *Client {
	return &Client{runner: NewReadOnlyRunner(runner)}
}

func (c *Client) Close(ctx context.Context) error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn(ctx)
}

// SearchNodes finds nodes whose name or alias contains the given text,
// case-insensitive. User phrasing rarely matches canonical node names.
func (c *Client) SearchNodes(ctx context.Context, name string) ([]domain.GraphNode, error) {
	const query = `
MATCH (n)
WHERE n.name IS NOT NULL
  AND (toLower(n.name) CONTAINS $name
       OR any(alias IN coalesce(n.aliases, []) WHERE toLower(alias) CONTAINS $name))
RETURN n.id AS id, n.name AS name, head(labels(n)) AS type
LIMIT $limit`
	return c.queryNodes(ctx, query, strings.ToLower(strings.TrimSpace(name)))
}

// SearchNodesExact matches the canonical node name only.
func (c *Client) SearchNodesExact(ctx context.Context, name string) ([]domain.GraphNode, error) {
	const query = `
MATCH (n)
WHERE n.name IS NOT NULL AND toLower(n.name) = $name
RETURN n.id AS id, n.name AS name, head(labels(n)) AS type
LIMIT $limit`
	return c.queryNodes(ctx, query, strings.ToLower(strings.TrimSpace(name)))
}

func (c *Client) queryNodes(ctx context.Context, query, name string) ([]domain.GraphNode, error) {
	if name == "" {
		return nil, nil
	}
	result, err := c.runner.Run(ctx, query, map[string]any{"name": name, "limit": resolveLimit})
	if err != nil {
		return nil, err
	}

	nodes := make([]domain.GraphNode, 0, len(result.Records))
	for _, record := range result.Records {
		row := record.AsMap()
		node := domain.GraphNode{
			ID:   asString(row["id"]),
			Name: asString(row["name"]),
			Type: asString(row["type"]),
		}
		if node.ID == "" {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Neighborhood walks outgoing and incoming relationships from a node up to
// maxHops, returning each reachable neighbor once with its shortest path.
// visitCap bounds the result so densely connected nodes cannot blow up a
// request.
func (c *Client) Neighborhood(ctx context.Context, nodeID string, maxHops, visitCap int) ([]domain.GraphFact, error) {
	if maxHops <= 0 {
		maxHops = 2
	}
	if visitCap <= 0 {
		visitCap = 50
	}

	// variable-length bounds cannot be parameterized in Cypher
	query := fmt.Sprintf(`
MATCH p = (start {id: $id})-[*1..%d]-(m)
WHERE m.id IS NOT NULL AND m.id <> $id
WITH m, p, length(p) AS hops
ORDER BY hops ASC
WITH m, head(collect({path: p, hops: hops})) AS best
RETURN m.id AS id, m.name AS name, head(labels(m)) AS type,
       best.hops AS hops,
       [r IN relationships(best.path) | type(r)] AS rels,
       [n IN nodes(best.path) | n.name] AS names
LIMIT $cap`, maxHops)

	result, err := c.runner.Run(ctx, query, map[string]any{"id": nodeID, "cap": visitCap})
	if err != nil {
		return nil, err
	}

	facts := make([]domain.GraphFact, 0, len(result.Records))
	for _, record := range result.Records {
		row := record.AsMap()
		names := asStringSlice(row["names"])
		rels := asStringSlice(row["rels"])
		fact := domain.GraphFact{
			NodeID:   asString(row["id"]),
			NodeName: asString(row["name"]),
			NodeType: asString(row["type"]),
			Hops:     asInt(row["hops"]),
			Fact:     renderFact(names, rels),
			Path:     strings.Join(names, " > "),
		}
		if fact.NodeID == "" {
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// renderFact interleaves node names and relationship labels into a readable
// statement, e.g. "VAT applies_to Goods requires Registration".
func renderFact(names, rels []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(names[0])
	for i, rel := range rels {
		if i+1 >= len(names) {
			break
		}
		b.WriteString(" ")
		b.WriteString(rel)
		b.WriteString(" ")
		b.WriteString(names[i+1])
	}
	return b.String()
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func asInt(value any) int {
	switch typed := value.(type) {
	case int64:
		return int(typed)
	case int:
		return typed
	case float64:
		return int(typed)
	default:
		return 0
	}
}

func asStringSlice(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		out = append(out, asString(entry))
	}
	return out
}
