package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Runner executes a Cypher statement and returns the eager result. The
// indirection exists so the read-only guard can sit between the client and
// the driver, and so tests can run without a server.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, r.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("graph query: %w", err)
	}
	return result, nil
}

var mutatingClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|LOAD\s+CSV)\b`)

// ReadOnlyRunner rejects mutating Cypher before it reaches the driver,
// independent of the server's own enforcement. Query serving never writes
// to the graph, caching included.
type ReadOnlyRunner struct {
	inner Runner
}

func NewReadOnlyRunner(inner Runner) *ReadOnlyRunner {
	return &ReadOnlyRunner{inner: inner}
}

func (r *ReadOnlyRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	if clause := mutatingClause.FindString(query); clause != "" {
		return nil, fmt.Errorf("graph store is read-only: statement contains %s", strings.ToUpper(strings.Join(strings.Fields(clause), " ")))
	}
	return r.inner.Run(ctx, query, params)
}
