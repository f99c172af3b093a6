package neo4j

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type fakeRunner struct {
	result  *neo4j.EagerResult
	err     error
	queries []string
	params  []map[string]any
}

func (f *fakeRunner) Run(_ context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &neo4j.EagerResult{}, nil
	}
	return f.result, nil
}

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestReadOnlyRunnerRejectsMutatingCypher(t *testing.T) {
	inner := &fakeRunner{}
	runner := NewReadOnlyRunner(inner)

	mutations := []string{
		"CREATE (n:Tax {id: 'x'})",
		"MATCH (n) DETACH DELETE n",
		"MATCH (n) SET n.name = 'x'",
		"MERGE (n:Tax {id: 'x'})",
		"LOAD CSV FROM 'file:///x.csv' AS row RETURN row",
	}
	for _, query := range mutations {
		if _, err := runner.Run(context.Background(), query, nil); err == nil {
			t.Errorf("expected rejection for %q", query)
		}
	}
	if len(inner.queries) != 0 {
		t.Fatalf("mutating statements reached the driver: %v", inner.queries)
	}
}

func TestReadOnlyRunnerAllowsReads(t *testing.T) {
	inner := &fakeRunner{}
	runner := NewReadOnlyRunner(inner)

	if _, err := runner.Run(context.Background(), "MATCH (n) WHERE n.offset > 1 RETURN n", nil); err != nil {
		t.Fatalf("read statement rejected: %v", err)
	}
	if len(inner.queries) != 1 {
		t.Fatalf("read statement did not reach the driver")
	}
}

func TestSearchNodesParsesRecords(t *testing.T) {
	keys := []string{"id", "name", "type"}
	runner := &fakeRunner{result: &neo4j.EagerResult{
		Keys: keys,
		Records: []*neo4j.Record{
			record(keys, "vat", "Value Added Tax", "Tax"),
			record(keys, nil, "broken row", "Tax"),
		},
	}}
	client := NewWithRunner(runner)

	nodes, err := client.SearchNodes(context.Background(), "  Value Added ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node after skipping id-less row, got %d", len(nodes))
	}
	want := domain.GraphNode{ID: "vat", Name: "Value Added Tax", Type: "Tax"}
	if nodes[0] != want {
		t.Fatalf("unexpected node: %+v", nodes[0])
	}
	if runner.params[0]["name"] != "value added" {
		t.Fatalf("search term not lowercased and trimmed: %v", runner.params[0])
	}
}

func TestSearchNodesEmptyNameSkipsQuery(t *testing.T) {
	runner := &fakeRunner{}
	client := NewWithRunner(runner)

	nodes, err := client.SearchNodes(context.Background(), "   ")
	if err != nil || nodes != nil {
		t.Fatalf("expected nil result for empty name, got %v, %v", nodes, err)
	}
	if len(runner.queries) != 0 {
		t.Fatalf("empty name must not hit the store")
	}
}

func TestNeighborhoodBuildsFacts(t *testing.T) {
	keys := []string{"id", "name", "type", "hops", "rels", "names"}
	runner := &fakeRunner{result: &neo4j.EagerResult{
		Keys: keys,
		Records: []*neo4j.Record{
			record(keys, "consumers", "Consumers", "Taxpayer", int64(1),
				[]any{"PAID_BY"}, []any{"Value Added Tax", "Consumers"}),
			record(keys, "firs", "FIRS", "Agency", int64(2),
				[]any{"PAID_BY", "COLLECTED_BY"}, []any{"Value Added Tax", "Consumers", "FIRS"}),
		},
	}}
	client := NewWithRunner(runner)

	facts, err := client.Neighborhood(context.Background(), "vat", 2, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	if facts[0].Fact != "Value Added Tax PAID_BY Consumers" {
		t.Fatalf("unexpected fact: %q", facts[0].Fact)
	}
	if facts[1].Fact != "Value Added Tax PAID_BY Consumers COLLECTED_BY FIRS" {
		t.Fatalf("unexpected 2-hop fact: %q", facts[1].Fact)
	}
	if facts[1].Hops != 2 {
		t.Fatalf("expected 2 hops, got %d", facts[1].Hops)
	}
	if !strings.Contains(runner.queries[0], "[*1..2]") {
		t.Fatalf("hop bound missing from query:\n%s", runner.queries[0])
	}
	if runner.params[0]["cap"] != 50 {
		t.Fatalf("visit cap not passed: %v", runner.params[0])
	}
}

func TestRenderFact(t *testing.T) {
	cases := []struct {
		names []string
		rels  []string
		want  string
	}{
		{nil, nil, ""},
		{[]string{"VAT"}, nil, "VAT"},
		{[]string{"VAT", "Goods"}, []string{"APPLIES_TO"}, "VAT APPLIES_TO Goods"},
		{[]string{"VAT", "Goods"}, []string{"APPLIES_TO", "DANGLING"}, "VAT APPLIES_TO Goods"},
	}
	for _, tc := range cases {
		if got := renderFact(tc.names, tc.rels); got != tc.want {
			t.Errorf("renderFact(%v, %v) = %q, want %q", tc.names, tc.rels, got, tc.want)
		}
	}
}
