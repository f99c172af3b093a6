package domain

import "strings"

type EvidenceKind string

const (
	EvidenceGraph  EvidenceKind = "graph"
	EvidenceVector EvidenceKind = "vector"
)

// EntityRef names a domain entity mentioned in a query. Matching against
// graph nodes is alias/substring based, not id lookup, because user phrasing
// rarely matches canonical names.
type EntityRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RewrittenQuery is the self-contained form of a possibly elliptical user
// message. Request-scoped, never persisted.
type RewrittenQuery struct {
	OriginalText string      `json:"original_text"`
	ResolvedText string      `json:"resolved_text"`
	Entities     []EntityRef `json:"entities"`
}

type Provenance struct {
	Title   string `json:"title"`
	Section string `json:"section,omitempty"`
}

func (p Provenance) String() string {
	if p.Section == "" {
		return p.Title
	}
	return p.Title + ", " + p.Section
}

// Key is the normalized form used for cross-source corroboration matching.
// Section is part of the key: two excerpts of one document are distinct
// provenance unless they point at the same place.
func (p Provenance) Key() string {
	title := strings.ToLower(strings.TrimSpace(p.Title))
	if title == "" {
		return ""
	}
	section := strings.ToLower(strings.TrimSpace(p.Section))
	if section == "" {
		return title
	}
	return title + "|" + section
}

// EvidenceItem is the unifying result type of both retrievers. FusedScore and
// Corroborated are set by fusion; RawScore stays on the retriever's own scale
// (hop-distance based for graph, normalized similarity for vector).
type EvidenceItem struct {
	ID           string       `json:"id"`
	Kind         EvidenceKind `json:"kind"`
	Text         string       `json:"text"`
	Provenance   Provenance   `json:"provenance"`
	RawScore     float64      `json:"raw_score"`
	FusedScore   float64      `json:"fused_score"`
	Corroborated bool         `json:"corroborated"`
}

// GraphNode is a resolved knowledge-graph node.
type GraphNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// GraphFact is one neighbor reached during traversal, with the rendered
// relationship text and the shortest path that produced it.
type GraphFact struct {
	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`
	NodeType string `json:"node_type"`
	Fact     string `json:"fact"`
	Path     string `json:"path"`
	Hops     int    `json:"hops"`
}

type Generation struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type Answer struct {
	Text       string         `json:"text"`
	Sources    []EvidenceItem `json:"sources"`
	Confidence float64        `json:"confidence"`
	Valid      bool           `json:"valid"`
	ModelUsed  string         `json:"model_used"`
}
