package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

func TestSearchParsesPointsIntoEvidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/tax_documents/points/search" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req["limit"].(float64) != 5 {
			http.Error(w, "unexpected limit", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":17,"score":0.82,"payload":{"text":"The standard VAT rate is 7.5%","source":"VAT Act","section":"s.4"}},
			{"id":"c2","score":1.4,"payload":{"text":"overflow score","source":"Gazette","page":12}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "tax_documents")
	items, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "chunk:17" || first.Kind != domain.EvidenceVector {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.RawScore != 0.82 {
		t.Fatalf("expected raw score kept as-is, got %f", first.RawScore)
	}
	if first.Provenance.Title != "VAT Act" || first.Provenance.Section != "s.4" {
		t.Fatalf("unexpected provenance: %+v", first.Provenance)
	}

	second := items[1]
	if second.RawScore != 1.0 {
		t.Fatalf("expected out-of-range score clamped to 1.0, got %f", second.RawScore)
	}
	if second.Provenance.Section != "p. 12" {
		t.Fatalf("expected page fallback section, got %q", second.Provenance.Section)
	}
}

func TestSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "tax_documents")
	if _, err := client.Search(context.Background(), []float32{0.1}, 5); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.3, 0},
		{0, 0},
		{0.82, 0.82},
		{1, 1},
		{1.7, 1},
	}
	for _, tc := range cases {
		if got := clampScore(tc.in); got != tc.want {
			t.Errorf("clampScore(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
