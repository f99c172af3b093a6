package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

// Client searches the pre-populated document index. The index is read-only
// at query time; this client deliberately has no upsert path.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.EvidenceItem, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.EvidenceItem, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.EvidenceItem{
			ID:   fmt.Sprintf("chunk:%v", r.ID),
			Kind: domain.EvidenceVector,
			Text: getStringPayload(r.Payload, "text"),
			Provenance: domain.Provenance{
				Title:   getStringPayload(r.Payload, "source"),
				Section: sectionFromPayload(r.Payload),
			},
			RawScore: clampScore(r.Score),
		})
	}
	return out, nil
}

// clampScore pins the index's similarity onto [0,1]. Cosine similarity of
// text embeddings is non-negative in practice; anything outside the range is
// truncated rather than rescaled so thresholds keep their meaning.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func sectionFromPayload(payload map[string]any) string {
	if section := getStringPayload(payload, "section"); section != "" {
		return section
	}
	if page := getStringPayload(payload, "page"); page != "" {
		return "p. " + page
	}
	return ""
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
