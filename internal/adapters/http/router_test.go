package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type stubChatService struct {
	result  *domain.ChatResult
	err     error
	lastReq domain.ChatRequest
}

func (s *stubChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestRouter(chat *stubChatService) http.Handler {
	return NewRouter(chat, Options{Service: "test"}).Handler()
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&stubChatService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestChatReturnsAnswerPayload(t *testing.T) {
	chat := &stubChatService{result: &domain.ChatResult{
		Answer: domain.Answer{
			Text: "The VAT rate is 7.5% [1].",
			Sources: []domain.EvidenceItem{
				{Kind: domain.EvidenceVector, Provenance: domain.Provenance{Title: "VAT Act", Section: "s.4"}},
			},
			Confidence: 0.9,
			Valid:      true,
			ModelUsed:  "ollama/llama3.1:8b",
		},
		SessionID: "s-1",
		Stats:     domain.RetrievalStats{VectorResults: 1, FusedResults: 1},
	}}
	handler := newTestRouter(chat)

	rec := postChat(t, handler, `{"message":"What is the VAT rate?","session_id":"s-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload chatResponsePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Answer != "The VAT rate is 7.5% [1]." || payload.SessionID != "s-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Sources) != 1 || payload.Sources[0].Title != "VAT Act" || payload.Sources[0].Kind != "vector" {
		t.Fatalf("unexpected sources: %+v", payload.Sources)
	}
	if payload.Stats.FusedResults != 1 {
		t.Fatalf("unexpected stats: %+v", payload.Stats)
	}
	if !payload.Valid || payload.Confidence != 0.9 {
		t.Fatalf("unexpected validity: %+v", payload)
	}
}

func TestChatPassesHistoryAndContext(t *testing.T) {
	chat := &stubChatService{result: &domain.ChatResult{SessionID: "s-1"}}
	handler := newTestRouter(chat)

	body := `{"message":"Who pays it?","session_id":"s-1","conversation_history":[{"role":"user","content":"What is VAT?"},{"role":"assistant","content":"A tax."}],"context":{"audience":"SME"}}`
	rec := postChat(t, handler, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(chat.lastReq.History) != 2 || chat.lastReq.History[1].Role != domain.RoleAssistant {
		t.Fatalf("history not forwarded: %+v", chat.lastReq.History)
	}
	if chat.lastReq.History[0].Text != "What is VAT?" {
		t.Fatalf("turn content not forwarded: %+v", chat.lastReq.History[0])
	}
	if chat.lastReq.Context["audience"] != "SME" {
		t.Fatalf("context not forwarded: %+v", chat.lastReq.Context)
	}
}

func TestChatAcceptsLegacyHistoryFields(t *testing.T) {
	chat := &stubChatService{result: &domain.ChatResult{SessionID: "s-1"}}
	handler := newTestRouter(chat)

	body := `{"message":"Who pays it?","history":[{"role":"user","text":"What is VAT?"}]}`
	rec := postChat(t, handler, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(chat.lastReq.History) != 1 || chat.lastReq.History[0].Text != "What is VAT?" {
		t.Fatalf("legacy history not forwarded: %+v", chat.lastReq.History)
	}
}

func TestChatInvalidJSON(t *testing.T) {
	handler := newTestRouter(&stubChatService{})
	rec := postChat(t, handler, `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&stubChatService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestChatErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("too short")), http.StatusBadRequest},
		{"schema violation", domain.WrapError(domain.ErrSchemaViolation, "chat", errors.New("bad role")), http.StatusUnprocessableEntity},
		{"temporary", domain.WrapError(domain.ErrTemporary, "chat", errors.New("overloaded")), http.StatusServiceUnavailable},
		{"generation unavailable", domain.WrapError(domain.ErrGenerationUnavailable, "generate", errors.New("all providers failed")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestRouter(&stubChatService{err: tc.err})
		rec := postChat(t, handler, `{"message":"What is VAT?"}`)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestRequestIDHeaderIsSetAndEchoed(t *testing.T) {
	handler := newTestRouter(&stubChatService{result: &domain.ChatResult{SessionID: "s-1"}})

	rec := postChat(t, handler, `{"message":"What is VAT?"}`)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"What is VAT?"}`))
	req.Header.Set(requestIDHeader, "req-42")
	echo := httptest.NewRecorder()
	handler.ServeHTTP(echo, req)
	if echo.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected caller request id echoed, got %q", echo.Header().Get(requestIDHeader))
	}
}

func TestRateLimitReturns429(t *testing.T) {
	chat := &stubChatService{result: &domain.ChatResult{SessionID: "s-1"}}
	handler := NewRouter(chat, Options{Service: "test", RateLimitRPS: 0.001, RateLimitBurst: 1}).Handler()

	first := postChat(t, handler, `{"message":"What is VAT?"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", first.Code)
	}
	second := postChat(t, handler, `{"message":"What is VAT?"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", second.Code)
	}
}
