package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ntria/tax-assistant/internal/core/domain"
	"github.com/ntria/tax-assistant/internal/core/ports"
	"github.com/ntria/tax-assistant/internal/observability/metrics"
)

type Router struct {
	chat       ports.ChatService
	metrics    *metrics.HTTPServerMetrics
	service    string
	rateLimits *rateLimiter
}

type Options struct {
	Service        string
	Metrics        *metrics.HTTPServerMetrics
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(chat ports.ChatService, opts Options) *Router {
	service := opts.Service
	if service == "" {
		service = "tax-assistant"
	}
	return &Router{
		chat:       chat,
		metrics:    opts.Metrics,
		service:    service,
		rateLimits: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/v1/chat", rt.postChat)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimits.middleware(handler)
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatTurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Text is accepted as a legacy alias for Content.
	Text string `json:"text"`
}

func (p chatTurnPayload) text() string {
	if p.Content != "" {
		return p.Content
	}
	return p.Text
}

type chatRequestPayload struct {
	Message   string            `json:"message"`
	SessionID string            `json:"session_id"`
	History   []chatTurnPayload `json:"conversation_history"`
	// LegacyHistory is accepted as an alias for History.
	LegacyHistory []chatTurnPayload `json:"history"`
	Context       map[string]string `json:"context"`
}

func (p chatRequestPayload) history() []chatTurnPayload {
	if len(p.History) > 0 {
		return p.History
	}
	return p.LegacyHistory
}

type sourcePayload struct {
	Title   string `json:"title"`
	Section string `json:"section,omitempty"`
	Kind    string `json:"kind"`
}

type chatResponsePayload struct {
	Answer     string          `json:"answer"`
	Sources    []sourcePayload `json:"sources"`
	Confidence float64         `json:"confidence"`
	Valid      bool            `json:"valid"`
	SessionID  string          `json:"session_id"`
	Stats      statsPayload    `json:"retrieval_stats"`
}

type statsPayload struct {
	GraphResults  int `json:"graph_results"`
	VectorResults int `json:"vector_results"`
	FusedResults  int `json:"fused_results"`
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload chatRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	req := domain.ChatRequest{
		Message:   payload.Message,
		SessionID: strings.TrimSpace(payload.SessionID),
		Context:   payload.Context,
	}
	for _, turn := range payload.history() {
		req.History = append(req.History, domain.ConversationTurn{
			Role: turn.Role,
			Text: turn.text(),
		})
	}

	start := time.Now()
	result, err := rt.chat.Chat(r.Context(), req)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("chat_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		if rt.metrics != nil {
			rt.metrics.RecordChatRequest(rt.service, "error", time.Since(start))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordChatRequest(rt.service, "ok", time.Since(start))
		rt.metrics.RecordRetrieval(rt.service, result.Stats.FusedResults)
		rt.metrics.RecordProviderUsed(rt.service, result.Answer.ModelUsed)
		if !result.Answer.Valid {
			rt.metrics.RecordInvalidAnswer(rt.service)
		}
	}

	sources := make([]sourcePayload, 0, len(result.Answer.Sources))
	for _, src := range result.Answer.Sources {
		sources = append(sources, sourcePayload{
			Title:   src.Provenance.Title,
			Section: src.Provenance.Section,
			Kind:    string(src.Kind),
		})
	}

	writeJSON(w, http.StatusOK, chatResponsePayload{
		Answer:     result.Answer.Text,
		Sources:    sources,
		Confidence: result.Answer.Confidence,
		Valid:      result.Answer.Valid,
		SessionID:  result.SessionID,
		Stats: statsPayload{
			GraphResults:  result.Stats.GraphResults,
			VectorResults: result.Stats.VectorResults,
			FusedResults:  result.Stats.FusedResults,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
