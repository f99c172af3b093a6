package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ntria/tax-assistant/internal/infrastructure/resilience"
)

// ClassifyError decides how the resilience executor treats a failed Ollama
// call. Cancellations are neither retried nor counted against the breaker.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ResilientClient decorates the raw client with retry and circuit breaking.
// It satisfies the same generator interface as the client itself.
type ResilientClient struct {
	client   *Client
	executor *resilience.Executor
}

func NewResilientClient(client *Client, executor *resilience.Executor) *ResilientClient {
	return &ResilientClient{client: client, executor: executor}
}

func (r *ResilientClient) Name() string {
	return r.client.Name()
}

func (r *ResilientClient) Generate(ctx context.Context, system, user string) (string, error) {
	var out string
	err := r.executor.Execute(ctx, "ollama.generate", func(callCtx context.Context) error {
		var callErr error
		out, callErr = r.client.Generate(callCtx, system, user)
		return callErr
	}, ClassifyError)
	return out, err
}

func (r *ResilientClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.executor.Execute(ctx, "ollama.generate_json", func(callCtx context.Context) error {
		var callErr error
		out, callErr = r.client.GenerateJSON(callCtx, prompt)
		return callErr
	}, ClassifyError)
	return out, err
}

// ResilientEmbedder decorates the embedder the same way.
type ResilientEmbedder struct {
	embedder *Embedder
	executor *resilience.Executor
}

func NewResilientEmbedder(embedder *Embedder, executor *resilience.Executor) *ResilientEmbedder {
	return &ResilientEmbedder{embedder: embedder, executor: executor}
}

func (r *ResilientEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.executor.Execute(ctx, "ollama.embed", func(callCtx context.Context) error {
		var callErr error
		out, callErr = r.embedder.EmbedQuery(callCtx, text)
		return callErr
	}, ClassifyError)
	return out, err
}
