package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubProvider) GenerateJSON(_ context.Context, _ string) (string, error) {
	return s.Generate(context.Background(), "", "")
}

func TestNewChainRequiresProvider(t *testing.T) {
	if _, err := NewChain(); err == nil {
		t.Fatalf("expected error for empty chain")
	}
}

func TestChainReturnsFirstProviderAnswer(t *testing.T) {
	primary := &stubProvider{name: "ollama/llama3.1:8b", text: "answer"}
	secondary := &stubProvider{name: "openai/gpt-4o-mini", text: "unused"}
	chain, err := NewChain(primary, secondary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	generation, err := chain.Generate(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generation.Text != "answer" || generation.Model != "ollama/llama3.1:8b" {
		t.Fatalf("unexpected generation: %+v", generation)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary provider must not be called, got %d calls", secondary.calls)
	}
}

func TestChainFallsThroughToSecondary(t *testing.T) {
	primary := &stubProvider{name: "ollama/llama3.1:8b", err: errors.New("connection refused")}
	secondary := &stubProvider{name: "openai/gpt-4o-mini", text: "fallback answer"}
	chain, _ := NewChain(primary, secondary)

	generation, err := chain.Generate(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generation.Model != "openai/gpt-4o-mini" {
		t.Fatalf("expected fallback provider recorded, got %s", generation.Model)
	}
}

func TestChainTimeoutOnOneProviderStillFallsThrough(t *testing.T) {
	primary := &stubProvider{name: "ollama/llama3.1:8b", err: context.DeadlineExceeded}
	secondary := &stubProvider{name: "anthropic/claude-3-5-haiku-latest", text: "answer"}
	chain, _ := NewChain(primary, secondary)

	generation, err := chain.Generate(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("expected per-provider timeout to fall through, got %v", err)
	}
	if generation.Model != "anthropic/claude-3-5-haiku-latest" {
		t.Fatalf("unexpected provider: %s", generation.Model)
	}
}

func TestChainStopsOnRequestCancellation(t *testing.T) {
	primary := &stubProvider{name: "ollama/llama3.1:8b", err: context.Canceled}
	secondary := &stubProvider{name: "openai/gpt-4o-mini", text: "unused"}
	chain, _ := NewChain(primary, secondary)

	_, err := chain.Generate(context.Background(), "system", "user")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to propagate, got %v", err)
	}
	if secondary.calls != 0 {
		t.Fatalf("cancelled request must not try further providers")
	}
}

func TestChainAllProvidersFailed(t *testing.T) {
	primary := &stubProvider{name: "ollama/llama3.1:8b", err: errors.New("down")}
	secondary := &stubProvider{name: "openai/gpt-4o-mini", err: errors.New("quota exceeded")}
	chain, _ := NewChain(primary, secondary)

	_, err := chain.Generate(context.Background(), "system", "user")
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected generation unavailable, got %v", err)
	}
	if !errors.Is(err, secondary.err) {
		t.Fatalf("expected last provider error wrapped, got %v", err)
	}
}
