package config

import "testing"

func TestLoadRetrievalAndFusionDefaults(t *testing.T) {
	t.Setenv("VECTOR_TOP_K", "")
	t.Setenv("VECTOR_MIN_SCORE", "")
	t.Setenv("FUSED_CAP", "")
	t.Setenv("FUSION_GRAPH_WEIGHT", "")
	t.Setenv("FUSION_SINGLE_SOURCE_PENALTY", "")
	t.Setenv("GRAPH_MAX_HOPS", "")
	t.Setenv("VALIDATION_THRESHOLD", "")

	cfg := Load()
	if cfg.VectorTopK != 5 {
		t.Fatalf("expected default vector top k 5, got %d", cfg.VectorTopK)
	}
	if cfg.VectorMinScore != 0.5 {
		t.Fatalf("expected default vector min score 0.5, got %f", cfg.VectorMinScore)
	}
	if cfg.FusedCap != 8 {
		t.Fatalf("expected default fused cap 8, got %d", cfg.FusedCap)
	}
	if cfg.FusionGraphWeight != 0.5 || cfg.FusionVectorWeight != 0.5 {
		t.Fatalf("expected default fusion weights 0.5/0.5, got %f/%f", cfg.FusionGraphWeight, cfg.FusionVectorWeight)
	}
	if cfg.FusionSingleSourcePenalty != 0.9 {
		t.Fatalf("expected default single source penalty 0.9, got %f", cfg.FusionSingleSourcePenalty)
	}
	if cfg.GraphMaxHops != 2 {
		t.Fatalf("expected default graph max hops 2, got %d", cfg.GraphMaxHops)
	}
	if cfg.ValidationThreshold != 0.4 {
		t.Fatalf("expected default validation threshold 0.4, got %f", cfg.ValidationThreshold)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("VECTOR_TOP_K", "10")
	t.Setenv("VECTOR_MIN_SCORE", "0.65")
	t.Setenv("LLM_PROVIDERS", "ollama,openai,anthropic")
	t.Setenv("GRAPH_ENTITY_MATCH", "exact")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.VectorTopK != 10 {
		t.Fatalf("expected vector top k 10, got %d", cfg.VectorTopK)
	}
	if cfg.VectorMinScore != 0.65 {
		t.Fatalf("expected vector min score 0.65, got %f", cfg.VectorMinScore)
	}
	if cfg.LLMProviders != "ollama,openai,anthropic" {
		t.Fatalf("expected provider order kept, got %q", cfg.LLMProviders)
	}
	if cfg.GraphEntityMatch != "exact" {
		t.Fatalf("expected entity match override, got %q", cfg.GraphEntityMatch)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %f", cfg.APIRateLimitRPS)
	}
}

func TestLoadIgnoresUnparseableNumbers(t *testing.T) {
	t.Setenv("VECTOR_TOP_K", "not-a-number")
	t.Setenv("VECTOR_MIN_SCORE", "half")

	cfg := Load()
	if cfg.VectorTopK != 5 {
		t.Fatalf("expected fallback for bad int, got %d", cfg.VectorTopK)
	}
	if cfg.VectorMinScore != 0.5 {
		t.Fatalf("expected fallback for bad float, got %f", cfg.VectorMinScore)
	}
}
