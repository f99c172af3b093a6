package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN string

	Neo4jURI         string
	Neo4jUser        string
	Neo4jPassword    string
	Neo4jDatabase    string
	GraphEntityMatch string
	GraphMaxHops     int
	GraphVisitCap    int

	QdrantURL        string
	QdrantCollection string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	AnthropicAPIKey string
	AnthropicModel  string

	LLMProviders string

	NATSURL     string
	NATSSubject string

	SerperAPIKey string

	HistoryTurns   int
	VectorTopK     int
	VectorMinScore float64

	FusedCap                  int
	FusionGraphWeight         float64
	FusionVectorWeight        float64
	FusionSingleSourcePenalty float64

	ValidationThreshold    float64
	ValidationEmptyCeiling float64
	CorroborationBonus     float64

	PromptBudgetChars int

	RewriteTimeoutSeconds   int
	RetrieverTimeoutSeconds int
	WebSearchTimeoutSeconds int

	APIRateLimitRPS   float64
	APIRateLimitBurst int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		Neo4jURI:         mustEnv("NEO4J_URI", ""),
		Neo4jUser:        mustEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    mustEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:    mustEnv("NEO4J_DATABASE", "neo4j"),
		GraphEntityMatch: mustEnv("GRAPH_ENTITY_MATCH", "contains"),
		GraphMaxHops:     mustEnvInt("GRAPH_MAX_HOPS", 2),
		GraphVisitCap:    mustEnvInt("GRAPH_VISIT_CAP", 50),

		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "tax_documents"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: mustEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   mustEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AnthropicAPIKey: mustEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  mustEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		LLMProviders: mustEnv("LLM_PROVIDERS", "ollama"),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "chat.turns"),

		SerperAPIKey: mustEnv("SERPER_API_KEY", ""),

		HistoryTurns:   mustEnvInt("HISTORY_TURNS", 6),
		VectorTopK:     mustEnvInt("VECTOR_TOP_K", 5),
		VectorMinScore: mustEnvFloat("VECTOR_MIN_SCORE", 0.5),

		FusedCap:                  mustEnvInt("FUSED_CAP", 8),
		FusionGraphWeight:         mustEnvFloat("FUSION_GRAPH_WEIGHT", 0.5),
		FusionVectorWeight:        mustEnvFloat("FUSION_VECTOR_WEIGHT", 0.5),
		FusionSingleSourcePenalty: mustEnvFloat("FUSION_SINGLE_SOURCE_PENALTY", 0.9),

		ValidationThreshold:    mustEnvFloat("VALIDATION_THRESHOLD", 0.4),
		ValidationEmptyCeiling: mustEnvFloat("VALIDATION_EMPTY_CEILING", 0.3),
		CorroborationBonus:     mustEnvFloat("CORROBORATION_BONUS", 0.1),

		PromptBudgetChars: mustEnvInt("PROMPT_BUDGET_CHARS", 9000),

		RewriteTimeoutSeconds:   mustEnvInt("REWRITE_TIMEOUT_SECONDS", 10),
		RetrieverTimeoutSeconds: mustEnvInt("RETRIEVER_TIMEOUT_SECONDS", 8),
		WebSearchTimeoutSeconds: mustEnvInt("WEB_SEARCH_TIMEOUT_SECONDS", 6),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
