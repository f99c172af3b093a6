package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ntria/tax-assistant/internal/config"
	"github.com/ntria/tax-assistant/internal/core/ports"
	"github.com/ntria/tax-assistant/internal/core/usecase"
	"github.com/ntria/tax-assistant/internal/infrastructure/graph/neo4j"
	"github.com/ntria/tax-assistant/internal/infrastructure/llm"
	"github.com/ntria/tax-assistant/internal/infrastructure/llm/anthropic"
	"github.com/ntria/tax-assistant/internal/infrastructure/llm/ollama"
	"github.com/ntria/tax-assistant/internal/infrastructure/llm/openai"
	"github.com/ntria/tax-assistant/internal/infrastructure/queue/nats"
	"github.com/ntria/tax-assistant/internal/infrastructure/resilience"
	"github.com/ntria/tax-assistant/internal/infrastructure/search/serper"
	"github.com/ntria/tax-assistant/internal/infrastructure/session/memory"
	"github.com/ntria/tax-assistant/internal/infrastructure/session/postgres"
	"github.com/ntria/tax-assistant/internal/infrastructure/vector/qdrant"
	"github.com/ntria/tax-assistant/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics
	ChatUC  ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var closers []func()

	sessions, sessionClose, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sessionClose != nil {
		closers = append(closers, sessionClose)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	generator, embedder, err := buildLLM(cfg, executor)
	if err != nil {
		return nil, err
	}

	var (
		resolver ports.EntityResolver
		graph    ports.GraphStore
	)
	if cfg.Neo4jURI != "" {
		graphClient, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, fmt.Errorf("init neo4j: %w", err)
		}
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graphClient.Close(closeCtx)
		})
		resolver = neo4j.NewResolver(cfg.GraphEntityMatch, graphClient)
		graph = graphClient
	} else {
		slog.Info("graph_store_disabled", "reason", "NEO4J_URI is empty")
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	rewriter := usecase.NewRewriter(generator, time.Duration(cfg.RewriteTimeoutSeconds)*time.Second)

	chatUC := usecase.NewChatUseCase(
		rewriter,
		resolver,
		graph,
		embedder,
		vectorDB,
		generator,
		sessions,
		usecase.Limits{
			HistoryTurns:         cfg.HistoryTurns,
			GraphMaxHops:         cfg.GraphMaxHops,
			GraphVisitCap:        cfg.GraphVisitCap,
			VectorTopK:           cfg.VectorTopK,
			VectorMinScore:       cfg.VectorMinScore,
			FusedCap:             cfg.FusedCap,
			GraphWeight:          cfg.FusionGraphWeight,
			VectorWeight:         cfg.FusionVectorWeight,
			SingleSourcePenalty:  cfg.FusionSingleSourcePenalty,
			PromptBudgetChars:    cfg.PromptBudgetChars,
			ValidityThreshold:    cfg.ValidationThreshold,
			EmptyEvidenceCeiling: cfg.ValidationEmptyCeiling,
			CorroborationBonus:   cfg.CorroborationBonus,
			RewriteTimeout:       time.Duration(cfg.RewriteTimeoutSeconds) * time.Second,
			RetrieverTimeout:     time.Duration(cfg.RetrieverTimeoutSeconds) * time.Second,
			WebSearchTimeout:     time.Duration(cfg.WebSearchTimeoutSeconds) * time.Second,
		},
	)

	if cfg.SerperAPIKey != "" {
		chatUC = chatUC.WithWebSearch(serper.New(cfg.SerperAPIKey))
	}

	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats: %w", err)
		}
		closers = append(closers, publisher.Close)
		chatUC = chatUC.WithEventPublisher(publisher)
	}

	return &App{
		Config:  cfg,
		Metrics: metrics.NewHTTPServerMetrics("tax-assistant"),
		ChatUC:  chatUC,
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func buildSessionStore(ctx context.Context, cfg config.Config) (ports.SessionStore, func(), error) {
	if cfg.PostgresDSN == "" {
		slog.Info("session_store_in_memory", "reason", "POSTGRES_DSN is empty")
		return memory.NewStore(0), nil, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure session schema: %w", err)
	}
	return store, func() { _ = db.Close() }, nil
}

// buildLLM assembles the ordered provider fallback chain and the embedder.
// Embeddings always go through Ollama regardless of the generation chain.
func buildLLM(cfg config.Config, executor *resilience.Executor) (ports.AnswerGenerator, ports.Embedder, error) {
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewResilientEmbedder(ollama.NewEmbedder(ollamaClient), executor)

	var providers []ports.TextGenerator
	for _, name := range strings.Split(cfg.LLMProviders, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case "ollama":
			providers = append(providers, ollama.NewResilientClient(ollamaClient, executor))
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				slog.Warn("llm_provider_skipped", "provider", "openai", "reason", "OPENAI_API_KEY is empty")
				continue
			}
			providers = append(providers, openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				slog.Warn("llm_provider_skipped", "provider", "anthropic", "reason", "ANTHROPIC_API_KEY is empty")
				continue
			}
			providers = append(providers, anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel))
		default:
			return nil, nil, fmt.Errorf("unknown llm provider %q", name)
		}
	}

	chain, err := llm.NewChain(providers...)
	if err != nil {
		return nil, nil, fmt.Errorf("build llm chain: %w", err)
	}
	return chain, embedder, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
