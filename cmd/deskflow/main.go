package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/config"
	openaiembedder "github.com/sweetpotato0/deskflow/contrib/embedder/openai"
	"github.com/sweetpotato0/deskflow/contrib/provider/claude"
	"github.com/sweetpotato0/deskflow/contrib/provider/gemini"
	"github.com/sweetpotato0/deskflow/contrib/provider/openai"
	"github.com/sweetpotato0/deskflow/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/deskflow/contrib/vector/inmemory"
	"github.com/sweetpotato0/deskflow/contrib/vector/pg"
	"github.com/sweetpotato0/deskflow/knowledge"
	deskmcp "github.com/sweetpotato0/deskflow/mcp"
	"github.com/sweetpotato0/deskflow/middleware"
	"github.com/sweetpotato0/deskflow/pipeline"
	"github.com/sweetpotato0/deskflow/pkg/logging"
	"github.com/sweetpotato0/deskflow/pkg/telemetry"
	"github.com/sweetpotato0/deskflow/server"
	"github.com/sweetpotato0/deskflow/session"
	sessionstore "github.com/sweetpotato0/deskflow/session/store"
	"github.com/sweetpotato0/deskflow/ticket"
	ticketstore "github.com/sweetpotato0/deskflow/ticket/store"
	"github.com/sweetpotato0/deskflow/vector"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deskflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.SetLevel(cfg.LogLevel)
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "deskflow",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Disable:        cfg.TelemetryDisable,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	llm, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	llm = middleware.Wrap(llm,
		middleware.Logging(logging.WithComponent("llm")),
		middleware.RateLimit(120, time.Minute),
		middleware.MaxPromptBytes(256<<10),
	)

	provider, err := newKnowledgeProvider(ctx, cfg)
	if err != nil {
		return err
	}

	sessions := session.NewManager(newSessionStore(cfg))

	tickets, err := newTicketStore(cfg)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithRefinementAttemptLimit(cfg.RefinementAttemptLimit),
		pipeline.WithProviderTimeout(cfg.ProviderTimeout),
	}
	if counter, err := tiktoken.New(cfg.OpenAIModel); err == nil {
		opts = append(opts, pipeline.WithTokenCounter(counter))
	} else {
		logger.Warn("tokenizer unavailable, passages will not be budgeted", "error", err)
	}

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Clients{Default: llm}, provider, sessions, tickets, opts...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	mcpServer := deskmcp.NewServer(orchestrator, version)
	if *mcpStdio {
		logger.Info("serving MCP over stdio")
		return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return mcpServer
	}, nil))
	mux.Handle("/", server.NewHandler(orchestrator).Router())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Addr, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func newLLMClient(ctx context.Context, cfg *config.Config) (agent.LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(&openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
		}), nil
	case "claude":
		return claude.New(&claude.Config{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Temperature: cfg.Temperature,
		}), nil
	case "gemini":
		return gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: float32(cfg.Temperature),
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newKnowledgeProvider(ctx context.Context, cfg *config.Config) (knowledge.Provider, error) {
	var store vector.VectorStore
	switch cfg.VectorBackend {
	case "pg":
		pgStore, err := pg.NewPGVectorStore(&pg.PGVectorConfig{
			Host:      cfg.PostgresHost,
			Port:      cfg.PostgresPort,
			User:      cfg.PostgresUser,
			Password:  cfg.PostgresPassword,
			DBName:    cfg.PostgresDB,
			SSLMode:   cfg.PostgresSSLMode,
			Dimension: cfg.EmbeddingDimension,
		})
		if err != nil {
			return nil, fmt.Errorf("connect pgvector: %w", err)
		}
		store = pgStore
	default:
		store = inmemory.NewInMemoryVectorStore()
	}

	embedder := openaiembedder.New(
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		openaisdk.EmbeddingModel(cfg.EmbeddingModel),
		cfg.EmbeddingDimension,
	)

	retriever, err := knowledge.NewRetriever(embedder, store, knowledge.DefaultRetrieverConfig())
	if err != nil {
		return nil, fmt.Errorf("build retriever: %w", err)
	}

	// The built-in corpus is only seeded into an empty store so a persistent
	// pgvector backend keeps externally loaded passages.
	if n, err := retriever.Count(ctx); err == nil && n == 0 {
		if err := retriever.Index(ctx, knowledge.DefaultCorpus()...); err != nil {
			return nil, fmt.Errorf("index corpus: %w", err)
		}
	}
	return retriever, nil
}

func newSessionStore(cfg *config.Config) session.Store {
	if cfg.SessionBackend != "redis" {
		return nil
	}
	return sessionstore.NewRedisStore(&sessionstore.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newTicketStore(cfg *config.Config) (ticket.Store, error) {
	switch cfg.TicketBackend {
	case "postgres":
		store, err := ticketstore.NewPostgresStore(&ticketstore.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres tickets: %w", err)
		}
		return store, nil
	case "mongo":
		store, err := ticketstore.NewMongoStore(&ticketstore.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo tickets: %w", err)
		}
		return store, nil
	default:
		return ticketstore.NewInMemoryStore(), nil
	}
}
