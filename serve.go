package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/actions"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/llm"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/vector"
	"github.com/baYsed-BuidlAI/luna/internal/config"
	"github.com/baYsed-BuidlAI/luna/internal/events"
	"github.com/baYsed-BuidlAI/luna/internal/extract"
	"github.com/baYsed-BuidlAI/luna/internal/logging"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
	"github.com/baYsed-BuidlAI/luna/internal/reflection"
	store "github.com/baYsed-BuidlAI/luna/internal/repository"
	"github.com/baYsed-BuidlAI/luna/internal/service"
	handler "github.com/baYsed-BuidlAI/luna/internal/transport/http"
	"github.com/baYsed-BuidlAI/luna/internal/transport/ws"
	"github.com/baYsed-BuidlAI/luna/policy"
)

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent with its HTTP and websocket servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting agent",
		zap.String("agent_name", cfg.AgentName),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("internal_port", cfg.InternalPort),
		zap.String("database", cfg.DatabaseURL))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL, cfg.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	cfg.AgentID, err = service.ResolveAgentID(ctx, db, cfg.AgentID)
	if err != nil {
		return err
	}
	logger.Info("agent identity", zap.String("agent_id", cfg.AgentID))

	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logging.Component(logger, "llm"))
	invoker := llm.NewTieredInvoker(llmClient, cfg.SmallModel, cfg.LargeModel, m)

	embedder, err := embedding.NewEmbedder(llmClient, cfg.EmbeddingModel, cfg.EmbeddingCacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	facts, err := vector.NewFactIndex(embedder, cfg.VectorPersistPath)
	if err != nil {
		return fmt.Errorf("failed to initialize fact index: %w", err)
	}

	extractor := extract.NewClient(invoker, logging.Component(logger, "extract"))

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	registry := actions.NewRegistry()
	if err := actions.RegisterBuiltins(registry, db); err != nil {
		return fmt.Errorf("failed to register actions: %w", err)
	}
	executor := actions.NewExecutor(registry, policyEngine, logging.Component(logger, "actions"))

	svc := service.New(service.Options{
		AgentID:            cfg.AgentID,
		AgentName:          cfg.AgentName,
		ConversationLength: cfg.ConversationLength,
		Store:              db,
		Embedder:           embedder,
		Extractor:          extractor,
		Executor:           executor,
		Logger:             logging.Component(logger, "service"),
		Metrics:            m,
	})
	svc.AddEvaluator(reflection.New(reflection.Options{
		AgentID:            cfg.AgentID,
		AgentName:          cfg.AgentName,
		ConversationLength: cfg.ConversationLength,
		Store:              db,
		Embedder:           embedder,
		Facts:              facts,
		Extractor:          extractor,
		Logger:             logging.Component(logger, "reflection"),
		Metrics:            m,
	}))

	table := events.NewTable(logging.Component(logger, "events"), m)
	svc.RegisterHandlers(table)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(logging.Component(logger, "ws"))
	go hub.Run(hubCtx)
	svc.SetDelivery(hub)

	wsServer := ws.NewServer(ws.Settings{
		PingInterval:   cfg.WSPingInterval,
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadTimeout:    cfg.WSReadTimeout,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}, hub, svc, table, logging.Component(logger, "ws"))

	externalServer := handler.NewExternalServer(svc, table, wsServer, reg)
	internalServer := handler.NewInternalServer(table)

	errCh := make(chan error, 2)
	start := func(name string, e *echo.Echo, port int) {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("server listening", zap.String("server", name), zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go start("external", externalServer, cfg.HTTPPort)
	go start("internal", internalServer, cfg.InternalPort)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown external server gracefully", zap.Error(err))
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown internal server gracefully", zap.Error(err))
	}

	// Handlers still running may deliver to the hub, so it stops last.
	table.Wait()
	stopHub()

	logger.Info("agent stopped", zap.Int("indexed_facts", facts.Count()))
	return runErr
}
