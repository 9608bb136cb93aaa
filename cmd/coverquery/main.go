// Command coverquery runs the plan-coverage answer engine API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/benefitlens/coverquery/internal/config"
	"github.com/benefitlens/coverquery/internal/db/redis"
	"github.com/benefitlens/coverquery/internal/domain"
	"github.com/benefitlens/coverquery/internal/logger"
	"github.com/benefitlens/coverquery/internal/metrics"
	"github.com/benefitlens/coverquery/internal/repository/semantic"
	"github.com/benefitlens/coverquery/internal/repository/structured"
	chitransport "github.com/benefitlens/coverquery/internal/transport/chi"
	"github.com/benefitlens/coverquery/internal/transport/openai"
	"github.com/benefitlens/coverquery/internal/usecase/answer"
	"github.com/benefitlens/coverquery/internal/usecase/classify"
	"github.com/benefitlens/coverquery/internal/usecase/health"
	"github.com/benefitlens/coverquery/internal/usecase/retrieve"
	"github.com/benefitlens/coverquery/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coverquery: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting coverquery",
		zap.String("env", env),
		zap.String("version", version.Version),
		zap.String("commit", version.Commit))

	// Structured store (Postgres).
	pg, err := sql.Open("postgres", cfg.Structured.DSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer pg.Close()
	pg.SetMaxOpenConns(cfg.Structured.MaxOpenConns)
	pg.SetMaxIdleConns(cfg.Structured.MaxIdleConns)

	readyCtx, cancelReady := context.WithTimeout(context.Background(),
		time.Duration(cfg.Structured.ReadinessTimeout)*time.Second)
	err = pg.PingContext(readyCtx)
	cancelReady()
	if err != nil {
		return fmt.Errorf("postgres not ready: %w", err)
	}

	// Semantic store (Redis + RediSearch).
	vectorStore, err := redis.NewStore(redis.Config{
		Addrs:    cfg.Semantic.Addrs,
		Username: cfg.Semantic.Username,
		Password: cfg.Semantic.Password,
	})
	if err != nil {
		return fmt.Errorf("create vector store: %w", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.WaitForReady(context.Background(),
		time.Duration(cfg.Semantic.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	embedder := openai.NewEmbedder(&openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     log,
	})

	// Retrieval paths.
	structuredRepo := structured.NewRepo(pg)
	semanticRepo := semantic.NewRepo(vectorStore, embedder, cfg.Semantic.IndexPrefix)

	executor := retrieve.NewExecutor(structuredRepo, semanticRepo, retrieve.Config{
		StructuredTimeout: time.Duration(cfg.Structured.TimeoutMS) * time.Millisecond,
		SemanticTimeout:   time.Duration(cfg.Semantic.TimeoutMS) * time.Millisecond,
		RouteBudget:       time.Duration(cfg.Engine.RouteBudgetMS) * time.Millisecond,
		DefaultTopK:       cfg.Semantic.TopK,
	}, metrics.Engine{}, log)

	classifier := classify.New(classify.DefaultMargin, classify.DefaultMinScore)

	answerSvc := answer.NewService(classifier, executor, answer.Config{
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		RouteWeights:        routeWeights(cfg.Engine.RouteWeights),
	}, metrics.Engine{}, log)

	healthSvc := health.New(pg, vectorStore, embedder)

	server := chitransport.NewServer(answerSvc, healthSvc, log)
	router := server.Router(chitransport.BearerAuthMiddleware(cfg.Auth.APIKeys))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.HTTP.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("stopped")
	return nil
}

// routeWeights converts the YAML category keys to domain categories,
// dropping unknown names.
func routeWeights(raw map[string]float64) map[domain.Category]float64 {
	if len(raw) == 0 {
		return nil
	}
	weights := make(map[domain.Category]float64, len(raw))
	for name, w := range raw {
		cat := domain.Category(name)
		if cat.IsValid() && cat.Routable() {
			weights[cat] = w
		}
	}
	return weights
}
