// cmd/triage-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mental-triage/internal/alerts"
	"mental-triage/internal/api"
	awsclients "mental-triage/internal/common/aws"
	"mental-triage/internal/common/config"
	"mental-triage/internal/common/database"
	"mental-triage/internal/common/logger"
	"mental-triage/internal/common/observability"
	"mental-triage/internal/generator"
	"mental-triage/internal/storage"
	"mental-triage/internal/triage/analysis"
	"mental-triage/internal/triage/catalog"
	"mental-triage/internal/triage/conversation"
	"mental-triage/internal/triage/rules"
)

const sweepInterval = time.Minute

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting triage server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("storageDriver", cfg.Storage.Driver),
		zap.String("analysisSource", cfg.Conversation.AnalysisSource),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tracing, err := observability.NewTracing(ctx, observability.TracingOptions{
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		}, log)
		if err != nil {
			zapLog.Fatal("tracing init failed", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				zapLog.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}

	// --- Rules and catalog ---
	ruleSet, err := rules.Load(cfg.Conversation.RulesPath)
	if err != nil {
		zapLog.Fatal("rules load failed", zap.Error(err))
	}
	questions := catalog.Default()

	// --- Storage ---
	health := database.NewHealth()
	store, closeStore, err := openStore(ctx, cfg.Storage, log, health, zapLog)
	if err != nil {
		zapLog.Fatal("storage init failed", zap.Error(err))
	}
	defer closeStore()

	// --- Analysis source ---
	var source analysis.Source = analysis.NewRuleEngine(ruleSet)
	if cfg.Conversation.AnalysisSource == config.SourceGenerator {
		gen, err := generator.New(cfg.Generator, questions, log)
		if err != nil {
			zapLog.Fatal("generator init failed", zap.Error(err))
		}
		source = gen
	}
	pipeline := analysis.NewPipeline(source, analysis.NewValidator(nil), log)

	// --- Alerts ---
	var notifier conversation.Notifier
	if cfg.Alerts.Enabled {
		clients, err := awsclients.NewClients(ctx, cfg.Alerts.Region)
		if err != nil {
			zapLog.Fatal("aws clients init failed", zap.Error(err))
		}
		notifier = alerts.New(cfg.Alerts, clients.SES, clients.SNS, log)
		zapLog.Info("High urgency alerts enabled",
			zap.Bool("sns", cfg.Alerts.SNS.Enabled),
			zap.Bool("ses", cfg.Alerts.SES.Enabled),
		)
	}

	// --- Sessions ---
	registry := conversation.NewRegistry(func(id string) *conversation.Controller {
		return conversation.NewController(id, conversation.Deps{
			Catalog:          questions,
			Risk:             ruleSet.RiskMatcher(),
			Analyzer:         pipeline,
			Store:            store,
			Notifier:         notifier,
			Logger:           log,
			MaxMessageLength: cfg.Conversation.MaxMessageLength,
			SchemaVersion:    cfg.Conversation.SchemaVersion,
		})
	})
	go sweepSessions(ctx, registry, time.Duration(cfg.Server.SessionIdleTTL)*time.Second, zapLog)

	// --- HTTP server ---
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(api.NewHandler(registry, store, log), health, obs),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Triage server stopped")
}

// openStore builds the configured driver and registers its backend for /ready.
func openStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger, health *database.Health, zapLog *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(ctx, cfg.Postgres)
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pg.DB, log)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		health.Register("postgres", pg)
		zapLog.Info("PostgreSQL connected successfully")
		return store, func() { _ = pg.Close() }, nil

	case config.DriverRedis:
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(ctx, cfg.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return nil, nil, err
		}
		health.Register("redis", rc)
		zapLog.Info("Redis connected successfully")
		return storage.NewRedisStore(rc.Client, cfg.Redis.KeyPrefix, log), func() { _ = rc.Close() }, nil

	default:
		store, err := storage.NewFileStore(cfg.File.Dir, log)
		if err != nil {
			return nil, nil, err
		}
		zapLog.Info("File store ready", zap.String("dir", cfg.File.Dir))
		return store, func() {}, nil
	}
}

func sweepSessions(ctx context.Context, registry *conversation.Registry, maxIdle time.Duration, zapLog *zap.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(maxIdle); n > 0 {
				zapLog.Info("idle sessions removed", zap.Int("count", n), zap.Int("remaining", registry.Len()))
			}
		}
	}
}
