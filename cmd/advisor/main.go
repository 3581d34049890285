package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crop-advisor-service/internal/adapter/gemini"
	"github.com/couchcryptid/crop-advisor-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/crop-advisor-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-advisor-service/internal/config"
	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
	"github.com/couchcryptid/crop-advisor-service/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	gin.SetMode(gin.ReleaseMode)

	// Initialize advisor (remote calls only when GEMINI_API_KEY is set).
	var advisor domain.Advisor = gemini.NewClient(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		Timeout:    cfg.GeminiTimeout,
		RetryCount: cfg.GeminiRetryCount,
	}, metrics, logger)
	if cfg.GeminiAPIKey == "" {
		logger.Info("gemini advice disabled, serving fallback answers")
	} else {
		logger.Info("gemini advice enabled", "model", cfg.GeminiModel, "timeout", cfg.GeminiTimeout)
		if cfg.AdviceCacheSize > 0 {
			cached, err := gemini.NewCachedAdvisor(advisor, cfg.AdviceCacheSize, cfg.AdviceCacheTTL, clockwork.NewRealClock(), metrics)
			if err != nil {
				logger.Error("failed to create advice cache", "error", err)
				os.Exit(1)
			}
			advisor = cached
			logger.Info("advice cache enabled", "size", cfg.AdviceCacheSize, "ttl", cfg.AdviceCacheTTL)
		}
	}

	deps := httpadapter.Dependencies{
		Advisor:        advisor,
		Prices:         domain.NewPriceSimulator(nil),
		Metrics:        metrics,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}

	// Initialize event stream (feature-flagged via KAFKA_BROKERS).
	var (
		writer     *kafkaadapter.Writer
		dispatcher *pipeline.Dispatcher
	)
	if cfg.EventsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		dispatcher = pipeline.New(writer, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval, cfg.EventBufferSize)
		deps.Events = dispatcher
		deps.Ready = dispatcher
		logger.Info("event stream enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("event stream disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start event dispatcher. It outlives the signal context so that handlers
	// still in flight during HTTP shutdown can publish.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		if dispatcher == nil {
			return
		}
		if err := dispatcher.Run(dispatchCtx); err != nil {
			logger.Error("event dispatcher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopDispatch()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	select {
	case <-dispatched:
	case <-drainCtx.Done():
		logger.Warn("event dispatcher did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
