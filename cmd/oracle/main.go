package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/northlakelabs/weather-oracle/internal/adapter/http"
	kafkaadapter "github.com/northlakelabs/weather-oracle/internal/adapter/kafka"
	"github.com/northlakelabs/weather-oracle/internal/adapter/nws"
	"github.com/northlakelabs/weather-oracle/internal/calibration"
	"github.com/northlakelabs/weather-oracle/internal/config"
	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/ledger"
	"github.com/northlakelabs/weather-oracle/internal/observability"
	"github.com/northlakelabs/weather-oracle/internal/resolution"
	"github.com/northlakelabs/weather-oracle/internal/scheduler"
	"github.com/northlakelabs/weather-oracle/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// A corrupt ledger is a hard failure: starting with an empty ledger
	// would silently discard the accuracy history.
	store, err := ledger.Open(cfg.LedgerPath, nil, logger, metrics)
	if err != nil {
		logger.Error("failed to open prediction ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}

	stations := domain.DefaultStations()
	client := nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.NWSTimeout, cfg.NWSMaxRetries, logger, metrics)
	engine := calibration.NewEngine(calibration.DefaultSigmaTable(), nil)

	// Outcome publishing is feature-flagged via KAFKA_ENABLED.
	var publisher resolution.OutcomePublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka outcome publishing enabled", "topic", cfg.KafkaOutcomeTopic)
	} else {
		logger.Info("kafka outcome publishing disabled")
	}

	resolver := resolution.New(store, client, stations, publisher, nil, logger, metrics)
	svc := service.New(stations, client, client, engine, store, resolver, nil, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start background resolution loop.
	resolve := scheduler.New("resolution", cfg.ResolveInterval, nil, func(ctx context.Context) {
		if _, err := resolver.Resolve(ctx); err != nil {
			logger.Error("resolution pass failed", "error", err)
		}
	}, logger)
	go resolve.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
