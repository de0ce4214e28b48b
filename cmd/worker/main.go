package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/athlete-rag/internal/bootstrap"
	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/observability/logging"
	"github.com/kirillkom/athlete-rag/internal/observability/metrics"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingestionMetrics := metrics.NewIngestionMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:            logger,
		WithQueue:         true,
		Observer:          ingestionMetrics,
		IngestionObserver: ingestionMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           ingestionMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "collection", app.Collection.Name)
	err = app.Queue.SubscribeRebuildRequested(ctx, func(handlerCtx context.Context, req domain.RebuildRequest) error {
		if req.Collection != "" && req.Collection != app.Collection.Name {
			logger.Warn("rebuild_request_ignored", "request_id", req.ID, "collection", req.Collection)
			return nil
		}
		if !req.RequestedAt.IsZero() {
			ingestionMetrics.ObserveQueueLag(time.Since(req.RequestedAt))
		}

		ingestionMetrics.StartRun()
		defer ingestionMetrics.FinishRun()

		rebuildCtx, cancel := context.WithTimeout(handlerCtx, cfg.RebuildTimeout)
		defer cancel()
		report, err := app.IngestUC.Rebuild(rebuildCtx)
		if err != nil {
			return err
		}
		logger.Info("rebuild_request_completed", "request_id", req.ID, "run_id", report.RunID, "indexed", report.Indexed)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
