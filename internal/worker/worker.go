package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"audio_extraction/config"
	"audio_extraction/internal/extraction"
	"audio_extraction/internal/telemetry/metric"
	"audio_extraction/pkg/httpserver"
	"audio_extraction/pkg/logger"
)

// NewWorker ...
func NewWorker(cfg *config.Config) *Worker {
	return &Worker{l: logger.New(cfg.Log.Level)}
}

// Worker sweeps expired audio files out of the output directory.
// It lets several API replicas share one output volume without each running its own sweeper.
type Worker struct {
	l *logger.Logger
}

// Run blocks until a signal arrives or ctx is done.
func (w *Worker) Run(ctx context.Context, cfg *config.Config) error {
	l := w.l

	if cfg.Retention.ArtifactTTL <= 0 || cfg.Retention.SweepInterval <= 0 {
		return fmt.Errorf("worker - Run: retention ttl and sweep interval must be positive")
	}

	registry := prometheus.NewRegistry()
	metrics := metric.New(registry)

	var metricsServer *httpserver.Server
	var metricsNotify <-chan error
	if cfg.OTEL.PrometheusPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(registry))
		metricsServer = httpserver.New(mux, httpserver.Port(cfg.OTEL.PrometheusPort))
		metricsNotify = metricsServer.Notify()
	}

	sweepCtx, stop := context.WithCancel(ctx)
	defer stop()

	sweeper := extraction.NewArtifactSweeper(cfg.Storage.OutputDir, cfg.Retention.ArtifactTTL, cfg.Retention.SweepInterval, metrics, l)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(sweepCtx)
	}()

	l.Info("sweeper worker started on %s (ttl %s)", cfg.Storage.OutputDir, cfg.Retention.ArtifactTTL)

	// Waiting signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var err error
	select {
	case sig := <-interrupt:
		l.Info("worker - Run - signal: " + sig.String())
	case err = <-metricsNotify:
		l.Error(fmt.Errorf("worker - Run - metricsServer.Notify: %w", err))
	case <-ctx.Done():
	}

	stop()
	<-done

	if metricsServer != nil {
		if shutdownErr := metricsServer.Shutdown(); shutdownErr != nil {
			l.Error(fmt.Errorf("worker - Run - metricsServer.Shutdown: %w", shutdownErr))
		}
	}

	l.Info("worker exited properly")

	return err
}
