package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"

	"audio_extraction/config"
	"audio_extraction/entity"
	v1 "audio_extraction/internal/controller/http/v1"
	"audio_extraction/internal/controller/rmq"
	"audio_extraction/internal/extraction"
	"audio_extraction/internal/telemetry/metric"
	ttrace "audio_extraction/internal/telemetry/trace"
	"audio_extraction/pkg/audio_extractor"
	"audio_extraction/pkg/httpserver"
	"audio_extraction/pkg/logger"
)

// NewServer ...
func NewServer(cfg *config.Config) *Server {
	return &Server{l: logger.New(cfg.Log.Level)}
}

type Server struct {
	l                    *logger.Logger
	traceProviderCloseFn []ttrace.CloseFunc
}

// Run ...
func (s *Server) Run(ctx context.Context, cfg *config.Config) error {
	l := s.l
	l.Info("Starting %s %s...", cfg.App.Name, cfg.App.Version)

	if err := s.InitGlobalProvider(ctx, cfg); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metric.New(registry)

	extractor := audio_extractor.NewAudioExtractor(
		audio_extractor.WithFFmpegPath(cfg.Extraction.FFmpegPath),
		audio_extractor.WithFFprobePath(cfg.Extraction.FFprobePath),
	)
	verifyCtx, cancelVerify := context.WithTimeout(ctx, 5*time.Second)
	if err := extractor.VerifyInstalled(verifyCtx); err != nil {
		l.Warn("ffmpeg check failed, conversions will fail: %s", err.Error())
	}
	cancelVerify()

	var events entity.EventPublisher
	var publisher *rmq.AMQPPublisher
	if cfg.RMQ.URL != "" {
		p, err := rmq.NewAMQPPublisher(cfg.RMQ, l)
		if err != nil {
			return fmt.Errorf("app - Run - rmq.NewAMQPPublisher: %w", err)
		}
		publisher, events = p, p
	}

	usecase, err := extraction.NewExtractionUsecase(extraction.Options{
		UploadDir:              cfg.Storage.UploadDir,
		OutputDir:              cfg.Storage.OutputDir,
		AllowedInputExtensions: cfg.Extraction.AllowedInputExtensions,
		AllowedOutputFormats:   cfg.Extraction.AllowedOutputFormats,
		Timeout:                cfg.Extraction.Timeout,
	}, extractor, events, metrics, l)
	if err != nil {
		return fmt.Errorf("app - Run - extraction.NewExtractionUsecase: %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Retention.Enabled {
		sweeper := extraction.NewArtifactSweeper(cfg.Storage.OutputDir, cfg.Retention.ArtifactTTL, cfg.Retention.SweepInterval, metrics, l)
		go sweeper.Run(sweepCtx)
	}

	handler := gin.New()
	handler.MaxMultipartMemory = 32 << 20
	v1.NewRouter(handler, l, usecase, v1.Options{
		DefaultFormat:   cfg.Extraction.DefaultFormat,
		DeleteAfterSend: cfg.Retention.DeleteAfterSend,
		MaxUploadSize:   cfg.Server.MaxUploadSize,
	})
	httpServer := httpserver.New(s.cors().Handler(handler),
		httpserver.Port(cfg.Server.Port),
		httpserver.ReadTimeout(cfg.Server.ReadTimeout),
		httpserver.WriteTimeout(cfg.Server.WriteTimeout),
		httpserver.ShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
	l.Info("server serving on port %s", cfg.Server.Port)

	var metricsServer *httpserver.Server
	var metricsNotify <-chan error
	if cfg.OTEL.PrometheusPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(registry))
		metricsServer = httpserver.New(mux, httpserver.Port(cfg.OTEL.PrometheusPort))
		metricsNotify = metricsServer.Notify()
		l.Info("metrics serving on port %s", cfg.OTEL.PrometheusPort)
	}

	// Waiting signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-interrupt:
		l.Info("app - Run - signal: " + sig.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	case err = <-metricsNotify:
		l.Error(fmt.Errorf("app - Run - metricsServer.Notify: %w", err))
	case <-ctx.Done():
		l.Info("app - Run - context done")
	}

	l.Info("server stopped")
	stopSweep()

	// Shutdown
	if shutdownErr := httpServer.Shutdown(); shutdownErr != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", shutdownErr))
	}
	if metricsServer != nil {
		if shutdownErr := metricsServer.Shutdown(); shutdownErr != nil {
			l.Error(fmt.Errorf("app - Run - metricsServer.Shutdown: %w", shutdownErr))
		}
	}
	if publisher != nil {
		if closeErr := publisher.Close(); closeErr != nil {
			l.Error(fmt.Errorf("app - Run - publisher.Close: %w", closeErr))
		}
	}

	ctxShutDown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, closeFn := range s.traceProviderCloseFn {
		if closeErr := closeFn(ctxShutDown); closeErr != nil {
			l.Error(closeErr, "Unable to close trace provider")
		}
	}

	l.Info("server exited properly")

	return err
}

func (s *Server) cors() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"POST", "GET", "HEAD", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization"},
		ExposedHeaders:     []string{"Content-Disposition"},
		MaxAge:             60, // 1 minutes
		AllowCredentials:   true,
		OptionsPassthrough: false,
		Debug:              false,
	})
}
