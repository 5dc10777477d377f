// Package app assembles the HTTP service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/iconidentify/gifgrab/internal/api"
	"github.com/iconidentify/gifgrab/internal/api/handler"
	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/metrics"
	"github.com/iconidentify/gifgrab/internal/service"
	"github.com/iconidentify/gifgrab/internal/worker"
)

const (
	shutdownTimeout       = 30 * time.Second
	workerShutdownTimeout = 25 * time.Second
)

// Server is the HTTP service plus its worker pool.
type Server struct {
	cfg    *config.Config
	svcs   *service.Services
	http   *http.Server
	pool   *worker.Pool
	logger *slog.Logger
}

// NewServer wires services, handlers and the worker pool. Nothing is
// started until Run.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.Storage.OutputPath, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if cfg.Storage.TempPath != "" {
		if err := os.MkdirAll(cfg.Storage.TempPath, 0755); err != nil {
			return nil, fmt.Errorf("create temp directory: %w", err)
		}
	}

	svcs := service.New(cfg, logger)

	processHandler := handler.NewProcessHandler(svcs.GIF, svcs.YouTube, svcs.GIF, logger.With("component", "process_handler"))
	jobHandler := handler.NewJobHandler(svcs.GIF, logger.With("component", "job_handler"))
	healthHandler := handler.NewHealthHandler(svcs.Jobs, map[string]handler.Tool{
		"yt-dlp":  svcs.YTDLP,
		"ffmpeg":  svcs.FFmpeg,
		"ffprobe": handler.ToolFunc(svcs.FFmpeg.ProbeAvailable),
	}, svcs.GIF)

	router := api.NewRouter(processHandler, jobHandler, healthHandler, handler.NewUIHandler(), metrics.Handler(), cfg.Server.APIKey, cfg.Pipeline.Timeout)

	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		svcs.Jobs,
		svcs.GIF,
		logger.With("component", "worker"),
	)

	return &Server{
		cfg:  cfg,
		svcs: svcs,
		http: &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		pool:   pool,
		logger: logger,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down the listener and
// the worker pool.
func (s *Server) Run(ctx context.Context) error {
	s.logTools(ctx)
	s.pool.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case serveErr = <-errCh:
		s.logger.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting new requests
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight jobs to complete)
	if err := s.pool.Stop(workerShutdownTimeout); err != nil {
		s.logger.Error("worker pool shutdown error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return serveErr
}

// logTools records which external binaries were found. Missing tools are
// not fatal: yt-dlp makes /ready report degraded, ffmpeg only disables the
// palette encoder.
func (s *Server) logTools(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if v, err := s.svcs.YTDLP.Version(ctx); err != nil {
		s.logger.Warn("yt-dlp not available", "path", s.cfg.Extractor.Path, "error", err)
	} else {
		s.logger.Info("yt-dlp found", "version", v)
	}

	if v, err := s.svcs.FFmpeg.Version(ctx); err != nil {
		s.logger.Warn("ffmpeg not available, using library encoder", "path", s.cfg.FFmpeg.Path, "error", err)
	} else {
		s.logger.Info("ffmpeg found", "version", v)
	}
}
