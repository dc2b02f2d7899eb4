package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentshield/rentshield/internal/api"
	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/metrics"
	"github.com/rentshield/rentshield/internal/pipeline"
	"github.com/rentshield/rentshield/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting RentShield evidence engine",
		"version", api.Version,
		"backend", cfg.Model.Backend,
		"reasoning_model", cfg.Model.ReasoningModel,
		"vision_model", cfg.Model.VisionModel)

	if err := os.MkdirAll(cfg.Evidence.TempDir(), 0o750); err != nil {
		logger.Error("failed to create upload directory", "dir", cfg.Evidence.TempDir(), "error", err)
		os.Exit(1)
	}

	collector, err := metrics.New()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	asm, err := pipeline.FromConfig(context.Background(), cfg, collector, logger)
	if err != nil {
		logger.Error("failed to build evidence pipeline", "error", err)
		os.Exit(1)
	}

	checkModels(asm.Engine, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	handler := api.NewHandler(asm.Engine, api.UploadConfig{
		TempDir:     cfg.Evidence.TempDir(),
		MaxFileSize: cfg.Evidence.MaxFileSize,
	}, logger)
	api.SetupRoutes(mux, handler, collector.InstrumentHandler)

	srv := server.New(cfg.Server, logger, mux)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// checkModels warns when a model is missing. The service still starts and
// reports itself degraded.
func checkModels(engine *pipeline.Engine, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health := engine.Health(ctx)
	if health.Healthy() {
		logger.Info("model server connected", "model", health.ModelAvailable)
		return
	}
	logger.Warn("model server not fully available, running in degraded mode",
		"reasoning_connected", health.ReasoningConnected,
		"vision_connected", health.VisionConnected)
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
