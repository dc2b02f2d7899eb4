package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/enrichment"
	"github.com/rentshield/rentshield/internal/inference"
	"github.com/rentshield/rentshield/internal/metadata"
	"github.com/rentshield/rentshield/internal/metrics"
	"github.com/rentshield/rentshield/internal/storage"
	"github.com/rentshield/rentshield/internal/validation"
)

// Assembly is an Engine together with the model client it drives.
type Assembly struct {
	Engine *Engine
	Client *inference.Client
}

// FromConfig builds the full pipeline from configuration. collector may be
// nil. ctx bounds loading the object store credentials.
func FromConfig(ctx context.Context, cfg config.Config, collector *metrics.Collector, logger *slog.Logger) (Assembly, error) {
	backend, err := inference.NewBackend(cfg.Model, &http.Client{})
	if err != nil {
		return Assembly{}, err
	}

	var (
		callRecorder  inference.Recorder
		stageRecorder Recorder
	)
	if collector != nil {
		callRecorder = collector
		stageRecorder = collector
	}

	client := inference.NewClient(backend, inference.ConfigFrom(cfg.Model),
		inference.NewLogger(logger, callRecorder), logger)

	extractor := metadata.NewExtractor(metadata.Options{
		MaxFileSize:       cfg.Evidence.MaxFileSize,
		AllowedExtensions: cfg.Evidence.AllowedExtensions,
	}, logger)

	describer := enrichment.NewDescriber(client, enrichment.DescriberConfig{
		Model:     cfg.Model.VisionModel,
		Timeout:   cfg.Model.VisionTimeout,
		MaxTokens: cfg.Model.VisionMaxTokens,
	}, logger)

	reasoner := enrichment.NewReasoner(client, enrichment.ReasonerConfig{
		Model:     cfg.Model.ReasoningModel,
		Timeout:   cfg.Model.ReasoningTimeout,
		MaxTokens: cfg.Model.MaxTokens,
	}, logger)

	validator := validation.NewValidator(extractor,
		validation.NewTamperDetector(cfg.Policy.Editors, nil),
		logger,
		validation.WithAligner(reasoner),
		validation.WithTamperDeduction(cfg.Policy.TamperDeduction))

	downloads := DownloaderConfig{
		TempDir:           cfg.Evidence.TempDir(),
		MaxBytes:          cfg.Evidence.MaxFileSize,
		AllowedExtensions: cfg.Evidence.AllowedExtensions,
	}
	if cfg.Evidence.S3.Enabled() {
		store, err := storage.NewS3Store(ctx, cfg.Evidence.S3, logger)
		if err != nil {
			return Assembly{}, err
		}
		downloads.Objects = store
	}
	downloader := NewDownloader(&http.Client{Timeout: cfg.Evidence.DownloadTimeout}, downloads, logger)

	engine := NewEngine(Dependencies{
		Downloader: downloader,
		Extractor:  extractor,
		Validator:  validator,
		Describer:  describer,
		Reasoner:   reasoner,
		Models:     client,
		Recorder:   stageRecorder,
	}, EngineConfig{
		Weights:        cfg.Policy.Weights,
		Timeout:        cfg.Evidence.PipelineTimeout,
		HealthTimeout:  cfg.Model.HealthTimeout,
		ReasoningModel: cfg.Model.ReasoningModel,
		VisionModel:    cfg.Model.VisionModel,
	}, logger)

	return Assembly{Engine: engine, Client: client}, nil
}
