package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/enrichment"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/models"
	"github.com/rentshield/rentshield/internal/validation"
)

// Stage names reported to metrics.
const (
	StageAcquire           = "acquire"
	StageExtractMetadata   = "extract_metadata"
	StageScoreAuthenticity = "score_authenticity"
	StageAnalyzeVision     = "analyze_vision"
	StageReasonMultimodal  = "reason_multimodal"
	StageAggregate         = "aggregate"
)

// Recorder receives pipeline timings and outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordAnalysis(tier string)
}

// ModelLister reports which models a server has installed.
type ModelLister interface {
	Available(ctx context.Context, names ...string) (map[string]bool, error)
}

// AnalyzeRequest names the evidence and the claim it should support.
// Exactly one of ImageURL and LocalPath is used; LocalPath wins.
type AnalyzeRequest struct {
	ImageURL     string
	LocalPath    string
	Claim        string
	IncidentDate string
}

// Dependencies are the collaborators an Engine sequences.
type Dependencies struct {
	Downloader *Downloader
	Extractor  validation.Extractor
	Validator  *validation.Validator
	Describer  *enrichment.Describer
	Reasoner   *enrichment.Reasoner
	// Models answers for both models with one listing when a single server
	// hosts them. Otherwise Reasoning and Vision are asked separately;
	// either may be nil.
	Models    ModelLister
	Reasoning ModelLister
	Vision    ModelLister
	Recorder  Recorder
}

// EngineConfig holds pipeline policy.
type EngineConfig struct {
	Weights        config.Weights
	Timeout        time.Duration
	HealthTimeout  time.Duration
	ReasoningModel string
	VisionModel    string
}

// DefaultHealthTimeout bounds a model listing when none is configured.
const DefaultHealthTimeout = 10 * time.Second

// Engine runs the evidence pipeline. It keeps no per-call state.
type Engine struct {
	deps   Dependencies
	cfg    EngineConfig
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(deps Dependencies, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	return &Engine{deps: deps, cfg: cfg, logger: logger}
}

// Analyze runs acquire, extract, score, vision, reasoning and aggregation
// under the pipeline timeout. A file it downloaded is always removed before
// it returns. Invalid evidence is returned unchanged; any other failure is
// wrapped as analysis_failed.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (result models.EvidenceAnalysis, err error) {
	requestID := logging.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logging.WithRequestID(ctx, e.logger, requestID)
	}
	logger := logging.FromContext(ctx, e.logger)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	logger.Info("starting evidence analysis",
		"url", truncateURL(req.ImageURL),
		"claim_length", len(req.Claim))

	defer func() {
		if err != nil {
			logger.Error("evidence analysis failed", "error", err)
			err = wrapFailure(err)
		}
	}()

	var path string
	err = e.stage(StageAcquire, func() error {
		if req.LocalPath != "" {
			path = req.LocalPath
			return nil
		}
		downloaded, derr := e.deps.Downloader.Download(ctx, req.ImageURL)
		if derr != nil {
			return derr
		}
		path = downloaded
		return nil
	})
	if err != nil {
		return models.EvidenceAnalysis{}, err
	}
	if req.LocalPath == "" {
		defer e.cleanup(logger, path)
	}

	var meta models.Metadata
	err = e.stage(StageExtractMetadata, func() error {
		var xerr error
		meta, xerr = e.deps.Extractor.Extract(path)
		return xerr
	})
	if err != nil {
		return models.EvidenceAnalysis{}, err
	}

	var authenticity int
	_ = e.stage(StageScoreAuthenticity, func() error {
		authenticity = validation.Score(meta)
		return nil
	})

	var scene models.Normalized[models.SceneAnalysis]
	err = e.stage(StageAnalyzeVision, func() error {
		var verr error
		scene, verr = e.deps.Describer.Describe(ctx, path)
		return verr
	})
	if err != nil {
		return models.EvidenceAnalysis{}, err
	}

	var verdict models.Normalized[models.ConsistencyVerdict]
	_ = e.stage(StageReasonMultimodal, func() error {
		verdict = e.deps.Reasoner.Reason(ctx, enrichment.ReasonInput{
			Claim:        req.Claim,
			Scene:        scene.Value,
			Metadata:     meta,
			IncidentDate: req.IncidentDate,
		})
		return nil
	})

	var final int
	_ = e.stage(StageAggregate, func() error {
		final = Aggregate(e.cfg.Weights, authenticity, scene.Value.Confidence, verdict.Value.ConsistencyScore)
		return nil
	})
	tier := validation.Tier(final)

	if e.deps.Recorder != nil {
		e.deps.Recorder.RecordAnalysis(string(tier))
	}

	logger.Info("evidence analysis completed",
		"final_score", final,
		"trust_tier", tier,
		"authenticity_score", authenticity,
		"vision_confidence", scene.Value.Confidence,
		"consistency_score", verdict.Value.ConsistencyScore)

	return models.EvidenceAnalysis{
		RequestID:    requestID,
		Metadata:     meta,
		Authenticity: authenticity,
		Scene:        scene.Value,
		Verdict:      verdict.Value,
		FinalScore:   final,
		TrustTier:    tier,
		Defaults:     defaultedFields(scene.Defaulted, verdict.Defaulted),
	}, nil
}

// Validate runs the metadata-only check on a local file.
func (e *Engine) Validate(ctx context.Context, path string, opts validation.ValidateOptions) (models.EvidenceValidation, error) {
	return e.deps.Validator.Validate(ctx, path, opts)
}

// ModelHealth reports model reachability.
type ModelHealth struct {
	ReasoningConnected bool `json:"llm_connected"`
	VisionConnected    bool `json:"vision_connected"`
	// ModelAvailable is the reasoning model name when it is installed.
	ModelAvailable string `json:"model_available,omitempty"`
}

// Healthy reports whether both models are installed.
func (h ModelHealth) Healthy() bool {
	return h.ReasoningConnected && h.VisionConnected
}

// Health checks that the reasoning and vision models are installed. The
// whole check is bounded by the health timeout.
func (e *Engine) Health(ctx context.Context) ModelHealth {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HealthTimeout)
	defer cancel()

	var h ModelHealth
	logger := logging.FromContext(ctx, e.logger)

	if e.deps.Models != nil {
		found, err := e.deps.Models.Available(ctx, e.cfg.ReasoningModel, e.cfg.VisionModel)
		if err != nil {
			logger.Warn("model server unreachable", "error", err)
		}
		h.ReasoningConnected = found[e.cfg.ReasoningModel]
		h.VisionConnected = found[e.cfg.VisionModel]
		if h.ReasoningConnected {
			h.ModelAvailable = e.cfg.ReasoningModel
		}
		return h
	}

	if e.deps.Reasoning != nil {
		found, err := e.deps.Reasoning.Available(ctx, e.cfg.ReasoningModel)
		if err != nil {
			logger.Warn("reasoning model server unreachable", "error", err)
		}
		h.ReasoningConnected = found[e.cfg.ReasoningModel]
	}
	if e.deps.Vision != nil {
		found, err := e.deps.Vision.Available(ctx, e.cfg.VisionModel)
		if err != nil {
			logger.Warn("vision model server unreachable", "error", err)
		}
		h.VisionConnected = found[e.cfg.VisionModel]
	}
	if h.ReasoningConnected {
		h.ModelAvailable = e.cfg.ReasoningModel
	}
	return h
}

func (e *Engine) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if e.deps.Recorder != nil {
		e.deps.Recorder.ObserveStage(name, time.Since(start))
	}
	return err
}

func (e *Engine) cleanup(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove temp file", "path", path, "error", err)
		return
	}
	logger.Debug("temp file removed", "path", path)
}

func wrapFailure(err error) error {
	if errors.Is(err, apperror.ErrInvalidEvidence) || errors.Is(err, apperror.ErrAnalysisFailed) {
		return err
	}
	return apperror.AnalysisFailed("evidence analysis failed", err)
}

func defaultedFields(scene, verdict []string) []string {
	var out []string
	for _, f := range scene {
		out = append(out, "vision_analysis."+f)
	}
	for _, f := range verdict {
		out = append(out, "multimodal_verdict."+f)
	}
	return out
}
