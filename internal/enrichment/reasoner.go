package enrichment

import (
	"context"
	"log/slog"
	"time"

	"github.com/rentshield/rentshield/internal/inference"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/models"
)

// ReasonerConfig selects the reasoning model and its limits.
type ReasonerConfig struct {
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// ReasonInput is everything the reasoning model sees about one piece of
// evidence.
type ReasonInput struct {
	Claim        string
	Scene        models.SceneAnalysis
	Metadata     models.Metadata
	IncidentDate string
}

// Reasoner judges whether a scene description supports a tenant claim.
type Reasoner struct {
	querier Querier
	cfg     ReasonerConfig
	logger  *slog.Logger
}

// NewReasoner creates a Reasoner.
func NewReasoner(querier Querier, cfg ReasonerConfig, logger *slog.Logger) *Reasoner {
	return &Reasoner{querier: querier, cfg: cfg, logger: logger}
}

// Reason never fails. A model failure degrades to NeutralVerdict so the
// pipeline can still produce a score.
func (r *Reasoner) Reason(ctx context.Context, in ReasonInput) models.Normalized[models.ConsistencyVerdict] {
	logger := logging.FromContext(ctx, r.logger)

	prompt, err := VerdictPrompt(in.Claim, in.Scene, in.Metadata, in.IncidentDate)
	if err != nil {
		logger.Error("failed to build verdict prompt", "error", err)
		return degraded(err)
	}

	payload, err := r.querier.Query(ctx, inference.Request{
		Operation:  OperationReasoning,
		Prompt:     prompt,
		Model:      r.cfg.Model,
		Timeout:    r.cfg.Timeout,
		MaxTokens:  r.cfg.MaxTokens,
		ExpectJSON: true,
	})
	if err != nil {
		logger.Warn("reasoning model failed, using neutral verdict", "error", err)
		return degraded(err)
	}

	verdict := BuildVerdict(payload)
	if !verdict.Clean() {
		logger.Debug("verdict normalised with defaults",
			"defaulted", verdict.Defaulted,
			"repair", payload.Method)
	}
	return verdict
}

// Align scores how well the metadata alone supports the claim. Like Reason
// it never fails.
func (r *Reasoner) Align(ctx context.Context, meta models.Metadata, claim, incidentDate string) models.AlignmentAnalysis {
	payload, err := r.querier.Query(ctx, inference.Request{
		Operation:  OperationAlignment,
		Prompt:     AlignmentPrompt(meta, claim, incidentDate),
		Model:      r.cfg.Model,
		Timeout:    r.cfg.Timeout,
		MaxTokens:  r.cfg.MaxTokens,
		ExpectJSON: true,
	})
	if err != nil {
		logging.FromContext(ctx, r.logger).Warn("alignment analysis failed", "error", err)
		return FailedAlignment(err)
	}
	return BuildAlignment(payload)
}

func degraded(err error) models.Normalized[models.ConsistencyVerdict] {
	return models.Normalized[models.ConsistencyVerdict]{
		Value: NeutralVerdict(err),
		Defaulted: []string{
			"image_supports_claim", "consistency_score", "evidence_strength",
			"detected_inconsistencies", "possible_fraud_signals", "reasoning",
		},
	}
}
