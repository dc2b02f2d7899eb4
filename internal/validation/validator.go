package validation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/models"
)

// Extractor reads metadata from a local image.
type Extractor interface {
	Extract(path string) (models.Metadata, error)
}

// Aligner scores how well metadata alone supports a claim. It must not fail.
type Aligner interface {
	Align(ctx context.Context, meta models.Metadata, claim, incidentDate string) models.AlignmentAnalysis
}

// ValidateOptions carries the optional claim context for Validate.
type ValidateOptions struct {
	Claim        string
	IncidentDate string
}

// Validator runs the metadata-only evidence check.
type Validator struct {
	extractor Extractor
	tamper    *TamperDetector
	aligner   Aligner
	deduction int
	logger    *slog.Logger
}

// Option customises a Validator.
type Option func(*Validator)

// WithAligner enables claim alignment when a claim is supplied.
func WithAligner(a Aligner) Option {
	return func(v *Validator) {
		v.aligner = a
	}
}

// WithTamperDeduction sets the authenticity points removed when tampering is
// likely.
func WithTamperDeduction(points int) Option {
	return func(v *Validator) {
		v.deduction = points
	}
}

// NewValidator creates a Validator. The default tamper deduction is 30.
func NewValidator(extractor Extractor, tamper *TamperDetector, logger *slog.Logger, opts ...Option) *Validator {
	v := &Validator{
		extractor: extractor,
		tamper:    tamper,
		deduction: 30,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Score extracts and scores the image at path, returning the metadata with
// its authenticity score. Extraction errors are returned unchanged.
func (v *Validator) Score(path string) (models.Metadata, int, error) {
	meta, err := v.extractor.Extract(path)
	if err != nil {
		return models.Metadata{}, 0, err
	}
	return meta, Score(meta), nil
}

// DetectTampering re-reads path and assesses it. Failures are logged and
// yield the inconclusive assessment.
func (v *Validator) DetectTampering(ctx context.Context, path string) models.TamperAssessment {
	meta, err := v.extractor.Extract(path)
	if err != nil {
		logging.FromContext(ctx, v.logger).Error("tampering analysis failed", "error", err)
		return Inconclusive()
	}
	return v.tamper.Assess(meta)
}

// Validate scores path, applies the tamper deduction and, when a claim and
// an aligner are present, checks the claim against the metadata.
func (v *Validator) Validate(ctx context.Context, path string, opts ValidateOptions) (models.EvidenceValidation, error) {
	logger := logging.FromContext(ctx, v.logger)

	meta, score, err := v.Score(path)
	if err != nil {
		return models.EvidenceValidation{}, err
	}

	requestID := logging.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	tamper := v.tamper.Assess(meta)
	if tamper.Probability > 0.5 && v.deduction > 0 {
		adjusted := max(score-v.deduction, 0)
		logger.Info("authenticity reduced for tampering indicators",
			"probability", tamper.Probability,
			"score", score,
			"adjusted", adjusted)
		score = adjusted
	}

	result := models.EvidenceValidation{
		RequestID:         requestID,
		AuthenticityScore: score,
		TrustTier:         Tier(score),
		Metadata:          meta,
		Tamper:            tamper,
	}

	if opts.Claim != "" && v.aligner != nil {
		alignment := v.aligner.Align(ctx, meta, opts.Claim, opts.IncidentDate)
		result.Alignment = &alignment
	}

	logger.Info("evidence validated",
		"authenticity_score", result.AuthenticityScore,
		"trust_tier", result.TrustTier,
		"tampering_probability", tamper.Probability)

	return result, nil
}
