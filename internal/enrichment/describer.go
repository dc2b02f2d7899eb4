package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/inference"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/models"
)

// DescriberConfig selects the vision model and its limits.
type DescriberConfig struct {
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Describer asks the vision model what an image shows.
type Describer struct {
	querier Querier
	cfg     DescriberConfig
	logger  *slog.Logger
}

// NewDescriber creates a Describer.
func NewDescriber(querier Querier, cfg DescriberConfig, logger *slog.Logger) *Describer {
	return &Describer{querier: querier, cfg: cfg, logger: logger}
}

// Describe returns the normalised scene analysis for the image at path.
// Model failures are returned unchanged; malformed replies are not errors.
func (d *Describer) Describe(ctx context.Context, path string) (models.Normalized[models.SceneAnalysis], error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return models.Normalized[models.SceneAnalysis]{}, apperror.AnalysisFailed("failed to read image for vision analysis", err)
	}

	payload, err := d.querier.Query(ctx, inference.Request{
		Operation:  OperationVision,
		Prompt:     ScenePrompt,
		Image:      image,
		Model:      d.cfg.Model,
		Timeout:    d.cfg.Timeout,
		MaxTokens:  d.cfg.MaxTokens,
		ExpectJSON: true,
	})
	if err != nil {
		return models.Normalized[models.SceneAnalysis]{}, fmt.Errorf("vision analysis: %w", err)
	}

	scene := BuildScene(payload)
	if !scene.Clean() {
		logging.FromContext(ctx, d.logger).Debug("vision reply normalised with defaults",
			"defaulted", scene.Defaulted,
			"repair", payload.Method)
	}
	return scene, nil
}
