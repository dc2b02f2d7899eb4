// Package pipeline sequences evidence acquisition, metadata scoring, vision
// analysis and claim reasoning into one scored result.
package pipeline

import (
	"math"

	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/models"
)

// Aggregate combines the three signals into the final score: the weighted
// sum rounded half to even, clamped to [0,100]. Inputs are clamped first.
func Aggregate(w config.Weights, authenticity, vision, consistency int) int {
	sum := w.Authenticity*float64(models.ClampScore(authenticity)) +
		w.Vision*float64(models.ClampScore(vision)) +
		w.Consistency*float64(models.ClampScore(consistency))
	if math.IsNaN(sum) {
		return 0
	}
	return models.ClampScore(int(math.RoundToEven(sum)))
}
