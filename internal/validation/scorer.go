// Package validation scores evidence authenticity from embedded metadata and
// applies tampering heuristics.
package validation

import "github.com/rentshield/rentshield/internal/models"

// Score converts metadata into an authenticity score in [0,100]:
//
//	+40 any embedded field present
//	+30 capture timestamp
//	+20 device make or model
//	+10 both GPS coordinates
func Score(m models.Metadata) int {
	score := 0

	if m.HasAnyEmbedded() {
		score += 40
	}
	if m.HasTimestamp() {
		score += 30
	}
	if m.HasDevice() {
		score += 20
	}
	if m.HasGPS() {
		score += 10
	}

	return min(score, 100)
}

// Tier maps an authenticity score to its trust tier.
func Tier(score int) models.TrustTier {
	return models.TierFor(score)
}
