package models

import "math"

// TrustTier buckets an authenticity or final score.
type TrustTier string

const (
	TrustTierHigh      TrustTier = "HIGH"
	TrustTierMedium    TrustTier = "MEDIUM"
	TrustTierLow       TrustTier = "LOW"
	TrustTierUntrusted TrustTier = "UNTRUSTED"
)

// TierFor maps a score to its tier. Lower bounds are inclusive.
func TierFor(score int) TrustTier {
	switch {
	case score >= 80:
		return TrustTierHigh
	case score >= 50:
		return TrustTierMedium
	case score >= 20:
		return TrustTierLow
	default:
		return TrustTierUntrusted
	}
}

// TamperAssessment is the advisory result of the tamper heuristics.
type TamperAssessment struct {
	Probability float64  `json:"tampering_probability"`
	Indicators  []string `json:"indicators"`
	Conclusion  string   `json:"conclusion"`
}

// AlignmentAnalysis compares a claim against metadata alone.
type AlignmentAnalysis struct {
	Score     int      `json:"alignment_score"`
	Concerns  []string `json:"concerns"`
	Reasoning string   `json:"reasoning"`
}

// EvidenceValidation is the result of validating a local image without
// vision analysis.
type EvidenceValidation struct {
	RequestID         string             `json:"request_id"`
	AuthenticityScore int                `json:"authenticity_score"`
	TrustTier         TrustTier          `json:"trust_level"`
	Metadata          Metadata           `json:"metadata"`
	Tamper            TamperAssessment   `json:"tampering_analysis"`
	Alignment         *AlignmentAnalysis `json:"claim_alignment,omitempty"`
}

// EvidenceAnalysis is the aggregate result of the full pipeline.
type EvidenceAnalysis struct {
	RequestID    string             `json:"request_id"`
	Metadata     Metadata           `json:"metadata"`
	Authenticity int                `json:"authenticity_score"`
	Scene        SceneAnalysis      `json:"vision_analysis"`
	Verdict      ConsistencyVerdict `json:"multimodal_verdict"`
	FinalScore   int                `json:"final_evidence_score"`
	TrustTier    TrustTier          `json:"trust_level"`
	// Defaults lists the normalised fields that fell back to a default value.
	Defaults []string `json:"defaulted_fields,omitempty"`
}

// ClampScore bounds a score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampProbability bounds a probability to [0,1]. NaN maps to 0.
func ClampProbability(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
