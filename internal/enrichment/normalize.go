package enrichment

import (
	"github.com/rentshield/rentshield/internal/inference"
	"github.com/rentshield/rentshield/internal/models"
)

const (
	DefaultSummary      = "Unable to analyze image"
	DefaultReasoning    = "No reasoning provided"
	DefaultScore        = 50
	parseFailedScore    = 30
	parseFailedPreview  = 200
	NoteUnparsedVerdict = "model response could not be parsed"
)

// BuildScene normalises a vision reply. Unknown enums fall back to
// average/unclear, a non-numeric confidence to 50, and confidence is always
// clamped. A reply that could not be parsed keeps its first 200 characters
// as the summary with a reduced confidence.
func BuildScene(p inference.Payload) models.Normalized[models.SceneAnalysis] {
	var n models.Normalized[models.SceneAnalysis]
	f := p.Fields

	if p.ParseFailed() {
		summary := truncate(p.Raw, parseFailedPreview)
		if summary == "" {
			summary = DefaultSummary
		}
		n.Value = models.SceneAnalysis{
			Summary:         summary,
			DetectedObjects: []string{},
			DamageDetected:  []string{},
			SafetyHazards:   []string{},
			Cleanliness:     models.CleanlinessAverage,
			Location:        models.LocationUnclear,
			Confidence:      parseFailedScore,
		}
		n.Defaulted = []string{
			"scene_summary", "detected_objects", "damage_detected", "safety_hazards",
			"cleanliness_level", "indoor_outdoor", "confidence",
		}
		return n
	}

	summary, ok := stringField(f, "scene_summary")
	if !ok {
		summary = DefaultSummary
		n.MarkDefault("scene_summary")
	}

	objects, ok := listField(f, "detected_objects")
	if !ok {
		n.MarkDefault("detected_objects")
	}
	damage, ok := listField(f, "damage_detected")
	if !ok {
		n.MarkDefault("damage_detected")
	}
	hazards, ok := listField(f, "safety_hazards")
	if !ok {
		n.MarkDefault("safety_hazards")
	}

	raw, _ := stringField(f, "cleanliness_level")
	cleanliness, ok := models.ParseCleanliness(raw)
	if !ok {
		n.MarkDefault("cleanliness_level")
	}

	raw, _ = stringField(f, "indoor_outdoor")
	location, ok := models.ParseLocation(raw)
	if !ok {
		n.MarkDefault("indoor_outdoor")
	}

	confidence, ok := intField(f, "confidence")
	if !ok {
		confidence = DefaultScore
		n.MarkDefault("confidence")
	}

	n.Value = models.SceneAnalysis{
		Summary:         summary,
		DetectedObjects: objects,
		DamageDetected:  damage,
		SafetyHazards:   hazards,
		Cleanliness:     cleanliness,
		Location:        location,
		Confidence:      models.ClampScore(confidence),
	}
	return n
}

// BuildVerdict normalises a reasoning reply. "true", "yes" and "1" coerce
// to true; unparseable scores fall back to 50; every score is clamped.
func BuildVerdict(p inference.Payload) models.Normalized[models.ConsistencyVerdict] {
	var n models.Normalized[models.ConsistencyVerdict]
	f := p.Fields

	supports, ok := boolField(f, "image_supports_claim")
	if !ok {
		n.MarkDefault("image_supports_claim")
	}

	consistency, ok := intField(f, "consistency_score")
	if !ok {
		consistency = DefaultScore
		n.MarkDefault("consistency_score")
	}

	strength, ok := intField(f, "evidence_strength")
	if !ok {
		strength = DefaultScore
		n.MarkDefault("evidence_strength")
	}

	inconsistencies, ok := listField(f, "detected_inconsistencies")
	if !ok {
		n.MarkDefault("detected_inconsistencies")
	}
	if p.ParseFailed() {
		inconsistencies = append(inconsistencies, NoteUnparsedVerdict)
	}

	fraud, ok := listField(f, "possible_fraud_signals")
	if !ok {
		n.MarkDefault("possible_fraud_signals")
	}

	reasoning, ok := stringField(f, "reasoning")
	if !ok {
		reasoning = DefaultReasoning
		n.MarkDefault("reasoning")
	}

	n.Value = models.ConsistencyVerdict{
		ImageSupportsClaim: supports,
		ConsistencyScore:   models.ClampScore(consistency),
		EvidenceStrength:   models.ClampScore(strength),
		Inconsistencies:    inconsistencies,
		FraudSignals:       fraud,
		Reasoning:          reasoning,
	}
	return n
}

// NeutralVerdict is returned when the reasoning call fails outright.
func NeutralVerdict(cause error) models.ConsistencyVerdict {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return models.ConsistencyVerdict{
		ImageSupportsClaim: false,
		ConsistencyScore:   DefaultScore,
		EvidenceStrength:   DefaultScore,
		Inconsistencies:    []string{"Unable to perform full analysis"},
		FraudSignals:       []string{},
		Reasoning:          "Analysis incomplete: " + truncate(msg, 100),
	}
}

// BuildAlignment normalises a metadata-only alignment reply.
func BuildAlignment(p inference.Payload) models.AlignmentAnalysis {
	if p.ParseFailed() {
		return models.AlignmentAnalysis{
			Score:     DefaultScore,
			Concerns:  []string{"model response parsing failed"},
			Reasoning: "Could not fully analyze alignment due to model response format issues.",
		}
	}

	score, ok := intField(p.Fields, "alignment_score")
	if !ok {
		score = DefaultScore
	}
	concerns, _ := listField(p.Fields, "concerns")
	reasoning, ok := stringField(p.Fields, "reasoning")
	if !ok {
		reasoning = "No detailed reasoning provided."
	}

	return models.AlignmentAnalysis{
		Score:     models.ClampScore(score),
		Concerns:  concerns,
		Reasoning: reasoning,
	}
}

// FailedAlignment is returned when the alignment call fails outright.
func FailedAlignment(cause error) models.AlignmentAnalysis {
	return models.AlignmentAnalysis{
		Score:     DefaultScore,
		Concerns:  []string{"alignment analysis could not be completed"},
		Reasoning: "Analysis failed due to error: " + truncate(cause.Error(), 200),
	}
}
