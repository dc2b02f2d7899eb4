package models

import "strings"

// Cleanliness grades the observed state of a property.
type Cleanliness string

const (
	CleanlinessClean      Cleanliness = "clean"
	CleanlinessAverage    Cleanliness = "average"
	CleanlinessDirty      Cleanliness = "dirty"
	CleanlinessUnsanitary Cleanliness = "unsanitary"
)

// ParseCleanliness matches case-insensitively. ok is false for unknown input.
func ParseCleanliness(raw string) (Cleanliness, bool) {
	switch c := Cleanliness(strings.ToLower(strings.TrimSpace(raw))); c {
	case CleanlinessClean, CleanlinessAverage, CleanlinessDirty, CleanlinessUnsanitary:
		return c, true
	default:
		return CleanlinessAverage, false
	}
}

// Location is where the photograph was taken.
type Location string

const (
	LocationIndoor  Location = "indoor"
	LocationOutdoor Location = "outdoor"
	LocationUnclear Location = "unclear"
)

// ParseLocation matches case-insensitively. ok is false for unknown input.
func ParseLocation(raw string) (Location, bool) {
	switch l := Location(strings.ToLower(strings.TrimSpace(raw))); l {
	case LocationIndoor, LocationOutdoor, LocationUnclear:
		return l, true
	default:
		return LocationUnclear, false
	}
}

// SceneAnalysis is the typed description produced from a vision model reply.
type SceneAnalysis struct {
	Summary         string      `json:"scene_summary"`
	DetectedObjects []string    `json:"detected_objects"`
	DamageDetected  []string    `json:"damage_detected"`
	SafetyHazards   []string    `json:"safety_hazards"`
	Cleanliness     Cleanliness `json:"cleanliness_level"`
	Location        Location    `json:"indoor_outdoor"`
	Confidence      int         `json:"confidence"`
}

// ConsistencyVerdict judges whether an image supports a written claim.
type ConsistencyVerdict struct {
	ImageSupportsClaim bool     `json:"image_supports_claim"`
	ConsistencyScore   int      `json:"consistency_score"`
	EvidenceStrength   int      `json:"evidence_strength"`
	Inconsistencies    []string `json:"detected_inconsistencies"`
	FraudSignals       []string `json:"possible_fraud_signals"`
	Reasoning          string   `json:"reasoning"`
}
