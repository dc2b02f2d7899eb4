package enrichment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rentshield/rentshield/internal/models"
)

// ScenePrompt asks the vision model for a housing-inspection description.
const ScenePrompt = `You are a housing inspection AI.

Describe this image focusing ONLY on:
- structural damage
- safety hazards
- maintenance issues
- signs of mold, leaks, cracks, fire risk
- appliances or utilities
- anything relevant to a tenant complaint

Return STRICT JSON with no additional text:

{
  "scene_summary": "2 sentence description",
  "detected_objects": [],
  "damage_detected": [],
  "safety_hazards": [],
  "cleanliness_level": "clean|average|dirty|unsanitary",
  "indoor_outdoor": "indoor|outdoor|unclear",
  "confidence": 0-100
}`

const verdictTemplate = `You are an evidence verification AI for housing disputes.

Analyze the following evidence and determine if the image supports the tenant's claim.

TENANT CLAIM:
%s

IMAGE ANALYSIS (from vision AI):
%s

EXIF METADATA:
%s

%s

Based on this information, provide your verdict. Consider:
1. Does the image content match what the tenant claims?
2. Are there any inconsistencies between the claim and the image?
3. Does the EXIF metadata (timestamp, location) support or contradict the claim?
4. Are there any signs of potential fraud or manipulation?

Return STRICT JSON with no additional text:

{
  "image_supports_claim": true/false,
  "consistency_score": 0-100,
  "evidence_strength": 0-100,
  "detected_inconsistencies": [],
  "possible_fraud_signals": [],
  "reasoning": "short explanation"
}`

const alignmentTemplate = `Analyze the alignment between photographic evidence metadata and a tenant's claim.

EVIDENCE METADATA:
%s

TENANT'S CLAIM:
%s

Analyze whether the evidence appears to support the claim. Consider:
1. Does the photo timestamp align with the reported incident date (if available)?
2. Are there any logical inconsistencies between the claim and the evidence metadata?
3. Is the lack of metadata a concern?

Respond with JSON in this exact format:
{
    "alignment_score": <0-100, how well evidence supports the claim>,
    "concerns": [<list of specific concerns or inconsistencies found>],
    "reasoning": "<detailed explanation of your assessment>"
}`

// VerdictPrompt embeds the claim verbatim, the scene analysis and the
// present metadata fields as indented JSON, and an optional incident date.
func VerdictPrompt(claim string, scene models.SceneAnalysis, meta models.Metadata, incidentDate string) (string, error) {
	sceneJSON, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode scene analysis: %w", err)
	}

	metaJSON, err := json.MarshalIndent(MetadataFields(meta), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	dateLine := ""
	if incidentDate != "" {
		dateLine = "REPORTED INCIDENT DATE: " + incidentDate
	}

	return fmt.Sprintf(verdictTemplate, claim, sceneJSON, metaJSON, dateLine), nil
}

// AlignmentPrompt describes the metadata in prose and asks how well it
// supports the claim.
func AlignmentPrompt(meta models.Metadata, claim, incidentDate string) string {
	var lines []string

	if meta.CapturedAt != nil {
		lines = append(lines, "Photo taken: "+*meta.CapturedAt)
	} else {
		lines = append(lines, "Photo timestamp: Not available (metadata stripped or missing)")
	}

	if meta.HasDevice() {
		device := strings.TrimSpace(deref(meta.DeviceMake) + " " + deref(meta.DeviceModel))
		lines = append(lines, "Camera device: "+device)
	}

	if meta.HasGPS() {
		lines = append(lines, fmt.Sprintf("GPS coordinates: %.4f, %.4f", *meta.GPSLatitude, *meta.GPSLongitude))
	}

	if incidentDate != "" {
		lines = append(lines, "Reported incident date: "+incidentDate)
	}

	return fmt.Sprintf(alignmentTemplate, strings.Join(lines, "\n"), claim)
}

// MetadataFields is the non-null subset of meta, keyed by wire name.
func MetadataFields(meta models.Metadata) map[string]any {
	fields := map[string]any{}
	if meta.CapturedAt != nil {
		fields["datetime_original"] = *meta.CapturedAt
	}
	if meta.DeviceMake != nil {
		fields["device_make"] = *meta.DeviceMake
	}
	if meta.DeviceModel != nil {
		fields["device_model"] = *meta.DeviceModel
	}
	if meta.Software != nil {
		fields["software"] = *meta.Software
	}
	if meta.GPSLatitude != nil {
		fields["gps_latitude"] = *meta.GPSLatitude
	}
	if meta.GPSLongitude != nil {
		fields["gps_longitude"] = *meta.GPSLongitude
	}
	if meta.ContentHash != "" {
		fields["file_hash"] = meta.ContentHash
	}
	if dims := meta.Dimensions(); dims != "" {
		fields["dimensions"] = dims
	}
	if meta.SizeBytes > 0 {
		fields["file_size"] = meta.SizeBytes
	}
	return fields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
