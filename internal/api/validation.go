package api

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rentshield/rentshield/internal/apperror"
)

const (
	minClaimLength = 10
	maxClaimLength = 10000
)

// AnalyzeRequest is the body of POST /api/v1/analyze-image-evidence.
type AnalyzeRequest struct {
	ImageURL     string `json:"image_url"`
	ClaimText    string `json:"claim_text"`
	IncidentDate string `json:"incident_date,omitempty"`
}

// Validate checks field presence and bounds.
func (r *AnalyzeRequest) Validate() error {
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	if r.ImageURL == "" {
		return apperror.InvalidRequest("image_url", "image_url is required")
	}
	u, err := url.Parse(r.ImageURL)
	if err != nil || u.Host == "" {
		return apperror.InvalidRequest("image_url", "image_url must be an absolute URL")
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return apperror.InvalidRequest("image_url", "image_url must be an http, https or s3 URL")
	}

	if err := validateClaim(r.ClaimText, true); err != nil {
		return err
	}
	return validateIncidentDate(r.IncidentDate)
}

func validateClaim(claim string, required bool) error {
	n := utf8.RuneCountInString(strings.TrimSpace(claim))
	if n == 0 {
		if required {
			return apperror.InvalidRequest("claim_text", "claim_text is required")
		}
		return nil
	}
	if n < minClaimLength {
		return apperror.InvalidRequest("claim_text", "claim_text must be at least 10 characters")
	}
	if n > maxClaimLength {
		return apperror.InvalidRequest("claim_text", "claim_text must be at most 10000 characters")
	}
	return nil
}

var incidentLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// validateIncidentDate accepts ISO-8601 dates and datetimes, with or
// without an offset.
func validateIncidentDate(raw string) error {
	if raw == "" {
		return nil
	}
	for _, layout := range incidentLayouts {
		if _, err := time.Parse(layout, raw); err == nil {
			return nil
		}
	}
	return apperror.InvalidRequest("incident_date", "incident_date must be ISO format")
}
