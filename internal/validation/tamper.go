package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rentshield/rentshield/internal/models"
)

const (
	IndicatorStripped = "missing or stripped metadata"
	IndicatorFuture   = "timestamp in the future"
	IndicatorNone     = "no tampering indicators detected"
	IndicatorFailed   = "could not complete tampering analysis"

	ConclusionLow          = "low risk of tampering detected"
	ConclusionModerate     = "moderate tampering indicators found"
	ConclusionHigh         = "high probability of image manipulation"
	ConclusionInconclusive = "tampering analysis inconclusive due to processing error"
)

const (
	weightStripped = 0.3
	weightEditor   = 0.4
	weightFuture   = 0.5
)

// TamperDetector flags suspicious metadata patterns. The result is advisory.
type TamperDetector struct {
	editors []string
	now     func() time.Time
}

// NewTamperDetector creates a detector matching software tags against
// editors. now may be nil to use the wall clock.
func NewTamperDetector(editors []string, now func() time.Time) *TamperDetector {
	lowered := make([]string, 0, len(editors))
	for _, e := range editors {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			lowered = append(lowered, e)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &TamperDetector{editors: lowered, now: now}
}

// Assess applies the heuristics to m.
func (d *TamperDetector) Assess(m models.Metadata) models.TamperAssessment {
	var (
		indicators  []string
		probability float64
	)

	if !m.HasCaptureFields() {
		indicators = append(indicators, IndicatorStripped)
		probability += weightStripped
	}

	if m.Software != nil {
		if editor := d.matchEditor(*m.Software); editor != "" {
			indicators = append(indicators, fmt.Sprintf("editing software detected: %s", *m.Software))
			probability += weightEditor
		}
	}

	if m.CapturedAt != nil {
		if ts, ok := ParseCaptureTime(*m.CapturedAt); ok && ts.After(d.now()) {
			indicators = append(indicators, IndicatorFuture)
			probability += weightFuture
		}
	}

	probability = math.Round(models.ClampProbability(probability)*100) / 100

	if len(indicators) == 0 {
		indicators = append(indicators, IndicatorNone)
	}

	return models.TamperAssessment{
		Probability: probability,
		Indicators:  indicators,
		Conclusion:  Conclusion(probability),
	}
}

// Inconclusive is the neutral assessment used when analysis cannot run.
func Inconclusive() models.TamperAssessment {
	return models.TamperAssessment{
		Probability: 0.5,
		Indicators:  []string{IndicatorFailed},
		Conclusion:  ConclusionInconclusive,
	}
}

// Conclusion maps a probability to its summary text.
func Conclusion(p float64) string {
	switch {
	case p < 0.2:
		return ConclusionLow
	case p < 0.5:
		return ConclusionModerate
	default:
		return ConclusionHigh
	}
}

func (d *TamperDetector) matchEditor(software string) string {
	lower := strings.ToLower(software)
	for _, e := range d.editors {
		if strings.Contains(lower, e) {
			return e
		}
	}
	return ""
}

var captureLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseCaptureTime reads an EXIF timestamp ("2006:01:02 15:04:05"). The
// first two colons are date separators. Timestamps without an offset are
// taken as local time; ones with an offset are exact instants.
func ParseCaptureTime(raw string) (time.Time, bool) {
	s := strings.Replace(strings.TrimSpace(raw), ":", "-", 2)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, strings.Replace(s, " ", "T", 1)); err == nil {
		return t, true
	}

	for _, layout := range captureLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
