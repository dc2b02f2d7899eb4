package validation

import (
	"testing"

	"github.com/rentshield/rentshield/internal/models"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestScoreAllCombinations(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		var (
			m    models.Metadata
			want int
		)
		hasTS := mask&1 != 0
		hasMake := mask&2 != 0
		hasModel := mask&4 != 0
		hasGPS := mask&8 != 0
		hasSoftware := mask&16 != 0

		if hasTS {
			m.CapturedAt = strPtr("2024:01:15 10:30:00")
			want += 30
		}
		if hasMake {
			m.DeviceMake = strPtr("Apple")
		}
		if hasModel {
			m.DeviceModel = strPtr("iPhone 14")
		}
		if hasMake || hasModel {
			want += 20
		}
		if hasGPS {
			m.GPSLatitude = floatPtr(40.7128)
			m.GPSLongitude = floatPtr(-74.006)
			want += 10
		}
		if hasSoftware {
			m.Software = strPtr("17.2")
		}
		if mask != 0 {
			want += 40
		}

		got := Score(m)
		if got != want {
			t.Errorf("mask %05b: Score() = %d, want %d", mask, got, want)
		}
		if got < 0 || got > 100 {
			t.Errorf("mask %05b: score %d out of range", mask, got)
		}
	}
}

func TestScoreExamples(t *testing.T) {
	tests := []struct {
		name string
		meta models.Metadata
		want int
		tier models.TrustTier
	}{
		{
			name: "timestamp only",
			meta: models.Metadata{CapturedAt: strPtr("2024:01:15 10:30:00")},
			want: 70,
			tier: models.TrustTierMedium,
		},
		{
			name: "everything",
			meta: models.Metadata{
				CapturedAt:   strPtr("2024:01:15 10:30:00"),
				DeviceMake:   strPtr("Apple"),
				DeviceModel:  strPtr("iPhone 14"),
				GPSLatitude:  floatPtr(1),
				GPSLongitude: floatPtr(2),
			},
			want: 100,
			tier: models.TrustTierHigh,
		},
		{
			name: "stripped",
			meta: models.Metadata{ContentHash: "abc", Width: 10, Height: 10, SizeBytes: 100},
			want: 0,
			tier: models.TrustTierUntrusted,
		},
		{
			name: "one GPS coordinate",
			meta: models.Metadata{GPSLatitude: floatPtr(1)},
			want: 40,
			tier: models.TrustTierLow,
		},
		{
			name: "empty strings are absent",
			meta: models.Metadata{DeviceMake: strPtr("")},
			want: 0,
			tier: models.TrustTierUntrusted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.meta)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
			if tier := Tier(got); tier != tt.tier {
				t.Errorf("Tier(%d) = %s, want %s", got, tier, tt.tier)
			}
		})
	}
}
