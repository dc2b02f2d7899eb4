package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentshield/rentshield/internal/config"
)

func TestAggregate(t *testing.T) {
	defaults := config.DefaultPolicy().Weights
	halves := config.Weights{Authenticity: 0.5, Vision: 0.5}

	tests := []struct {
		name                      string
		w                         config.Weights
		auth, vision, consistency int
		want                      int
	}{
		{"documented example", defaults, 70, 80, 90, 81},
		{"all zero", defaults, 0, 0, 0, 0},
		{"all max", defaults, 100, 100, 100, 100},
		{"out of range inputs are clamped", defaults, 150, -20, 100, 70},
		{"half rounds down to even", halves, 1, 0, 0, 0},
		{"half rounds up to even", halves, 3, 0, 0, 2},
		{"heavy weights clamp", config.Weights{Authenticity: 2, Vision: 2, Consistency: 2}, 100, 100, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.w, tt.auth, tt.vision, tt.consistency))
		})
	}
}
