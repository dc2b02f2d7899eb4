package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the tunable scoring choices. They are policy, not derived
// constants, so they can be overridden from a YAML file.
type Policy struct {
	Weights         Weights  `yaml:"weights"`
	Editors         []string `yaml:"editors"`
	TamperDeduction int      `yaml:"tamper_deduction"`
}

// Weights are the final-score contributions of each signal.
type Weights struct {
	Authenticity float64 `yaml:"authenticity"`
	Vision       float64 `yaml:"vision"`
	Consistency  float64 `yaml:"consistency"`
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	if w.Authenticity < 0 || w.Vision < 0 || w.Consistency < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if w.Authenticity+w.Vision+w.Consistency == 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

// DefaultEditors lists common raster and photo editors whose software tag
// marks an image as post-processed.
var DefaultEditors = []string{
	"photoshop",
	"gimp",
	"lightroom",
	"capture one",
	"affinity",
	"pixelmator",
	"snapseed",
	"vsco",
	"afterlight",
}

// DefaultPolicy returns the built-in scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			Authenticity: 0.3,
			Vision:       0.3,
			Consistency:  0.4,
		},
		Editors:         append([]string(nil), DefaultEditors...),
		TamperDeduction: 30,
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path
// returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	if err := policy.Weights.Validate(); err != nil {
		return Policy{}, err
	}
	if policy.TamperDeduction < 0 || policy.TamperDeduction > 100 {
		return Policy{}, fmt.Errorf("tamper_deduction must be within [0,100]")
	}
	if len(policy.Editors) == 0 {
		policy.Editors = append([]string(nil), DefaultEditors...)
	}

	return policy, nil
}
