package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadPolicyEmptyPathReturnsDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy returned error: %v", err)
	}

	if policy.Weights != (Weights{Authenticity: 0.3, Vision: 0.3, Consistency: 0.4}) {
		t.Errorf("unexpected default weights %+v", policy.Weights)
	}
	if policy.TamperDeduction != 30 {
		t.Errorf("expected tamper deduction 30, got %d", policy.TamperDeduction)
	}
	if len(policy.Editors) != len(DefaultEditors) {
		t.Errorf("expected %d editors, got %d", len(DefaultEditors), len(policy.Editors))
	}
}

func TestLoadPolicyOverridesWeights(t *testing.T) {
	path := writePolicy(t, `
weights:
  authenticity: 0.5
  vision: 0.2
  consistency: 0.3
tamper_deduction: 20
`)

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy returned error: %v", err)
	}

	if policy.Weights != (Weights{Authenticity: 0.5, Vision: 0.2, Consistency: 0.3}) {
		t.Errorf("unexpected weights %+v", policy.Weights)
	}
	if policy.TamperDeduction != 20 {
		t.Errorf("expected tamper deduction 20, got %d", policy.TamperDeduction)
	}
	if len(policy.Editors) != len(DefaultEditors) {
		t.Errorf("editors should keep defaults when omitted, got %v", policy.Editors)
	}
}

func TestLoadPolicyCustomEditors(t *testing.T) {
	path := writePolicy(t, "editors: [\"darktable\", \"krita\"]\n")

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy returned error: %v", err)
	}
	if len(policy.Editors) != 2 || policy.Editors[0] != "darktable" {
		t.Errorf("unexpected editors %v", policy.Editors)
	}
}

func TestLoadPolicyRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"negative weight": "weights: {authenticity: -0.1, vision: 0.5, consistency: 0.6}\n",
		"zero weights":    "weights: {authenticity: 0, vision: 0, consistency: 0}\n",
		"bad deduction":   "tamper_deduction: 150\n",
		"malformed yaml":  "weights: [\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPolicy(writePolicy(t, body)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}
