package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairEquivalentForms(t *testing.T) {
	want := map[string]any{"confidence": float64(80), "cleanliness_level": "dirty"}

	tests := []struct {
		name   string
		input  string
		method RepairMethod
	}{
		{
			name:   "direct",
			input:  `  {"confidence": 80, "cleanliness_level": "dirty"}  `,
			method: RepairDirect,
		},
		{
			name:   "fenced json block",
			input:  "Here is the analysis:\n```json\n{\"confidence\": 80, \"cleanliness_level\": \"dirty\"}\n```\nLet me know.",
			method: RepairFencedJSON,
		},
		{
			name:   "unlabelled fence",
			input:  "```\n{\"confidence\": 80, \"cleanliness_level\": \"dirty\"}\n```",
			method: RepairFenced,
		},
		{
			name:   "bare object in prose",
			input:  "Sure! {\"confidence\": 80, \"cleanliness_level\": \"dirty\"} Hope this helps.",
			method: RepairBraces,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Repair(tt.input)
			assert.Equal(t, tt.method, p.Method)
			assert.Equal(t, want, p.Fields)
			assert.False(t, p.ParseFailed())
			assert.Equal(t, tt.input, p.Raw)
		})
	}
}

func TestRepairCleansCommentsAndTrailingCommas(t *testing.T) {
	input := "```json\n{\n  \"detected_objects\": [\n    \"sink\",  // kitchen\n    \"mold\",\n  ],\n  \"url\": \"http://example.com/a\"\n}\n```"

	p := Repair(input)
	require.False(t, p.ParseFailed())
	assert.Equal(t, []any{"sink", "mold"}, p.Fields["detected_objects"])
	assert.Equal(t, "http://example.com/a", p.Fields["url"])
}

func TestRepairSentinelForNonJSON(t *testing.T) {
	inputs := []string{
		"I cannot analyze this image.",
		"",
		"[1, 2, 3]",
		"{not json at all}",
	}

	for _, input := range inputs {
		p := Repair(input)
		require.True(t, p.ParseFailed(), "input %q", input)
		assert.Equal(t, true, p.Fields[KeyParseError])
		assert.Equal(t, input, p.Fields[KeyRawResponse])
		assert.NotEmpty(t, p.Fields[KeyWarning])
		assert.Equal(t, input, p.Raw)
	}
}

func TestTextPayload(t *testing.T) {
	p := TextPayload("plain answer")
	assert.Equal(t, RepairText, p.Method)
	assert.Equal(t, "plain answer", p.Fields[KeyResponse])
	assert.False(t, p.ParseFailed())
}

func TestStripLineComment(t *testing.T) {
	assert.Equal(t, `"a": "http://x"`, stripLineComment(`"a": "http://x"`))
	assert.Equal(t, `"a": 1,`, stripLineComment(`"a": 1,   // note`))
	assert.Equal(t, `"a": "x\"//y"`, stripLineComment(`"a": "x\"//y"`))
}

func TestRepairKeepsCommasInsideStrings(t *testing.T) {
	p := Repair(`{"reasoning": "a, }", "concerns": ["x, ]", "y",],}`)
	require.False(t, p.ParseFailed())
	assert.Equal(t, "a, }", p.Fields["reasoning"])
	assert.Equal(t, []any{"x, ]", "y"}, p.Fields["concerns"])
}

func TestStripTrailingCommas(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1,}`, `{"a": 1}`},
		{"[1, 2,\n ]", "[1, 2\n ]"},
		{`{"a": "b,}"}`, `{"a": "b,}"}`},
		{`{"a": "q\",}",}`, `{"a": "q\",}"}`},
		{`{"a": 1, "b": 2}`, `{"a": 1, "b": 2}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripTrailingCommas(tt.in), tt.in)
	}
}
