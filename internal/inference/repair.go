package inference

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RepairMethod names the step that produced a structured payload.
type RepairMethod string

const (
	RepairDirect     RepairMethod = "direct"
	RepairFencedJSON RepairMethod = "fenced_json"
	RepairFenced     RepairMethod = "fenced"
	RepairBraces     RepairMethod = "braces"
	RepairFailed     RepairMethod = "failed"
	// RepairText marks a text-only reply that was not parsed.
	RepairText RepairMethod = "text"
)

// Sentinel keys set when no structured payload could be recovered.
const (
	KeyParseError  = "parse_error"
	KeyRawResponse = "raw_response"
	KeyWarning     = "warning"
	KeyResponse    = "response"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedAnyPattern  = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*(.*?)\\s*```")
	bracePattern      = regexp.MustCompile(`(?s)\{.*\}`)
)

// Payload is a model reply after repair. Fields is never nil.
type Payload struct {
	Fields map[string]any
	Raw    string
	Method RepairMethod
}

// ParseFailed reports whether no structured payload could be recovered.
func (p Payload) ParseFailed() bool {
	return p.Method == RepairFailed
}

// Repair recovers a JSON object from loosely formatted model output. It
// never fails: unrecoverable text yields a sentinel payload flagged with
// parse_error and carrying the raw text verbatim.
func Repair(text string) Payload {
	trimmed := strings.TrimSpace(text)

	if fields, ok := parseObject(trimmed); ok {
		return Payload{Fields: fields, Raw: text, Method: RepairDirect}
	}

	if m := fencedJSONPattern.FindStringSubmatch(trimmed); len(m) > 1 {
		if fields, ok := parseObject(m[1]); ok {
			return Payload{Fields: fields, Raw: text, Method: RepairFencedJSON}
		}
	}

	if m := fencedAnyPattern.FindStringSubmatch(trimmed); len(m) > 1 {
		if fields, ok := parseObject(m[1]); ok {
			return Payload{Fields: fields, Raw: text, Method: RepairFenced}
		}
	}

	if m := bracePattern.FindString(trimmed); m != "" {
		if fields, ok := parseObject(m); ok {
			return Payload{Fields: fields, Raw: text, Method: RepairBraces}
		}
	}

	return Payload{
		Fields: map[string]any{
			KeyParseError:  true,
			KeyRawResponse: text,
			KeyWarning:     "model response could not be parsed as JSON",
		},
		Raw:    text,
		Method: RepairFailed,
	}
}

// TextPayload wraps an unstructured reply.
func TextPayload(text string) Payload {
	return Payload{
		Fields: map[string]any{KeyResponse: text},
		Raw:    text,
		Method: RepairText,
	}
}

// parseObject accepts only a JSON object, trying the candidate as-is and
// then with comments and trailing commas removed.
func parseObject(candidate string) (map[string]any, bool) {
	if candidate == "" {
		return nil, false
	}
	for _, c := range []string{candidate, cleanJSON(candidate)} {
		var fields map[string]any
		if err := json.Unmarshal([]byte(c), &fields); err == nil && fields != nil {
			return fields, true
		}
	}
	return nil, false
}

// cleanJSON removes // comments outside string values and trailing commas.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return stripTrailingCommas(strings.Join(lines, "\n"))
}

// stripTrailingCommas drops a comma that only whitespace separates from a
// closing brace or bracket. String contents are left alone.
func stripTrailingCommas(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}

		if ch == '"' {
			inString = true
		} else if ch == ',' {
			j := i + 1
			for j < len(raw) && strings.IndexByte(" \t\r\n", raw[j]) >= 0 {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
