package enrichment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The helpers below read one field of an untyped model reply. The boolean
// result reports whether a usable value was found; callers fall back to a
// default otherwise.

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func intField(fields map[string]any, key string) (int, bool) {
	switch v := fields[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return floatToInt(v), true
	case int:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return floatToInt(f), true
		}
	}
	return 0, false
}

// floatToInt saturates f to the int32 range before converting, so an
// out-of-range reply keeps its sign through the later clamp.
func floatToInt(f float64) int {
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
}

func boolField(fields map[string]any, key string) (bool, bool) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return false, false
	}
	if b, ok := raw.(bool); ok {
		return b, true
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(raw))) {
	case "true", "yes", "1":
		return true, true
	default:
		return false, true
	}
}

// listField never returns nil. A lone string becomes a one-element list.
func listField(fields map[string]any, key string) ([]string, bool) {
	out := []string{}
	switch v := fields[key].(type) {
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		return append(out, v...), true
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return append(out, s), true
		}
	}
	return out, false
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
