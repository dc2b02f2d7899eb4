package inference

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"
)

// GenerateRequest is a single non-streaming generation call.
type GenerateRequest struct {
	Model       string
	Prompt      string
	System      string
	Images      [][]byte
	MaxTokens   int
	Temperature float64
}

// Backend talks to one kind of model server.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

const maxErrorBody = 200

// readErrorBody returns a bounded, printable excerpt of a failed response.
func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody*4))
	return truncate(strings.TrimSpace(string(data)), maxErrorBody)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
