package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaBackend calls the native Ollama generate and tags endpoints.
type OllamaBackend struct {
	baseURL string
	http    *http.Client
}

// NewOllamaBackend creates a backend for baseURL. Per-call deadlines come
// from the request context, so httpClient should not set its own timeout.
func NewOllamaBackend(baseURL string, httpClient *http.Client) *OllamaBackend {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (b *OllamaBackend) Name() string { return "ollama" }

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Images  []string      `json:"images,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate posts a non-streaming request to /api/generate.
func (b *OllamaBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body := ollamaGenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}
	for _, img := range req.Images {
		body.Images = append(body.Images, base64.StdEncoding.EncodeToString(img))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}

// ListModels returns the installed model names from /api/tags.
func (b *OllamaBackend) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := b.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
