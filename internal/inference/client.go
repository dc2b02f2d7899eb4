// Package inference is the shared client for the generative model server.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/config"
)

// jsonInstruction is appended to prompts that expect a structured reply.
const jsonInstruction = "\n\nIMPORTANT: You must respond ONLY with valid JSON. " +
	"Do not include any explanation, markdown formatting, or text before or after the JSON object."

// Config holds client defaults. Request fields override them per call.
type Config struct {
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Retry       RetryPolicy
}

// ConfigFrom builds client defaults from the model configuration.
func ConfigFrom(m config.ModelConfig) Config {
	return Config{
		Model:       m.ReasoningModel,
		Timeout:     m.Timeout,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		Retry: RetryPolicy{
			MaxAttempts: m.MaxRetries,
			BaseDelay:   m.RetryDelay,
		},
	}
}

// NewBackend selects the backend named in the model configuration.
func NewBackend(m config.ModelConfig, httpClient *http.Client) (Backend, error) {
	switch m.Backend {
	case config.BackendOllama, "":
		return NewOllamaBackend(m.BaseURL, httpClient), nil
	case config.BackendOpenAI:
		return NewOpenAIBackend(m.BaseURL, m.APIKey, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", m.Backend)
	}
}

// Request is one logical model query. Zero values fall back to the client
// defaults.
type Request struct {
	Operation   string
	Prompt      string
	System      string
	Image       []byte
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature *float64
	ExpectJSON  bool
}

// Client sends prompts to a Backend with per-attempt timeouts, retries and
// JSON repair. It holds no per-call state and is safe for concurrent use.
type Client struct {
	backend Backend
	cfg     Config
	calls   *Logger
	logger  *slog.Logger
}

// NewClient creates a Client. calls may be nil.
func NewClient(backend Backend, cfg Config, calls *Logger, logger *slog.Logger) *Client {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Client{
		backend: backend,
		cfg:     cfg,
		calls:   calls,
		logger:  logger,
	}
}

// Backend returns the backend name.
func (c *Client) Backend() string {
	return c.backend.Name()
}

// Query sends req and returns the repaired payload. Malformed JSON is not an
// error; only an unreachable or rejecting model server is.
func (c *Client) Query(ctx context.Context, req Request) (Payload, error) {
	model := firstNonEmpty(req.Model, c.cfg.Model)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := c.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	operation := firstNonEmpty(req.Operation, "generate")

	prompt := req.Prompt
	if req.ExpectJSON {
		prompt += jsonInstruction
	}

	gen := GenerateRequest{
		Model:       model,
		Prompt:      prompt,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if len(req.Image) > 0 {
		gen.Images = [][]byte{req.Image}
	}

	var (
		text        string
		failures    []failureKind
		lastFailure failureKind
	)

	start := time.Now()
	attempts, err := Retry(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := c.backend.Generate(attemptCtx, gen)
		if err == nil {
			text = out
			return nil
		}

		lastFailure = classify(ctx, err)
		failures = append(failures, lastFailure)

		c.logger.Warn("model call attempt failed",
			"backend", c.backend.Name(),
			"model", model,
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", c.cfg.Retry.MaxAttempts,
			"failure", lastFailure.String(),
			"error", err)

		switch lastFailure {
		case failureTimeout, failureConnection:
			return NewRetryableError(err)
		default:
			return err
		}
	})
	latency := time.Since(start)

	params := LogCallParams{
		Backend:   c.backend.Name(),
		Model:     model,
		Operation: operation,
		Attempts:  attempts,
		Latency:   latency,
		Status:    "success",
	}

	if err != nil {
		if ctx.Err() != nil {
			lastFailure = failureCancelled
		}
		appErr := c.callError(ctx, err, failures, lastFailure, model, attempts, timeout)
		params.Status = lastFailure.String()
		params.Err = appErr
		c.calls.LogCall(ctx, params)
		return Payload{}, appErr
	}

	payload := TextPayload(text)
	if req.ExpectJSON {
		payload = Repair(text)
		params.Repair = payload.Method
		if payload.ParseFailed() {
			c.logger.Warn("model response was not valid JSON",
				"model", model,
				"operation", operation,
				"response_preview", truncate(text, maxErrorBody))
		}
	}

	c.calls.LogCall(ctx, params)
	return payload, nil
}

// callError converts the final attempt error into the taxonomy. Exhausted
// retries are a timeout only when every attempt timed out.
func (c *Client) callError(ctx context.Context, err error, failures []failureKind, last failureKind, model string, attempts int, timeout time.Duration) *apperror.Error {
	var appErr *apperror.Error

	switch last {
	case failureStatus:
		appErr = apperror.ModelConnection("model server rejected the request", err)
	case failureCancelled:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			appErr = apperror.ModelTimeout("model call exceeded the caller deadline", err)
		} else {
			appErr = apperror.ModelConnection("model call cancelled", err)
		}
	default:
		allTimeouts := len(failures) > 0
		for _, f := range failures {
			if f != failureTimeout {
				allTimeouts = false
				break
			}
		}
		if allTimeouts {
			appErr = apperror.ModelTimeout(fmt.Sprintf("model did not respond within %s", timeout), err)
		} else {
			appErr = apperror.ModelConnection("failed to reach model server", err)
		}
	}

	return appErr.
		WithDetail("backend", c.backend.Name()).
		WithDetail("model", model).
		WithDetail("attempts", attempts).
		WithDetail("timeout_seconds", timeout.Seconds())
}

// ListModels returns the names installed on the model server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.backend.ListModels(ctx)
	if err != nil {
		if classify(ctx, err) == failureTimeout {
			return nil, apperror.ModelTimeout("listing models timed out", err)
		}
		return nil, apperror.ModelConnection("failed to list models", err)
	}
	return models, nil
}

// HasModel reports whether name is installed. Tags after ':' are ignored on
// both sides.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	return containsModel(models, name), nil
}

func containsModel(models []string, name string) bool {
	want := baseName(name)
	for _, m := range models {
		if baseName(m) == want {
			return true
		}
	}
	return false
}

func baseName(model string) string {
	name, _, _ := strings.Cut(model, ":")
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Available lists the model server once and reports which of names are
// installed.
func (c *Client) Available(ctx context.Context, names ...string) (map[string]bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = containsModel(models, name)
	}
	return out, nil
}
