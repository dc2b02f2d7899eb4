package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls an OpenAI-compatible chat completions API. Ollama
// serves one under /v1, as do most hosted gateways.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend creates a backend for baseURL. A missing /v1 suffix is
// appended.
func NewOpenAIBackend(baseURL, apiKey string, httpClient *http.Client) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	cfg.BaseURL = base
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg)}
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Generate sends one chat completion. Images travel as data URIs alongside
// the prompt text.
func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.Images) == 0 {
		user.Content = req.Prompt
	} else {
		user.MultiContent = []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		}}
		for _, img := range req.Images {
			user.MultiContent = append(user.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(img),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}
	messages = append(messages, user)

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", translateOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion from model %s", req.Model)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the model IDs the server exposes.
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, translateOpenAIError(err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// translateOpenAIError maps HTTP-level failures to StatusError and leaves
// transport failures untouched for classification.
func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Code: apiErr.HTTPStatusCode, Body: truncate(apiErr.Message, maxErrorBody)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{Code: reqErr.HTTPStatusCode, Body: truncate(body, maxErrorBody)}
	}

	return err
}

func dataURI(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}
