package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIBackendGenerateWithImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		raw := map[string]any{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))

		assert.Equal(t, "llava", raw["model"])
		messages, _ := raw["messages"].([]any)
		if !assert.Len(t, messages, 2) {
			return
		}

		user, _ := messages[1].(map[string]any)
		parts, _ := user["content"].([]any)
		assert.Len(t, parts, 2)
		if len(parts) == 2 {
			imagePart, _ := parts[1].(map[string]any)
			imageURL, _ := imagePart["image_url"].(map[string]any)
			url, _ := imageURL["url"].(string)
			assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llava",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"confidence\": 70}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(server.URL, "secret", server.Client())
	png := []byte("\x89PNG\r\n\x1a\n0000")

	out, err := backend.Generate(context.Background(), GenerateRequest{
		Model:     "llava",
		Prompt:    "describe",
		System:    "inspector",
		Images:    [][]byte{png},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"confidence": 70}`, out)
}

func TestOpenAIBackendStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "model not loaded", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(server.URL+"/v1", "", server.Client())

	_, err := backend.Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "model not loaded")
}

func TestOpenAIBackendListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "llava:latest", "object": "model"}, {"id": "mistral", "object": "model"}]}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(server.URL, "", server.Client())

	models, err := backend.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llava:latest", "mistral"}, models)
}
