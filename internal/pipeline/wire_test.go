package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentshield/rentshield/internal/config"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/metrics"
)

func testConfig(baseURL, uploadDir string) config.Config {
	return config.Config{
		Model: config.ModelConfig{
			BaseURL:          baseURL,
			Backend:          config.BackendOllama,
			ReasoningModel:   "mistral",
			VisionModel:      "llava",
			Timeout:          time.Second,
			VisionTimeout:    time.Second,
			ReasoningTimeout: time.Second,
			MaxTokens:        256,
			VisionMaxTokens:  256,
			MaxRetries:       1,
		},
		Evidence: config.EvidenceConfig{
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{".jpg", ".png"},
			UploadDir:         uploadDir,
			DownloadTimeout:   time.Second,
			PipelineTimeout:   5 * time.Second,
		},
		Policy: config.DefaultPolicy(),
	}
}

func TestFromConfigHealthAgainstOllama(t *testing.T) {
	var listings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			listings.Add(1)
		}
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models": [{"name": "mistral:latest"}, {"name": "llava:13b"}]}`))
	}))
	defer srv.Close()

	collector, err := metrics.New()
	require.NoError(t, err)

	asm, err := FromConfig(context.Background(), testConfig(srv.URL, t.TempDir()), collector, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, config.BackendOllama, asm.Client.Backend())

	health := asm.Engine.Health(context.Background())
	assert.True(t, health.Healthy())
	assert.Equal(t, "mistral", health.ModelAvailable)
	assert.Equal(t, int32(1), listings.Load(), "one listing should answer for both models")
}

func TestFromConfigHealthBoundedByTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, t.TempDir())
	cfg.Model.HealthTimeout = 200 * time.Millisecond

	asm, err := FromConfig(context.Background(), cfg, nil, logging.Discard())
	require.NoError(t, err)

	start := time.Now()
	health := asm.Engine.Health(context.Background())
	elapsed := time.Since(start)

	assert.False(t, health.Healthy())
	assert.Empty(t, health.ModelAvailable)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestFromConfigRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig("http://localhost:1", t.TempDir())
	cfg.Model.Backend = "bedrock"

	_, err := FromConfig(context.Background(), cfg, nil, logging.Discard())
	assert.Error(t, err)
}
