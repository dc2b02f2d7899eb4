package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}

	if cfg.Model.BaseURL != defaultModelBaseURL {
		t.Errorf("expected default model url %q, got %q", defaultModelBaseURL, cfg.Model.BaseURL)
	}
	if cfg.Model.Backend != BackendOllama {
		t.Errorf("expected default backend %q, got %q", BackendOllama, cfg.Model.Backend)
	}
	if cfg.Model.ReasoningModel != "mistral" || cfg.Model.VisionModel != "llava" {
		t.Errorf("unexpected default models %q/%q", cfg.Model.ReasoningModel, cfg.Model.VisionModel)
	}
	if cfg.Model.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.Model.MaxRetries)
	}
	if cfg.Model.RetryDelay != time.Second {
		t.Errorf("expected default retry delay 1s, got %v", cfg.Model.RetryDelay)
	}
	if cfg.Model.Temperature != 0.3 {
		t.Errorf("expected default temperature 0.3, got %v", cfg.Model.Temperature)
	}
	if cfg.Model.HealthTimeout != 10*time.Second {
		t.Errorf("expected default health timeout 10s, got %v", cfg.Model.HealthTimeout)
	}

	if cfg.Evidence.MaxFileSize != 10*1024*1024 {
		t.Errorf("expected default max file size 10MiB, got %d", cfg.Evidence.MaxFileSize)
	}
	if !reflect.DeepEqual(cfg.Evidence.AllowedExtensions, []string{".jpg", ".jpeg", ".png"}) {
		t.Errorf("unexpected default extensions %v", cfg.Evidence.AllowedExtensions)
	}
	if cfg.Evidence.PipelineTimeout != 90*time.Second {
		t.Errorf("expected default pipeline timeout 90s, got %v", cfg.Evidence.PipelineTimeout)
	}
	if cfg.Evidence.TempDir() != filepath.Join(defaultUploadDir, "temp") {
		t.Errorf("unexpected temp dir %q", cfg.Evidence.TempDir())
	}

	if !reflect.DeepEqual(cfg.Policy, DefaultPolicy()) {
		t.Errorf("expected default policy, got %+v", cfg.Policy)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                   "9090",
		"SERVER_READ_TIMEOUT_SECONDS":   "30",
		"LOG_LEVEL":                     "debug",
		"LOG_FORMAT":                    "text",
		"OLLAMA_BASE_URL":               "http://models:11434",
		"MODEL_BACKEND":                 "openai",
		"OLLAMA_MODEL":                  "llama3",
		"OLLAMA_VISION_TIMEOUT_SECONDS": "45",
		"MAX_RETRIES":                   "5",
		"RETRY_DELAY_MS":                "250",
		"OLLAMA_TEMPERATURE":            "0.1",
		"MAX_FILE_SIZE_BYTES":           "2048",
		"ALLOWED_EXTENSIONS":            "JPG, png,.webp",
		"PIPELINE_TIMEOUT_SECONDS":      "120",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected overridden port, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Model.BaseURL != "http://models:11434" || cfg.Model.Backend != BackendOpenAI {
		t.Errorf("unexpected model endpoint %q/%q", cfg.Model.BaseURL, cfg.Model.Backend)
	}
	if cfg.Model.ReasoningModel != "llama3" {
		t.Errorf("expected reasoning model llama3, got %q", cfg.Model.ReasoningModel)
	}
	if cfg.Model.VisionTimeout != 45*time.Second {
		t.Errorf("expected vision timeout 45s, got %v", cfg.Model.VisionTimeout)
	}
	if cfg.Model.MaxRetries != 5 || cfg.Model.RetryDelay != 250*time.Millisecond {
		t.Errorf("unexpected retry settings %d/%v", cfg.Model.MaxRetries, cfg.Model.RetryDelay)
	}
	if cfg.Model.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", cfg.Model.Temperature)
	}
	if cfg.Evidence.MaxFileSize != 2048 {
		t.Errorf("expected max file size 2048, got %d", cfg.Evidence.MaxFileSize)
	}
	if !reflect.DeepEqual(cfg.Evidence.AllowedExtensions, []string{".jpg", ".png", ".webp"}) {
		t.Errorf("unexpected extensions %v", cfg.Evidence.AllowedExtensions)
	}
	if cfg.Evidence.PipelineTimeout != 120*time.Second {
		t.Errorf("expected pipeline timeout 120s, got %v", cfg.Evidence.PipelineTimeout)
	}
}

func TestLoadPrefersPortOverServerPort(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("expected PORT to win, got %q", cfg.Server.Port)
	}
}

func TestLoadS3Source(t *testing.T) {
	clearConfigEnv(t)
	if cfg, err := Load(); err != nil || cfg.Evidence.S3.Enabled() {
		t.Fatalf("expected S3 disabled by default, err=%v", err)
	}

	t.Setenv("EVIDENCE_S3_REGION", "eu-west-1")
	t.Setenv("EVIDENCE_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("EVIDENCE_S3_ACCESS_KEY", "key")
	t.Setenv("EVIDENCE_S3_SECRET_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.Evidence.S3.Enabled() || cfg.Evidence.S3.Endpoint != "http://minio:9000" {
		t.Errorf("unexpected S3 config %+v", cfg.Evidence.S3)
	}
}

func TestLoadRejectsPartialS3Credentials(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("EVIDENCE_S3_REGION", "eu-west-1")
	t.Setenv("EVIDENCE_S3_ACCESS_KEY", "key")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for access key without secret")
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "abc",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "3.5",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"MODEL_BACKEND":                   "bedrock",
		"MAX_RETRIES":                     "0",
		"OLLAMA_TEMPERATURE":              "hot",
		"RETRY_DELAY_MS":                  "-5",
		"MAX_FILE_SIZE_BYTES":             "lots",
		"ALLOWED_EXTENSIONS":              " , ",
		"SCORING_POLICY_FILE":             "/nonexistent/policy.yaml",
		"EVIDENCE_S3_ENDPOINT":           "http://minio:9000",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"INFO":    slog.LevelInfo,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("SERVER_READ_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout after reset, got %v", cfg.Server.ReadTimeout)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"OLLAMA_BASE_URL",
		"MODEL_BACKEND",
		"MODEL_API_KEY",
		"OLLAMA_MODEL",
		"OLLAMA_VISION_MODEL",
		"OLLAMA_TIMEOUT_SECONDS",
		"OLLAMA_VISION_TIMEOUT_SECONDS",
		"OLLAMA_REASONING_TIMEOUT_SECONDS",
		"OLLAMA_HEALTH_TIMEOUT_SECONDS",
		"OLLAMA_MAX_TOKENS",
		"OLLAMA_VISION_MAX_TOKENS",
		"OLLAMA_TEMPERATURE",
		"MAX_RETRIES",
		"RETRY_DELAY_MS",
		"MAX_FILE_SIZE_BYTES",
		"ALLOWED_EXTENSIONS",
		"UPLOAD_DIR",
		"DOWNLOAD_TIMEOUT_SECONDS",
		"PIPELINE_TIMEOUT_SECONDS",
		"SCORING_POLICY_FILE",
		"EVIDENCE_S3_REGION",
		"EVIDENCE_S3_ENDPOINT",
		"EVIDENCE_S3_ACCESS_KEY",
		"EVIDENCE_S3_SECRET_KEY",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
