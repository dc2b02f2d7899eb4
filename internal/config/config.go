package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Model    ModelConfig
	Evidence EvidenceConfig
	Policy   Policy
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// ModelConfig describes the generation endpoint and the two logical models
// served by it.
type ModelConfig struct {
	BaseURL          string
	Backend          string
	APIKey           string
	ReasoningModel   string
	VisionModel      string
	Timeout          time.Duration
	VisionTimeout    time.Duration
	ReasoningTimeout time.Duration
	HealthTimeout    time.Duration
	MaxTokens        int
	VisionMaxTokens  int
	Temperature      float64
	MaxRetries       int
	RetryDelay       time.Duration
}

// EvidenceConfig gates which images are accepted and bounds the pipeline.
type EvidenceConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
	UploadDir         string
	DownloadTimeout   time.Duration
	PipelineTimeout   time.Duration
	S3                S3Config
}

// S3Config locates the object store that s3:// evidence URLs are read from.
// An empty Region leaves s3:// URLs unsupported.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Enabled reports whether an S3 source is configured.
func (s S3Config) Enabled() bool {
	return s.Region != ""
}

// TempDir is where downloaded and uploaded evidence is spooled.
func (e EvidenceConfig) TempDir() string {
	return filepath.Join(e.UploadDir, "temp")
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultModelBaseURL     = "http://localhost:11434"
	defaultModelBackend     = BackendOllama
	defaultReasoningModel   = "mistral"
	defaultVisionModel      = "llava"
	defaultModelTimeout     = 120 * time.Second
	defaultVisionTimeout    = 90 * time.Second
	defaultReasoningTimeout = 60 * time.Second
	defaultHealthTimeout    = 10 * time.Second
	defaultMaxTokens        = 2048
	defaultVisionMaxTokens  = 1024
	defaultTemperature      = 0.3
	defaultMaxRetries       = 3
	defaultRetryDelay       = time.Second

	defaultMaxFileSize     = 10 * 1024 * 1024
	defaultUploadDir       = "./uploads"
	defaultDownloadTimeout = 30 * time.Second
	defaultPipelineTimeout = 90 * time.Second
)

// Supported model backends.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

var defaultAllowedExtensions = []string{".jpg", ".jpeg", ".png"}

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Model: ModelConfig{
			BaseURL:          getEnv("OLLAMA_BASE_URL", defaultModelBaseURL),
			Backend:          defaultModelBackend,
			APIKey:           os.Getenv("MODEL_API_KEY"),
			ReasoningModel:   getEnv("OLLAMA_MODEL", defaultReasoningModel),
			VisionModel:      getEnv("OLLAMA_VISION_MODEL", defaultVisionModel),
			Timeout:          defaultModelTimeout,
			VisionTimeout:    defaultVisionTimeout,
			ReasoningTimeout: defaultReasoningTimeout,
			HealthTimeout:    defaultHealthTimeout,
			MaxTokens:        defaultMaxTokens,
			VisionMaxTokens:  defaultVisionMaxTokens,
			Temperature:      defaultTemperature,
			MaxRetries:       defaultMaxRetries,
			RetryDelay:       defaultRetryDelay,
		},
		Evidence: EvidenceConfig{
			MaxFileSize:       defaultMaxFileSize,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
			UploadDir:         getEnv("UPLOAD_DIR", defaultUploadDir),
			DownloadTimeout:   defaultDownloadTimeout,
			PipelineTimeout:   defaultPipelineTimeout,
			S3: S3Config{
				Region:    os.Getenv("EVIDENCE_S3_REGION"),
				Endpoint:  os.Getenv("EVIDENCE_S3_ENDPOINT"),
				AccessKey: os.Getenv("EVIDENCE_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("EVIDENCE_S3_SECRET_KEY"),
			},
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT_SECONDS", &cfg.Server.ShutdownTimeout},
		{"OLLAMA_TIMEOUT_SECONDS", &cfg.Model.Timeout},
		{"OLLAMA_VISION_TIMEOUT_SECONDS", &cfg.Model.VisionTimeout},
		{"OLLAMA_REASONING_TIMEOUT_SECONDS", &cfg.Model.ReasoningTimeout},
		{"OLLAMA_HEALTH_TIMEOUT_SECONDS", &cfg.Model.HealthTimeout},
		{"DOWNLOAD_TIMEOUT_SECONDS", &cfg.Evidence.DownloadTimeout},
		{"PIPELINE_TIMEOUT_SECONDS", &cfg.Evidence.PipelineTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := parseSeconds(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if err := loadModel(&cfg.Model); err != nil {
		return Config{}, err
	}
	if err := loadEvidence(&cfg.Evidence); err != nil {
		return Config{}, err
	}

	policy, err := LoadPolicy(os.Getenv("SCORING_POLICY_FILE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SCORING_POLICY_FILE: %w", err)
	}
	cfg.Policy = policy

	return cfg, nil
}

func loadModel(m *ModelConfig) error {
	if v := os.Getenv("MODEL_BACKEND"); v != "" {
		switch v {
		case BackendOllama, BackendOpenAI:
			m.Backend = v
		default:
			return fmt.Errorf("invalid MODEL_BACKEND: must be '%s' or '%s'", BackendOllama, BackendOpenAI)
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"OLLAMA_MAX_TOKENS", &m.MaxTokens},
		{"OLLAMA_VISION_MAX_TOKENS", &m.VisionMaxTokens},
		{"MAX_RETRIES", &m.MaxRetries},
	}
	for _, i := range ints {
		if v := os.Getenv(i.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid %s: must be a positive integer", i.key)
			}
			*i.dst = n
		}
	}

	if v := os.Getenv("OLLAMA_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return fmt.Errorf("invalid OLLAMA_TEMPERATURE: must be a number between 0 and 2")
		}
		m.Temperature = t
	}

	if v := os.Getenv("RETRY_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return fmt.Errorf("invalid RETRY_DELAY_MS: must be a non-negative integer")
		}
		m.RetryDelay = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func loadEvidence(e *EvidenceConfig) error {
	if v := os.Getenv("MAX_FILE_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid MAX_FILE_SIZE_BYTES: must be a positive integer")
		}
		e.MaxFileSize = n
	}

	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		exts := parseExtensions(v)
		if len(exts) == 0 {
			return fmt.Errorf("invalid ALLOWED_EXTENSIONS: no extensions listed")
		}
		e.AllowedExtensions = exts
	}

	if (e.S3.AccessKey == "") != (e.S3.SecretKey == "") {
		return fmt.Errorf("invalid EVIDENCE_S3_ACCESS_KEY/EVIDENCE_S3_SECRET_KEY: both or neither must be set")
	}
	if e.S3.Endpoint != "" && !e.S3.Enabled() {
		return fmt.Errorf("invalid EVIDENCE_S3_ENDPOINT: EVIDENCE_S3_REGION must also be set")
	}
	return nil
}

// parseExtensions splits a comma separated list, lowercasing and adding the
// leading dot where missing.
func parseExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
