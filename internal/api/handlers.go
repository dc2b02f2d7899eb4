package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/models"
	"github.com/rentshield/rentshield/internal/pipeline"
	"github.com/rentshield/rentshield/internal/validation"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Engine is the evidence pipeline served over HTTP.
type Engine interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (models.EvidenceAnalysis, error)
	Validate(ctx context.Context, path string, opts validation.ValidateOptions) (models.EvidenceValidation, error)
	Health(ctx context.Context) pipeline.ModelHealth
}

// UploadConfig bounds multipart evidence uploads.
type UploadConfig struct {
	TempDir     string
	MaxFileSize int64
}

// Handler serves the evidence endpoints.
type Handler struct {
	engine    Engine
	uploads   UploadConfig
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(engine Engine, uploads UploadConfig, logger *slog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		uploads:   uploads,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string  `json:"status"`
	LLMConnected    bool    `json:"llm_connected"`
	VisionConnected bool    `json:"vision_connected"`
	Version         string  `json:"version"`
	ModelAvailable  *string `json:"model_available"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
}

// Health handles GET /health. It always answers 200; a missing model is
// reported as degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := h.engine.Health(r.Context())

	resp := HealthResponse{
		Status:          "healthy",
		LLMConnected:    health.ReasoningConnected,
		VisionConnected: health.VisionConnected,
		Version:         Version,
		UptimeSeconds:   int64(time.Since(h.startTime).Seconds()),
	}
	if !health.Healthy() {
		resp.Status = "degraded"
	}
	if health.ModelAvailable != "" {
		resp.ModelAvailable = &health.ModelAvailable
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// withRequestID tags the request context with a fresh request ID and echoes
// it in the X-Request-ID header.
func (h *Handler) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := logging.WithRequestID(r.Context(), h.logger, id)
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	logger := logging.FromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}
	h.respondJSON(w, status, apperror.Body(err, logging.RequestID(r.Context())))
}
