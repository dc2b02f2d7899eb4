package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/rentshield/rentshield/internal/logging"
)

// Recorder receives model call outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	RecordModelCall(backend, model, operation, outcome string, d time.Duration)
	RecordRepair(method string)
}

// Logger records every model call to the structured log and, when set, to
// a metrics recorder.
type Logger struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewLogger creates a call logger. recorder may be nil.
func NewLogger(logger *slog.Logger, recorder Recorder) *Logger {
	return &Logger{
		logger:   logger,
		recorder: recorder,
	}
}

// LogCallParams describes one finished call, retries included.
type LogCallParams struct {
	Backend   string
	Model     string
	Operation string
	Attempts  int
	Latency   time.Duration
	Status    string // "success", "timeout", "connection", "status" or "cancelled"
	Err       error
	Repair    RepairMethod
	Metadata  map[string]any
}

// LogCall logs a model call.
func (l *Logger) LogCall(ctx context.Context, params LogCallParams) {
	if l == nil {
		return
	}

	attrs := []any{
		"backend", params.Backend,
		"model", params.Model,
		"operation", params.Operation,
		"attempts", params.Attempts,
		"latency_ms", params.Latency.Milliseconds(),
		"status", params.Status,
	}
	if params.Repair != "" {
		attrs = append(attrs, "json_repair", string(params.Repair))
	}
	for k, v := range params.Metadata {
		attrs = append(attrs, k, v)
	}

	log := logging.FromContext(ctx, l.logger)
	if params.Err != nil {
		attrs = append(attrs, "error", params.Err)
		log.Error("model call failed", attrs...)
	} else {
		log.Info("model call completed", attrs...)
	}

	if l.recorder == nil {
		return
	}
	l.recorder.RecordModelCall(params.Backend, params.Model, params.Operation, params.Status, params.Latency)
	if params.Repair != "" && params.Repair != RepairText {
		l.recorder.RecordRepair(string(params.Repair))
	}
}
