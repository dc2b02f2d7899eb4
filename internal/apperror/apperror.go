// Package apperror defines the error taxonomy shared by the evidence engine.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and the HTTP surface.
type Kind string

const (
	KindInvalidEvidence    Kind = "invalid_evidence"
	KindMetadataExtraction Kind = "metadata_extraction_failed"
	KindModelTimeout       Kind = "model_timeout"
	KindModelConnection    Kind = "model_connection_failure"
	KindAnalysisFailed     Kind = "analysis_failed"
	KindInvalidRequest     Kind = "invalid_request"
)

// Sentinels for errors.Is comparisons. Only the Kind is compared.
var (
	ErrInvalidEvidence    = &Error{Kind: KindInvalidEvidence}
	ErrMetadataExtraction = &Error{Kind: KindMetadataExtraction}
	ErrModelTimeout       = &Error{Kind: KindModelTimeout}
	ErrModelConnection    = &Error{Kind: KindModelConnection}
	ErrAnalysisFailed     = &Error{Kind: KindAnalysisFailed}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
)

// Error is a classified failure carrying structured details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail adds a detail key-value pair to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidEvidence reports evidence that cannot be accepted: missing, too
// large, wrong type, undecodable or unreachable.
func InvalidEvidence(message string, details map[string]any) *Error {
	e := newError(KindInvalidEvidence, message, nil)
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// MetadataExtraction reports an unexpected failure reading a valid image.
func MetadataExtraction(message string, err error) *Error {
	return newError(KindMetadataExtraction, message, err)
}

// ModelTimeout reports that every attempt against the model timed out.
func ModelTimeout(message string, err error) *Error {
	return newError(KindModelTimeout, message, err)
}

// ModelConnection reports an unreachable model server or a non-success reply.
func ModelConnection(message string, err error) *Error {
	return newError(KindModelConnection, message, err)
}

// AnalysisFailed wraps any other pipeline failure.
func AnalysisFailed(message string, err error) *Error {
	return newError(KindAnalysisFailed, message, err)
}

// InvalidRequest reports a malformed inbound request field.
func InvalidRequest(field, message string) *Error {
	return newError(KindInvalidRequest, message, nil).WithDetail("field", field)
}

// KindOf returns the most specific kind found in err's chain. Model failures
// take precedence over analysis_failed so a wrapped timeout stays a timeout.
func KindOf(err error) (Kind, bool) {
	for _, k := range []Kind{
		KindInvalidEvidence,
		KindInvalidRequest,
		KindModelTimeout,
		KindModelConnection,
		KindMetadataExtraction,
		KindAnalysisFailed,
	} {
		if errors.Is(err, &Error{Kind: k}) {
			return k, true
		}
	}
	return "", false
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindInvalidEvidence, KindInvalidRequest:
		return http.StatusBadRequest
	case KindModelTimeout:
		return http.StatusGatewayTimeout
	case KindModelConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as a JSON-ready response payload.
func Body(err error, requestID string) map[string]any {
	body := map[string]any{
		"error":      "internal_error",
		"message":    err.Error(),
		"request_id": requestID,
	}
	if kind, ok := KindOf(err); ok {
		body["error"] = string(kind)
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
	}
	return body
}
