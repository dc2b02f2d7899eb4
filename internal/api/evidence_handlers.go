package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/pipeline"
	"github.com/rentshield/rentshield/internal/validation"
)

// multipartOverhead leaves room for form fields and boundaries on top of
// the image itself.
const multipartOverhead = 1 << 20

// ValidateEvidence handles POST /api/v1/validate-evidence.
func (h *Handler) ValidateEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := logging.FromContext(r.Context(), h.logger)

	limit := h.uploads.MaxFileSize + multipartOverhead
	if r.ContentLength > limit {
		h.respondError(w, r, h.tooLarge(r.ContentLength))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, r, h.tooLarge(maxErr.Limit))
			return
		}
		h.respondError(w, r, apperror.InvalidRequest("image", "request must be multipart/form-data with an image file"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	claim := r.FormValue("claim_text")
	incidentDate := r.FormValue("incident_date")
	if err := validateClaim(claim, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateIncidentDate(incidentDate); err != nil {
		h.respondError(w, r, err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.respondError(w, r, apperror.InvalidRequest("image", "image file is required"))
		return
	}
	defer file.Close()

	logger.Info("validate evidence request received",
		"filename", header.Filename,
		"content_type", header.Header.Get("Content-Type"),
		"has_claim", claim != "")

	path, err := h.spool(file, header.Filename)
	if err != nil {
		h.respondError(w, r, apperror.AnalysisFailed("failed to store upload", err))
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove upload", "path", path, "error", err)
		}
	}()

	result, err := h.engine.Validate(r.Context(), path, validation.ValidateOptions{
		Claim:        claim,
		IncidentDate: incidentDate,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// AnalyzeImageEvidence handles POST /api/v1/analyze-image-evidence.
func (h *Handler) AnalyzeImageEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead)).Decode(&req); err != nil {
		h.respondError(w, r, apperror.InvalidRequest("body", "request body must be a JSON object"))
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("analyze image evidence request received",
		"claim_length", len(req.ClaimText),
		"has_incident_date", req.IncidentDate != "")

	result, err := h.engine.Analyze(r.Context(), pipeline.AnalyzeRequest{
		ImageURL:     req.ImageURL,
		Claim:        req.ClaimText,
		IncidentDate: req.IncidentDate,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) tooLarge(size int64) error {
	return apperror.InvalidEvidence(
		fmt.Sprintf("file too large, max size: %dMB", h.uploads.MaxFileSize/(1024*1024)),
		map[string]any{"file_size": size, "max_size": h.uploads.MaxFileSize})
}

// spool copies an upload into the temp dir, keeping its extension so the
// extractor can check it.
func (h *Handler) spool(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploads.TempDir, 0o750); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" {
		ext = ".jpg"
	}
	f, err := os.CreateTemp(h.uploads.TempDir, "upload-*"+ext)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
