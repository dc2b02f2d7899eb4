// Package metadata validates evidence images and reads their embedded
// capture metadata.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/models"
)

const hashChunkSize = 4096

// Options gate which files are accepted.
type Options struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// Extractor validates images and extracts a models.Metadata record. It holds
// only configuration and is safe for concurrent use.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an Extractor. Extensions are compared lowercased.
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	exts := make([]string, 0, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		exts = append(exts, strings.ToLower(ext))
	}
	opts.AllowedExtensions = exts

	return &Extractor{opts: opts, logger: logger}
}

// Allowed reports whether ext (with leading dot) is accepted.
func (e *Extractor) Allowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range e.opts.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

// Validate checks that path exists, is within the size ceiling, has an
// allowed extension and decodes as an image.
func (e *Extractor) Validate(path string) error {
	filename := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperror.InvalidEvidence("image file does not exist", map[string]any{"filename": filename})
		}
		return apperror.InvalidEvidence("image file is not readable", map[string]any{
			"filename": filename,
			"error":    err.Error(),
		})
	}
	if info.IsDir() {
		return apperror.InvalidEvidence("image path is a directory", map[string]any{"filename": filename})
	}

	if info.Size() > e.opts.MaxFileSize {
		return apperror.InvalidEvidence(
			fmt.Sprintf("image file too large (max %d bytes)", e.opts.MaxFileSize),
			map[string]any{"filename": filename, "file_size": info.Size()},
		)
	}

	ext := filepath.Ext(path)
	if !e.Allowed(ext) {
		return apperror.InvalidEvidence(
			fmt.Sprintf("invalid file type, allowed: %s", strings.Join(e.opts.AllowedExtensions, ", ")),
			map[string]any{"filename": filename, "extension": ext},
		)
	}

	if _, _, err := decodeConfig(path); err != nil {
		return apperror.InvalidEvidence("file is not a valid image", map[string]any{
			"filename": filename,
			"error":    err.Error(),
		})
	}

	return nil
}

// Extract validates path and returns its metadata. A missing EXIF block is
// not an error: only hash, dimensions and size are populated.
func (e *Extractor) Extract(path string) (models.Metadata, error) {
	if err := e.Validate(path); err != nil {
		return models.Metadata{}, err
	}

	filename := filepath.Base(path)

	hash, size, err := HashFile(path)
	if err != nil {
		return models.Metadata{}, apperror.MetadataExtraction("failed to hash image", err).WithDetail("filename", filename)
	}

	cfg, _, err := decodeConfig(path)
	if err != nil {
		return models.Metadata{}, apperror.MetadataExtraction("failed to open image", err).WithDetail("filename", filename)
	}

	meta := models.Metadata{
		ContentHash: hash,
		Width:       cfg.Width,
		Height:      cfg.Height,
		SizeBytes:   size,
	}

	x, err := decodeEXIF(path)
	if err != nil {
		return models.Metadata{}, apperror.MetadataExtraction("failed to read image", err).WithDetail("filename", filename)
	}
	if x == nil {
		e.logger.Info("no EXIF data found in image", "filename", filename)
		return meta, nil
	}

	meta.CapturedAt = stringTag(x, exif.DateTimeOriginal)
	meta.DeviceMake = stringTag(x, exif.Make)
	meta.DeviceModel = stringTag(x, exif.Model)
	meta.Software = stringTag(x, exif.Software)

	if lat, lon, ok := gpsCoordinates(x); ok {
		meta.GPSLatitude = &lat
		meta.GPSLongitude = &lon
	}

	e.logger.Info("EXIF extraction successful",
		"filename", filename,
		"has_datetime", meta.CapturedAt != nil,
		"has_device", meta.HasDevice(),
		"has_gps", meta.HasGPS())

	return meta, nil
}

// HashFile returns the hex SHA-256 digest of path and its byte size,
// reading a fixed chunk at a time.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	var size int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

func decodeConfig(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()

	return image.DecodeConfig(f)
}

// decodeEXIF returns nil without error when the image carries no usable
// EXIF block.
func decodeEXIF(path string) (*exif.Exif, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil {
		return nil, nil
	}
	if err != nil && exif.IsCriticalError(err) {
		return nil, nil
	}
	return x, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}
