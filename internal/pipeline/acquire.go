package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/storage"
)

const (
	downloadChunkSize = 8192
	defaultExtension  = ".jpg"
	// UserAgent identifies evidence downloads to the hosting server.
	UserAgent = "RentShield-Vision/1.0"
)

// ObjectSource opens s3:// evidence.
type ObjectSource interface {
	Open(ctx context.Context, bucket, key string) (storage.Object, error)
}

// Downloader fetches remote evidence into a temp directory.
type Downloader struct {
	client            *http.Client
	objects           ObjectSource
	tempDir           string
	maxBytes          int64
	allowedExtensions []string
	logger            *slog.Logger
}

// DownloaderConfig bounds what a Downloader will fetch.
type DownloaderConfig struct {
	TempDir           string
	MaxBytes          int64
	AllowedExtensions []string
	// Objects serves s3:// URLs. Nil rejects them.
	Objects ObjectSource
}

// NewDownloader creates a Downloader. A nil client uses http.DefaultClient.
func NewDownloader(client *http.Client, cfg DownloaderConfig, logger *slog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	exts := make([]string, 0, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		exts = append(exts, strings.ToLower(e))
	}
	return &Downloader{
		client:            client,
		objects:           cfg.Objects,
		tempDir:           cfg.TempDir,
		maxBytes:          cfg.MaxBytes,
		allowedExtensions: exts,
		logger:            logger,
	}
}

// Download streams rawURL into a new temp file and returns its path. The
// caller owns the file. Every failure is reported as invalid evidence and
// leaves nothing on disk.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || !d.supportsScheme(u.Scheme) {
		return "", apperror.InvalidEvidence(d.schemeMessage(), map[string]any{
			"url": truncateURL(rawURL),
		})
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		ext = defaultExtension
	}
	if !slices.Contains(d.allowedExtensions, ext) {
		return "", apperror.InvalidEvidence(
			fmt.Sprintf("invalid file type: %s, allowed: %s", ext, strings.Join(d.allowedExtensions, ", ")),
			map[string]any{"extension": ext})
	}

	d.logger.Info("downloading evidence", "url", truncateURL(rawURL))

	var (
		body io.ReadCloser
		size int64
	)
	if u.Scheme == "s3" {
		body, size, err = d.openObject(ctx, u)
	} else {
		body, size, err = d.openHTTP(ctx, rawURL)
	}
	if err != nil {
		return "", err
	}
	defer body.Close()

	if size > d.maxBytes {
		return "", d.tooLarge(size)
	}
	return d.save(body, ext)
}

func (d *Downloader) supportsScheme(scheme string) bool {
	switch scheme {
	case "http", "https":
		return true
	case "s3":
		return d.objects != nil
	default:
		return false
	}
}

func (d *Downloader) schemeMessage() string {
	if d.objects != nil {
		return "image_url must be an http, https or s3 URL"
	}
	return "image_url must be an http or https URL"
}

// openHTTP returns the response body and its declared length, or -1.
func (d *Downloader) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, downloadError(err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, downloadError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, downloadError(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	size := int64(-1)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			size = n
		}
	}
	return resp.Body, size, nil
}

func (d *Downloader) openObject(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	obj, err := d.objects.Open(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return nil, 0, downloadError(err)
	}
	return obj.Body, obj.Size, nil
}

func (d *Downloader) save(body io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(d.tempDir, 0o750); err != nil {
		return "", downloadError(err)
	}
	f, err := os.CreateTemp(d.tempDir, "evidence-*"+ext)
	if err != nil {
		return "", downloadError(err)
	}

	size, err := d.copyLimited(f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return "", appErr
		}
		return "", downloadError(err)
	}

	d.logger.Info("evidence downloaded", "path", f.Name(), "size_bytes", size)
	return f.Name(), nil
}

// copyLimited writes src to dst in fixed chunks, stopping as soon as the
// running total passes the ceiling.
func (d *Downloader) copyLimited(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, downloadChunkSize)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > d.maxBytes {
				return total, d.tooLarge(total)
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (d *Downloader) tooLarge(size int64) *apperror.Error {
	return apperror.InvalidEvidence(
		fmt.Sprintf("file too large, max size: %dMB", d.maxBytes/(1024*1024)),
		map[string]any{"file_size": size, "max_size": d.maxBytes})
}

func downloadError(err error) *apperror.Error {
	e := apperror.InvalidEvidence("failed to download image", map[string]any{"error": err.Error()})
	e.Err = err
	return e
}

func truncateURL(u string) string {
	if len(u) > 100 {
		return u[:100]
	}
	return u
}
