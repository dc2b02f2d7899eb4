package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentshield/rentshield/internal/apperror"
	"github.com/rentshield/rentshield/internal/logging"
	"github.com/rentshield/rentshield/internal/storage"
)

func newTestDownloader(t *testing.T, maxBytes int64) (*Downloader, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "temp")
	return NewDownloader(nil, DownloaderConfig{
		TempDir:           dir,
		MaxBytes:          maxBytes,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png"},
	}, logging.Discard()), dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadSuccess(t *testing.T) {
	var userAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t, 1024)
	path, err := d.Download(context.Background(), srv.URL+"/photos/leak.PNG")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".png"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
	assert.Equal(t, UserAgent, userAgent.Load())
}

func TestDownloadDefaultsToJPG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, 1024)
	path, err := d.Download(context.Background(), srv.URL+"/evidence")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))
}

func TestDownloadRejectsBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, 1024)
	for _, u := range []string{
		srv.URL + "/malware.exe",
		srv.URL + "/doc.pdf",
		"ftp://example.com/photo.jpg",
		"file:///etc/passwd.jpg",
		"not a url",
	} {
		_, err := d.Download(context.Background(), u)
		assert.ErrorIs(t, err, apperror.ErrInvalidEvidence, u)
	}
	assert.Zero(t, hits.Load())
}

func TestDownloadContentLengthTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5000")
		w.Write(make([]byte, 5000))
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t, 1000)
	_, err := d.Download(context.Background(), srv.URL+"/big.jpg")
	require.ErrorIs(t, err, apperror.ErrInvalidEvidence)
	assert.Contains(t, err.Error(), "too large")
	assertEmptyDir(t, dir)
}

func TestDownloadStreamingCeilingRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := make([]byte, 8192)
		for i := 0; i < 4; i++ {
			w.Write(chunk)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t, 10000)
	_, err := d.Download(context.Background(), srv.URL+"/stream.jpg")
	require.ErrorIs(t, err, apperror.ErrInvalidEvidence)
	assert.Contains(t, err.Error(), "too large")
	assertEmptyDir(t, dir)
}

func TestDownloadHTTPErrorIsInvalidEvidence(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d, dir := newTestDownloader(t, 1024)
	_, err := d.Download(context.Background(), srv.URL+"/gone.jpg")
	assert.ErrorIs(t, err, apperror.ErrInvalidEvidence)
	assertEmptyDir(t, dir)
}

type fakeObjects struct {
	bucket, key string
	data        string
	size        int64
	err         error
}

func (f *fakeObjects) Open(_ context.Context, bucket, key string) (storage.Object, error) {
	f.bucket, f.key = bucket, key
	if f.err != nil {
		return storage.Object{}, f.err
	}
	return storage.Object{Body: io.NopCloser(strings.NewReader(f.data)), Size: f.size}, nil
}

func newObjectDownloader(t *testing.T, objects ObjectSource, maxBytes int64) (*Downloader, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "temp")
	return NewDownloader(nil, DownloaderConfig{
		TempDir:           dir,
		MaxBytes:          maxBytes,
		AllowedExtensions: []string{".jpg", ".png"},
		Objects:           objects,
	}, logging.Discard()), dir
}

func TestDownloadFromObjectStore(t *testing.T) {
	objects := &fakeObjects{data: "object-bytes", size: 12}
	d, dir := newObjectDownloader(t, objects, 1024)

	path, err := d.Download(context.Background(), "s3://evidence/unit-4/leak.png")
	require.NoError(t, err)

	assert.Equal(t, "evidence", objects.bucket)
	assert.Equal(t, "unit-4/leak.png", objects.key)
	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "object-bytes", string(data))
}

func TestDownloadObjectStoreFailures(t *testing.T) {
	tests := []struct {
		name    string
		objects *fakeObjects
		max     int64
	}{
		{"missing object", &fakeObjects{err: storage.ErrNotFound}, 1024},
		{"declared size too large", &fakeObjects{data: "x", size: 4096}, 1024},
		{"unknown size over ceiling", &fakeObjects{data: strings.Repeat("x", 2048), size: -1}, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, dir := newObjectDownloader(t, tt.objects, tt.max)
			_, err := d.Download(context.Background(), "s3://evidence/a.jpg")
			assert.ErrorIs(t, err, apperror.ErrInvalidEvidence)
			assertEmptyDir(t, dir)
		})
	}
}

func TestDownloadRejectsS3WithoutSource(t *testing.T) {
	d, _ := newTestDownloader(t, 1024)
	_, err := d.Download(context.Background(), "s3://evidence/a.jpg")
	require.ErrorIs(t, err, apperror.ErrInvalidEvidence)
	assert.Contains(t, err.Error(), "http or https")
}
