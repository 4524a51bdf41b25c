package gene

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Fetcher retrieves a remote file and stores it at destPath.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// HTTPFetcher downloads files over HTTP.
type HTTPFetcher struct {
	Client *http.Client
	// Progress, when set, receives a copy of the downloaded bytes.
	Progress io.Writer
	logger   *zap.Logger
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: timeout},
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for download messages.
func (f *HTTPFetcher) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Fetch downloads url to destPath. The body is written to a temporary file
// that is renamed into place once complete, so destPath never holds a
// partial download.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, destPath string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := f.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	logger.Info("downloading", zap.String("url", url), zap.String("dest", destPath))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var body io.Reader = resp.Body
	if f.Progress != nil {
		body = io.TeeReader(resp.Body, f.Progress)
	}

	n, err := io.Copy(out, body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	logger.Info("download complete", zap.String("dest", destPath), zap.Int64("bytes", n))
	return nil
}
