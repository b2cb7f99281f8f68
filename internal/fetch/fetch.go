// Package fetch downloads raw media for queue items over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/workitem"
)

// Fetcher is the pull-mode download stage. Episodes can be hours long and the
// queue imposes no deadline, so the HTTP client carries no timeout; the run
// context is the only cancellation source.
type Fetcher struct {
	rawDir     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a download stage writing into rawDir.
func NewFetcher(rawDir string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		rawDir:     rawDir,
		httpClient: &http.Client{},
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
}

// Prepare validates that the item can be fetched.
func (f *Fetcher) Prepare(_ context.Context, item *workitem.Item) error {
	if item.ID == "" {
		return services.Wrap(services.ErrValidation, "fetch", "prepare", "item id required", nil)
	}
	if strings.TrimSpace(item.SourceURL) == "" {
		return services.Wrap(services.ErrDownload, "fetch", "prepare",
			fmt.Sprintf("no source url for %s", item.ID), nil)
	}
	return os.MkdirAll(f.rawDir, 0o755)
}

// Execute downloads the item's media into the raw directory. The destination
// keeps the source extension so the converter can sniff the container.
func (f *Fetcher) Execute(ctx context.Context, item *workitem.Item) error {
	dest := filepath.Join(f.rawDir, item.ID+sourceExtension(item.SourceURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL, nil)
	if err != nil {
		return services.Wrap(services.ErrDownload, "fetch", "build_request", item.SourceURL, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrDownload, "fetch", "request",
			fmt.Sprintf("download %s", item.Label()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return services.Wrap(services.ErrDownload, "fetch", "request",
			fmt.Sprintf("download %s: unexpected status %s", item.Label(), resp.Status), nil)
	}

	written, err := writeBody(dest, resp.Body)
	if err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrDownload, "fetch", "write", dest, err)
	}
	if written == 0 {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrDownload, "fetch", "write",
			fmt.Sprintf("empty response body for %s", item.Label()), nil)
	}

	item.RawFile = dest
	f.logger.Info("media fetched",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("path", dest),
		logging.Int64("bytes", written),
	)
	return nil
}

// HealthCheck reports readiness. Fetching needs only a writable raw directory.
func (f *Fetcher) HealthCheck(context.Context) stage.Health {
	if err := os.MkdirAll(f.rawDir, 0o755); err != nil {
		return stage.Unhealthy("fetch", err.Error())
	}
	return stage.Healthy("fetch")
}

func writeBody(dest string, body io.Reader) (int64, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		return written, err
	}
	return written, out.Close()
}

// sourceExtension extracts the media extension from the URL path, defaulting
// to .mp3 when the path carries none.
func sourceExtension(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return ".mp3"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" || len(ext) > 8 {
		return ".mp3"
	}
	return ext
}
