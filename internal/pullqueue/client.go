package pullqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/workitem"
)

// Client talks to the remote pull queue: fetch-one semantics plus per-item
// success/error reporting.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a queue client from configuration.
func NewClient(cfg config.Queue, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "pullqueue"),
	}
}

type nextResponse struct {
	EpisodeID    string  `json:"episode_id"`
	EnclosureURL string  `json:"enclosure_url"`
	Token        string  `json:"token"`
	Lang         string  `json:"lang"`
	Duration     float64 `json:"duration"`
	Title        string  `json:"title"`
}

// Next asks the queue for one unit of work. An empty or absent episode id
// means the queue is drained: Next returns (nil, nil) and the controller
// treats that as a normal end of run, not an error.
func (c *Client) Next(ctx context.Context) (*workitem.Item, error) {
	endpoint, err := c.endpoint("next", nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build next request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch next item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch next item: unexpected status %s", resp.Status)
	}

	var payload nextResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode next response: %w", err)
	}
	if strings.TrimSpace(payload.EpisodeID) == "" {
		return nil, nil
	}

	return &workitem.Item{
		ID:              strings.TrimSpace(payload.EpisodeID),
		SourceURL:       strings.TrimSpace(payload.EnclosureURL),
		Token:           strings.TrimSpace(payload.Token),
		Language:        strings.TrimSpace(payload.Lang),
		DurationSeconds: payload.Duration,
		Title:           strings.TrimSpace(payload.Title),
	}, nil
}

// ReportError submits a typed failure code for the item. Code 0 reports an
// interrupted in-flight item during shutdown.
func (c *Client) ReportError(ctx context.Context, item *workitem.Item, code services.Code) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("report error: item id required")
	}
	query := url.Values{"error": []string{strconv.Itoa(int(code))}}
	endpoint, err := c.endpoint("error/"+url.PathEscape(item.ID), query)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build error report: %w", err)
	}
	c.authorize(req, item)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("report error for %s: %w", item.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report error for %s: unexpected status %s", item.ID, resp.Status)
	}
	c.logger.Debug("error reported",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int(logging.FieldErrorCode, int(code)),
	)
	return nil
}

// Submit posts the timed-caption artifact as the item's result.
func (c *Client) Submit(ctx context.Context, item *workitem.Item, captionPath string) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("submit: item id required")
	}
	caption, err := os.Open(captionPath)
	if err != nil {
		return fmt.Errorf("submit: open caption: %w", err)
	}
	defer caption.Close()

	endpoint, err := c.endpoint("set/"+url.PathEscape(item.ID), nil)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, caption)
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "text/vtt")
	c.authorize(req, item)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit result for %s: %w", item.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit result for %s: unexpected status %s", item.ID, resp.Status)
	}
	c.logger.Debug("result submitted", logging.String(logging.FieldItemID, item.ID))
	return nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: queue base url not configured", services.ErrConfiguration)
	}
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint, nil
}

// authorize attaches the per-item token when the queue issued one, falling
// back to the configured client token.
func (c *Client) authorize(req *http.Request, item *workitem.Item) {
	token := c.token
	if item != nil && item.Token != "" {
		token = item.Token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
