// Package remote talks to the remote quote source. Client fetches and pushes
// quotes; Server is a stand-in for the source that stores what it receives.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/model"
)

const defaultTimeout = 10 * time.Second

// ErrUnavailable indicates the remote source could not be reached or answered
// with a non-success status.
var ErrUnavailable = errors.New("remote unavailable")

// UnavailableError carries the failed operation and, when known, the HTTP status.
type UnavailableError struct {
	Op     string
	Status int
	Err    error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: %v: HTTP %d", e.Op, ErrUnavailable, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, ErrUnavailable)
	}
}

// Unwrap returns ErrUnavailable for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// Config configures a Client.
type Config struct {
	// URL is the collection endpoint; GET lists records and POST accepts the local collection.
	URL string

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration

	// HTTPClient overrides the underlying client (Timeout is then ignored).
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Client is an HTTP client for the remote quote source.
type Client struct {
	url     string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a client for cfg.URL.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:     cfg.URL,
		http:    httpClient,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// record is the external shape served by the remote source. Posts carry
// title/body; quote-shaped records carry text/category.
type record struct {
	ID       int    `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
}

// toQuote maps a remote record onto a Quote: text from title or text, category
// from body or category, falling back to model.DefaultCategory.
func (r record) toQuote() model.Quote {
	text := r.Title
	if text == "" {
		text = r.Text
	}
	category := r.Body
	if category == "" {
		category = r.Category
	}
	if category == "" {
		category = model.DefaultCategory
	}
	return model.Quote{Text: text, Category: category}
}

// Fetch lists the remote records mapped to quotes.
func (c *Client) Fetch(ctx context.Context) (quotes []model.Quote, err error) {
	defer func() { c.metrics.RemoteRequest("fetch", err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.errorResponse(ctx, "fetch", resp)
	}

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &UnavailableError{Op: "fetch", Err: fmt.Errorf("decode response: %w", err)}
	}

	quotes = make([]model.Quote, 0, len(records))
	for _, r := range records {
		quotes = append(quotes, r.toQuote())
	}

	c.logger.DebugContext(ctx, "fetched remote quotes", slog.Int("count", len(quotes)))
	return quotes, nil
}

// Push sends the full local collection. The response body is not inspected.
func (c *Client) Push(ctx context.Context, quotes []model.Quote) (err error) {
	defer func() { c.metrics.RemoteRequest("push", err) }()

	if quotes == nil {
		quotes = []model.Quote{}
	}
	body, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Op: "push", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorResponse(ctx, "push", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.DebugContext(ctx, "pushed local quotes", slog.Int("count", len(quotes)))
	return nil
}

func (c *Client) errorResponse(ctx context.Context, op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.WarnContext(ctx, "remote error response",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(b)),
	)
	return &UnavailableError{Op: op, Status: resp.StatusCode}
}
