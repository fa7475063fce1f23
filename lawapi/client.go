// Package lawapi talks to the law.go.kr DRF open API: paginated list
// extraction (lawSearch.do) and per-record detail lookup (lawService.do).
package lawapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/gahuily/LawChat/storage"
)

const (
	searchPath  = "/lawSearch.do"
	servicePath = "/lawService.do"

	maxBodyBytes = 32 << 20
)

// ErrMalformedResponse is returned when a response body is not a JSON object
var ErrMalformedResponse = errors.New("malformed JSON response")

// StatusError reports a non-2xx answer from the API
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("law api %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// RawRecord is one record in the API's external, string-keyed schema
type RawRecord = map[string]any

// Client issues sequential requests against the DRF endpoints
type Client struct {
	httpClient *http.Client
	baseURL    string
	oc         string
	limiter    *rate.Limiter
	archive    storage.Storage
	runID      string
}

// ClientOption is a functional option for Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the fixed per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second; zero disables the limit
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithArchive stores every raw response body under raw/<target>/<runID>/
func WithArchive(store storage.Storage, runID string) ClientOption {
	return func(c *Client) {
		c.archive = store
		c.runID = runID
	}
}

// NewClient creates a DRF client. oc is the caller credential.
func NewClient(baseURL, oc string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		oc:         oc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON performs one GET and decodes the body as a JSON object. Numbers are
// kept as json.Number so long identifiers survive intact.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, archiveKey string) (map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params.Set("OC", c.oc)
	params.Set("type", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("law api %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read law api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: snippet(body)}
	}

	c.archiveBody(ctx, archiveKey, body)

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrMalformedResponse, endpoint, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w from %s: not an object", ErrMalformedResponse, endpoint)
	}
	return data, nil
}

func (c *Client) archiveBody(ctx context.Context, key string, body []byte) {
	if c.archive == nil || key == "" {
		return
	}
	stored, err := c.archive.Put(ctx, key, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to archive raw response")
		return
	}
	log.Debug().Str("key", stored).Int("bytes", len(body)).Msg("Archived raw response")
}

func (c *Client) archiveKey(target, kind string) string {
	if c.archive == nil {
		return ""
	}
	return fmt.Sprintf("raw/%s/%s/%s.json", target, c.runID, kind)
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
