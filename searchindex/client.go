// Package searchindex owns the Elasticsearch indices that project the row
// store: index lifecycle, bulk overwrite by external identifier and weighted
// multi-field retrieval.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// DefaultBulkSize is the number of documents sent per bulk request
const DefaultBulkSize = 500

// ResponseError is a non-2xx answer from Elasticsearch
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch returned HTTP %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// Client wraps an Elasticsearch client
type Client struct {
	es       *elasticsearch.Client
	bulkSize int
}

// Option is a functional option for Client
type Option func(*Client)

// WithBulkSize sets how many documents go into one bulk request
func WithBulkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.bulkSize = n
		}
	}
}

// New connects to the Elasticsearch node at host
func New(host string, opts ...Option) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{host},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewFromClient(es, opts...), nil
}

// NewFromClient wraps an existing Elasticsearch client
func NewFromClient(es *elasticsearch.Client, opts ...Option) *Client {
	c := &Client{es: es, bulkSize: DefaultBulkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

// Count returns the number of documents in index
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	res, err := c.es.Count(c.es.Count.WithIndex(index), c.es.Count.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("count %s failed: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError(res)
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return body.Count, nil
}

// Refresh makes recent writes to index visible to search
func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.es.Indices.Refresh(c.es.Indices.Refresh.WithIndex(index), c.es.Indices.Refresh.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("refresh %s failed: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

func responseError(res *esapi.Response) error {
	rerr := &ResponseError{StatusCode: res.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var detail struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(body.Error, &detail) == nil && detail.Type != "" {
			rerr.Type, rerr.Reason = detail.Type, detail.Reason
		} else {
			rerr.Reason = strings.Trim(string(body.Error), `"`)
		}
	}
	return rerr
}

func encodeBody(v any) (*bytes.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func drain(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
