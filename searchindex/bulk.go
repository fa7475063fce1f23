package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Document is one index entry; ID is the row's external identifier
type Document struct {
	ID     string
	Source any
}

// BulkResult counts a bulk overwrite
type BulkResult struct {
	Attempted int
	Indexed   int
	Failed    int
}

// BulkError reports documents Elasticsearch did not accept. Documents that
// were accepted stay written.
type BulkError struct {
	Index  string
	Result BulkResult
	Sample []string // first few rejection reasons
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk write to %s accepted %d of %d documents (%d failed)",
		e.Index, e.Result.Indexed, e.Result.Attempted, e.Result.Failed)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// BulkOverwrite indexes every document under its ID, replacing whatever is
// stored under that ID. A request-level failure aborts with an error; rejected
// items are counted and returned as *BulkError once all documents were sent.
func (c *Client) BulkOverwrite(ctx context.Context, index string, docs []Document) (BulkResult, error) {
	var (
		result BulkResult
		sample []string
	)

	for start := 0; start < len(docs); start += c.bulkSize {
		end := min(start+c.bulkSize, len(docs))
		chunk := docs[start:end]

		indexed, reasons, err := c.bulkChunk(ctx, index, chunk)
		result.Attempted += len(chunk)
		result.Indexed += indexed
		result.Failed += len(chunk) - indexed
		if len(sample) < 5 {
			sample = append(sample, reasons...)
		}
		if err != nil {
			return result, err
		}

		log.Debug().
			Str("index", index).
			Int("sent", len(chunk)).
			Int("indexed", indexed).
			Msg("Bulk chunk written")
	}

	if result.Failed > 0 {
		if len(sample) > 5 {
			sample = sample[:5]
		}
		return result, &BulkError{Index: index, Result: result, Sample: sample}
	}
	return result, nil
}

func (c *Client) bulkChunk(ctx context.Context, index string, docs []Document) (int, []string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": d.ID}}
		if err := enc.Encode(action); err != nil {
			return 0, nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(d.Source); err != nil {
			return 0, nil, fmt.Errorf("failed to encode document %s: %w", d.ID, err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("bulk request to %s failed: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("bulk request to %s failed: %w", index, responseError(res))
	}

	var body bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	indexed := 0
	var reasons []string
	for _, item := range body.Items {
		for _, r := range item {
			if r.Status >= 200 && r.Status < 300 && r.Error == nil {
				indexed++
				continue
			}
			if r.Error != nil && len(reasons) < 5 {
				reasons = append(reasons, fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason))
			}
		}
	}
	// Items missing from the response count as failed.
	return min(indexed, len(docs)), reasons, nil
}

// DeleteStale removes documents not written by the given resync run.
func (c *Client) DeleteStale(ctx context.Context, index, syncID string) (int64, error) {
	body, err := encodeBody(map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must_not": map[string]any{
					"term": map[string]any{SyncField: syncID},
				},
			},
		},
	})
	if err != nil {
		return 0, err
	}

	res, err := c.es.DeleteByQuery([]string{index}, body,
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithConflicts("proceed"),
		c.es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale documents in %s failed: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError(res)
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode delete_by_query response: %w", err)
	}
	return out.Deleted, nil
}
