package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
)

// Hit is one ranked document
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// QueryBody builds the weighted multi_match request for ix.
func (ix Index) QueryBody(query string, size int) map[string]any {
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": ix.SearchFields,
			},
		},
	}
	if len(ix.SourceExclude) > 0 {
		body["_source"] = map[string]any{"excludes": ix.SourceExclude}
	}
	return body
}

// Search runs a weighted multi_match query and returns hits in descending
// score order, at most size of them. Zero hits is not an error.
func (c *Client) Search(ctx context.Context, ix Index, query string, size int) ([]Hit, error) {
	body, err := encodeBody(ix.QueryBody(query, size))
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithIndex(ix.Name),
		c.es.Search.WithBody(body),
		c.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s failed: %w", ix.Name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s failed: %w", ix.Name, responseError(res))
	}

	var out struct {
		Hits struct {
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return out.Hits.Hits, nil
}
