package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBody_Weights(t *testing.T) {
	body := Precedents.QueryBody("전세보증금", 3)

	assert.Equal(t, 3, body["size"])
	mm := body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "전세보증금", mm["query"])
	assert.Equal(t, []string{"case_name^3", "summary^2", "full_text"}, mm["fields"])
	assert.Equal(t, map[string]any{"excludes": []string{"full_text", SyncField}}, body["_source"])
}

func TestSearch(t *testing.T) {
	f, c := newFakeES(t, func(r request) (int, any) {
		return http.StatusOK, map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": 2},
				"hits": []any{
					map[string]any{"_id": "2", "_score": 7.5, "_source": map[string]any{"prec_id": "2", "case_name": "전세보증금반환"}},
					map[string]any{"_id": "1", "_score": 1.25, "_source": map[string]any{"prec_id": "1", "summary": "전세보증금"}},
				},
			},
		}
	})

	hits, err := c.Search(context.Background(), Precedents, "전세보증금", 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "2", hits[0].ID)
	assert.Equal(t, 7.5, hits[0].Score)
	assert.JSONEq(t, `{"prec_id":"2","case_name":"전세보증금반환"}`, string(hits[0].Source))

	req, ok := f.last(http.MethodPost, "/precedents/_search")
	require.True(t, ok)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.EqualValues(t, 3, sent["size"])
}

func TestSearch_NoHits(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) {
		return http.StatusOK, map[string]any{"hits": map[string]any{"hits": []any{}}}
	})
	hits, err := c.Search(context.Background(), LegalQnA, "없는 질문", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_IndexMissing(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) {
		return http.StatusNotFound, map[string]any{
			"error":  map[string]any{"type": "index_not_found_exception", "reason": "no such index [laws]"},
			"status": 404,
		}
	})
	_, err := c.Search(context.Background(), Laws, "민법", 3)
	var rerr *ResponseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusNotFound, rerr.StatusCode)
	assert.Equal(t, "index_not_found_exception", rerr.Type)
}

func TestPing(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) { return http.StatusOK, nil })
	assert.NoError(t, c.Ping(context.Background()))
}
