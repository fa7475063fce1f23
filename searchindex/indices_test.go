package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBody(t *testing.T) {
	body := Precedents.Body()

	props := body["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": TypeKeyword}, props["prec_id"])
	assert.Equal(t, map[string]any{"type": TypeText, "analyzer": "korean"}, props["case_name"])
	assert.Equal(t, map[string]any{"type": TypeDate, "format": DateFormat}, props["judgment_date"])
	assert.Equal(t, map[string]any{"type": TypeKeyword}, props[SyncField])

	analyzer := body["settings"].(map[string]any)["analysis"].(map[string]any)["analyzer"].(map[string]any)["korean"].(map[string]any)
	assert.Equal(t, "nori_tokenizer", analyzer["tokenizer"])
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	var exists atomic.Bool
	f, c := newFakeES(t, func(r request) (int, any) {
		switch {
		case r.Method == http.MethodHead && r.Path == "/precedents":
			if exists.Load() {
				return http.StatusOK, nil
			}
			return http.StatusNotFound, nil
		case r.Method == http.MethodPut && r.Path == "/precedents":
			exists.Store(true)
			return http.StatusOK, map[string]any{"acknowledged": true, "index": "precedents"}
		}
		return http.StatusBadRequest, esError("unexpected", r.Method+" "+r.Path)
	})

	created, err := c.EnsureIndex(context.Background(), Precedents)
	require.NoError(t, err)
	assert.True(t, created)

	put, ok := f.last(http.MethodPut, "/precedents")
	require.True(t, ok)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(put.Body, &sent))
	assert.Contains(t, sent, "settings")
	assert.Contains(t, sent, "mappings")

	created, err = c.EnsureIndex(context.Background(), Precedents)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureIndex_LostCreateRace(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) {
		if r.Method == http.MethodHead {
			return http.StatusNotFound, nil
		}
		return http.StatusBadRequest, esError("resource_already_exists_exception", "index [laws] already exists")
	})

	created, err := c.EnsureIndex(context.Background(), Laws)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureIndex_CreateFailure(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) {
		if r.Method == http.MethodHead {
			return http.StatusNotFound, nil
		}
		return http.StatusBadRequest, esError("illegal_argument_exception", "Custom Analyzer [korean] failed to find tokenizer under name [nori_tokenizer]")
	})

	_, err := c.EnsureIndex(context.Background(), Laws)
	var rerr *ResponseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "illegal_argument_exception", rerr.Type)
}

func TestCountAndRefresh(t *testing.T) {
	_, c := newFakeES(t, func(r request) (int, any) {
		switch r.Path {
		case "/laws/_count":
			return http.StatusOK, map[string]any{"count": 7}
		case "/laws/_refresh":
			return http.StatusOK, map[string]any{"_shards": map[string]any{"total": 1}}
		}
		return http.StatusNotFound, esError("index_not_found_exception", "no such index")
	})

	n, err := c.Count(context.Background(), "laws")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, c.Refresh(context.Background(), "laws"))
	assert.Error(t, c.Refresh(context.Background(), "missing"))
}
