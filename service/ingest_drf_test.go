package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gahuily/LawChat/lawapi"
)

// newDRFServer serves a precedent list of two one-record pages reporting
// totalCnt 2, plus a detail block for each record.
func newDRFServer(t *testing.T, listRequests *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/lawSearch.do":
			listRequests.Add(1)
			page, _ := strconv.Atoi(q.Get("page"))
			items := []any{}
			if page == 1 || page == 2 {
				id := strconv.Itoa(1000 + page)
				items = append(items, map[string]any{
					"판례일련번호": id,
					"사건명":    "전세보증금반환 " + id,
					"사건번호":   "2020다" + id,
					"법원명":    "대법원",
					"선고일자":   "2020.03.2" + strconv.Itoa(page),
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"PrecSearch": map[string]any{"totalCnt": "2", "page": page, "prec": items},
			})
		case "/lawService.do":
			id := q.Get("ID")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"PrecService": map[string]any{
					"판례정보일련번호": id,
					"판시사항":     "보증금 반환 범위 " + id,
					"판례내용":     "【주문】 상고를 기각한다. " + id,
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestPrecedents_OverDRFClient(t *testing.T) {
	var listRequests atomic.Int32
	srv := newDRFServer(t, &listRequests)
	client := lawapi.NewClient(srv.URL, "tester")

	store := newMemoryStore()
	svc := NewIngestService(IngestWithSource(client), IngestWithPrecedentWriter(store))

	res, err := svc.IngestPrecedents(context.Background(), IngestRequest{Display: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 2, res.Written)
	assert.EqualValues(t, 2, listRequests.Load())

	require.Len(t, store.precedents, 2)
	for _, id := range []string{"1001", "1002"} {
		p, ok := store.precedents[id]
		require.True(t, ok, "precedent %s stored", id)
		assert.Equal(t, id, p.PrecID)
		require.NotNil(t, p.CaseName)
		assert.Equal(t, "전세보증금반환 "+id, *p.CaseName)
		require.NotNil(t, p.CourtName)
		assert.Equal(t, "대법원", *p.CourtName)
		require.NotNil(t, p.Summary)
		assert.Equal(t, "보증금 반환 범위 "+id, *p.Summary)
		require.NotNil(t, p.FullText)
		assert.Equal(t, "【주문】 상고를 기각한다. "+id, *p.FullText)
	}
	require.NotNil(t, store.precedents["1002"].JudgmentDate)
	assert.Equal(t, "20200322", *store.precedents["1002"].JudgmentDate)
}
