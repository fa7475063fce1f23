package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gahuily/LawChat/searchindex"
	"github.com/gahuily/LawChat/service"
)

// precedentCorpus is what the fake cluster returns, best match first.
var precedentCorpus = []map[string]any{
	{"prec_id": "228541", "case_no": "2019다12345", "case_name": "전세보증금반환", "court_name": "대법원", "judgment_date": "20200326", "summary": "전세보증금 반환 의무"},
	{"prec_id": "228100", "case_no": "2018다55555", "case_name": "임대차보증금", "court_name": "대법원", "judgment_date": "20190110", "summary": "전세보증금 우선변제"},
	{"prec_id": "100200", "case_no": "2017나1111", "case_name": "손해배상", "court_name": "서울고등법원", "judgment_date": "20180505", "summary": "전세보증금 관련 손해"},
	{"prec_id": "100100", "case_no": "2016가2222", "case_name": "건물명도", "court_name": "서울중앙지방법원", "judgment_date": "20170101", "summary": "보증금"},
}

// newFakeCluster answers _search with up to "size" hits in descending score.
func newFakeCluster(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			return
		}

		var req struct {
			Size int `json:"size"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		hits := []any{}
		for i, doc := range precedentCorpus {
			if i >= req.Size {
				break
			}
			hits = append(hits, map[string]any{
				"_id":     doc["prec_id"],
				"_score":  float64(len(precedentCorpus) - i),
				"_source": doc,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupRouter(t *testing.T, clusterStatus int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cluster := newFakeCluster(t, clusterStatus)
	index, err := searchindex.New(cluster.URL)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestLogger())
	RegisterRoutes(r,
		NewSearchHandler(service.NewSearchService(index)),
		NewHealthHandler(map[string]Pinger{"elasticsearch": index}),
	)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSearchPrecedents_EndToEnd(t *testing.T) {
	r := setupRouter(t, http.StatusOK)

	w := get(r, "/search?q="+url.QueryEscape("전세보증금"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "전세보증금반환", "Korean text is not escaped")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)

	for _, field := range []string{"prec_id", "case_no", "case_name", "court_name", "judgment_date", "summary", "score"} {
		assert.Contains(t, resp.Results[0], field)
	}
	assert.NotContains(t, resp.Results[0], "full_text")

	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1]["score"].(float64), resp.Results[i]["score"].(float64))
	}
	assert.Equal(t, "228541", resp.Results[0]["prec_id"])
}

func TestSearchPrecedents_Size(t *testing.T) {
	r := setupRouter(t, http.StatusOK)

	w := get(r, "/search?q=a&size=1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 1)

	w = get(r, "/search?q=a&size=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_MissingQuery(t *testing.T) {
	r := setupRouter(t, http.StatusOK)

	for _, target := range []string{"/search", "/search?q=", "/search/laws", "/search/qna?size=3"} {
		t.Run(target, func(t *testing.T) {
			w := get(r, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	r := setupRouter(t, http.StatusOK)
	w := get(r, "/search?q=%20%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_IndexUnavailable(t *testing.T) {
	r := setupRouter(t, http.StatusNotFound)

	w := get(r, "/search?q=test")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestHealth(t *testing.T) {
	w := get(setupRouter(t, http.StatusOK), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"elasticsearch":"ok"}}`, w.Body.String())

	w = get(setupRouter(t, http.StatusNotFound), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := setupRouter(t, http.StatusOK)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
