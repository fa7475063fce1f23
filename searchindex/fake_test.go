package searchindex

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// request is one call received by fakeES
type request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// fakeES answers Elasticsearch REST calls from a handler function and records
// every request it received.
type fakeES struct {
	*httptest.Server
	mu       sync.Mutex
	requests []request
}

func newFakeES(t *testing.T, handle func(r request) (int, any)) (*fakeES, *Client) {
	t.Helper()
	f := &fakeES{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req := request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		status, out := handle(req)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if out != nil && r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(out)
		}
	}))
	t.Cleanup(f.Close)

	c, err := New(f.URL, WithBulkSize(2))
	require.NoError(t, err)
	return f, c
}

func (f *fakeES) received() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func (f *fakeES) last(method, path string) (request, bool) {
	reqs := f.received()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return request{}, false
}

func esError(typ, reason string) map[string]any {
	return map[string]any{"error": map[string]any{"type": typ, "reason": reason}, "status": 400}
}
