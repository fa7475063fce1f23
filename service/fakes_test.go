package service

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/gahuily/LawChat/lawapi"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/searchindex"
)

// fakeSource serves fixed list records per target and detail blocks by id.
type fakeSource struct {
	lists      map[models.EntityType][]lawapi.RawRecord
	listErr    error // yielded after the list records
	details    map[string]lawapi.RawRecord
	detailErr  map[string]error
	detailCall []string
}

func (f *fakeSource) Extract(ctx context.Context, opts lawapi.ExtractOptions) iter.Seq2[lawapi.RawRecord, error] {
	return func(yield func(lawapi.RawRecord, error) bool) {
		for _, rec := range f.lists[opts.Target] {
			if !yield(rec, nil) {
				return
			}
		}
		if f.listErr != nil {
			yield(nil, f.listErr)
		}
	}
}

func (f *fakeSource) Detail(ctx context.Context, target models.EntityType, id string) (lawapi.RawRecord, error) {
	f.detailCall = append(f.detailCall, id)
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, lawapi.ErrDetailNotFound
}

// memoryStore keeps upserted rows keyed by external id and records batch sizes.
type memoryStore struct {
	mu         sync.Mutex
	laws       map[string]models.LawRecord
	precedents map[string]models.PrecedentRecord
	qna        map[string]models.QnARecord
	batches    []int
	failAfter  int // fail the write once this many batches succeeded; 0 disables
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		laws:       map[string]models.LawRecord{},
		precedents: map[string]models.PrecedentRecord{},
		qna:        map[string]models.QnARecord{},
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *memoryStore) record(n int) error {
	if m.failAfter > 0 && len(m.batches) >= m.failAfter {
		return errStoreDown
	}
	m.batches = append(m.batches, n)
	return nil
}

func (m *memoryStore) UpsertLaws(ctx context.Context, laws []models.LawRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(len(laws)); err != nil {
		return 0, err
	}
	for _, l := range laws {
		m.laws[l.LawID] = l
	}
	return int64(len(laws)), nil
}

func (m *memoryStore) UpsertPrecedents(ctx context.Context, precs []models.PrecedentRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(len(precs)); err != nil {
		return 0, err
	}
	for _, p := range precs {
		m.precedents[p.PrecID] = p
	}
	return int64(len(precs)), nil
}

func (m *memoryStore) UpsertQnA(ctx context.Context, items []models.QnARecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(len(items)); err != nil {
		return 0, err
	}
	for _, q := range items {
		m.qna[q.QnaID] = q
	}
	return int64(len(items)), nil
}

type lawList []models.LawRecord

func (l lawList) ListAll(ctx context.Context) ([]models.LawRecord, error) { return l, nil }

type precedentList []models.PrecedentRecord

func (l precedentList) ListAll(ctx context.Context) ([]models.PrecedentRecord, error) { return l, nil }

type qnaList []models.QnARecord

func (l qnaList) ListAll(ctx context.Context) ([]models.QnARecord, error) { return l, nil }

// memoryIndex keeps documents per index with the sync id that wrote them.
type memoryIndex struct {
	docs      map[string]map[string]string // index -> id -> sync id
	reject    map[string]bool              // ids the bulk write refuses
	ensured   []string
	refreshed []string
	pruned    []string
	ensureErr error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{docs: map[string]map[string]string{}, reject: map[string]bool{}}
}

func (m *memoryIndex) EnsureIndex(ctx context.Context, ix searchindex.Index) (bool, error) {
	if m.ensureErr != nil {
		return false, m.ensureErr
	}
	m.ensured = append(m.ensured, ix.Name)
	if _, ok := m.docs[ix.Name]; ok {
		return false, nil
	}
	m.docs[ix.Name] = map[string]string{}
	return true, nil
}

func (m *memoryIndex) BulkOverwrite(ctx context.Context, index string, docs []searchindex.Document) (searchindex.BulkResult, error) {
	res := searchindex.BulkResult{Attempted: len(docs)}
	for _, d := range docs {
		if m.reject[d.ID] {
			res.Failed++
			continue
		}
		m.docs[index][d.ID] = syncIDOf(d.Source)
		res.Indexed++
	}
	if res.Failed > 0 {
		return res, &searchindex.BulkError{Index: index, Result: res}
	}
	return res, nil
}

func (m *memoryIndex) Refresh(ctx context.Context, index string) error {
	m.refreshed = append(m.refreshed, index)
	return nil
}

func (m *memoryIndex) DeleteStale(ctx context.Context, index, syncID string) (int64, error) {
	m.pruned = append(m.pruned, index)
	var n int64
	for id, sid := range m.docs[index] {
		if sid != syncID {
			delete(m.docs[index], id)
			n++
		}
	}
	return n, nil
}

func (m *memoryIndex) ids(index string) []string {
	var out []string
	for id := range m.docs[index] {
		out = append(out, id)
	}
	return out
}

func syncIDOf(src any) string {
	switch d := src.(type) {
	case lawDoc:
		return d.SyncID
	case precedentDoc:
		return d.SyncID
	case qnaDoc:
		return d.SyncID
	}
	return ""
}

// stubSearcher returns fixed hits or an error and records the last call.
type stubSearcher struct {
	hits      []searchindex.Hit
	err       error
	calls     int
	lastIndex string
	lastQuery string
	lastSize  int
}

func (s *stubSearcher) Search(ctx context.Context, ix searchindex.Index, query string, size int) ([]searchindex.Hit, error) {
	s.calls++
	s.lastIndex, s.lastQuery, s.lastSize = ix.Name, query, size
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > size {
		return s.hits[:size], nil
	}
	return s.hits, nil
}

func str(s string) *string { return &s }
