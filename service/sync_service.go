package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/metrics"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/searchindex"
)

// Indexer is the document index the sync writes to
type Indexer interface {
	EnsureIndex(ctx context.Context, ix searchindex.Index) (bool, error)
	BulkOverwrite(ctx context.Context, index string, docs []searchindex.Document) (searchindex.BulkResult, error)
	Refresh(ctx context.Context, index string) error
	DeleteStale(ctx context.Context, index, syncID string) (int64, error)
}

// LawReader lists every stored law
type LawReader interface {
	ListAll(ctx context.Context) ([]models.LawRecord, error)
}

// PrecedentReader lists every stored precedent
type PrecedentReader interface {
	ListAll(ctx context.Context) ([]models.PrecedentRecord, error)
}

// QnAReader lists every stored Q&A pair
type QnAReader interface {
	ListAll(ctx context.Context) ([]models.QnARecord, error)
}

// SyncService rebuilds the search indices from the row store
type SyncService struct {
	indexer    Indexer
	laws       LawReader
	precedents PrecedentReader
	qna        QnAReader
	newSyncID  func() string
}

// SyncOption is a functional option for SyncService
type SyncOption func(*SyncService)

// SyncWithIndexer sets the document index
func SyncWithIndexer(ix Indexer) SyncOption {
	return func(s *SyncService) {
		s.indexer = ix
	}
}

// SyncWithLawReader sets the law store
func SyncWithLawReader(r LawReader) SyncOption {
	return func(s *SyncService) {
		s.laws = r
	}
}

// SyncWithPrecedentReader sets the precedent store
func SyncWithPrecedentReader(r PrecedentReader) SyncOption {
	return func(s *SyncService) {
		s.precedents = r
	}
}

// SyncWithQnAReader sets the Q&A store
func SyncWithQnAReader(r QnAReader) SyncOption {
	return func(s *SyncService) {
		s.qna = r
	}
}

// NewSyncService creates a new sync service
func NewSyncService(opts ...SyncOption) *SyncService {
	s := &SyncService{newSyncID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncResult summarises one full resync of an index
type SyncResult struct {
	Index  string
	SyncID string
	Rows   int
	searchindex.BulkResult
	Pruned int64
}

type lawDoc struct {
	models.LawRecord
	SyncID string `json:"sync_id"`
}

type precedentDoc struct {
	models.PrecedentRecord
	SyncID string `json:"sync_id"`
}

type qnaDoc struct {
	models.QnARecord
	SyncID string `json:"sync_id"`
}

// SyncLaws rewrites the laws index from the laws table.
func (s *SyncService) SyncLaws(ctx context.Context) (SyncResult, error) {
	if s.laws == nil {
		return SyncResult{}, errors.New("sync service has no law reader")
	}
	rows, err := s.laws.ListAll(ctx)
	if err != nil {
		return SyncResult{Index: searchindex.Laws.Name}, err
	}
	return s.resync(ctx, searchindex.Laws, len(rows), func(syncID string) []searchindex.Document {
		docs := make([]searchindex.Document, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, searchindex.Document{ID: r.ExternalID(), Source: lawDoc{LawRecord: r, SyncID: syncID}})
		}
		return docs
	})
}

// SyncPrecedents rewrites the precedents index from the precedents table.
func (s *SyncService) SyncPrecedents(ctx context.Context) (SyncResult, error) {
	if s.precedents == nil {
		return SyncResult{}, errors.New("sync service has no precedent reader")
	}
	rows, err := s.precedents.ListAll(ctx)
	if err != nil {
		return SyncResult{Index: searchindex.Precedents.Name}, err
	}
	return s.resync(ctx, searchindex.Precedents, len(rows), func(syncID string) []searchindex.Document {
		docs := make([]searchindex.Document, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, searchindex.Document{ID: r.ExternalID(), Source: precedentDoc{PrecedentRecord: r, SyncID: syncID}})
		}
		return docs
	})
}

// SyncQnA rewrites the legal_qna index from the legal_qna table.
func (s *SyncService) SyncQnA(ctx context.Context) (SyncResult, error) {
	if s.qna == nil {
		return SyncResult{}, errors.New("sync service has no Q&A reader")
	}
	rows, err := s.qna.ListAll(ctx)
	if err != nil {
		return SyncResult{Index: searchindex.LegalQnA.Name}, err
	}
	return s.resync(ctx, searchindex.LegalQnA, len(rows), func(syncID string) []searchindex.Document {
		docs := make([]searchindex.Document, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, searchindex.Document{ID: r.ExternalID(), Source: qnaDoc{QnARecord: r, SyncID: syncID}})
		}
		return docs
	})
}

// SyncAll resyncs every index whose reader is configured. It keeps going
// after a failed index and returns the joined errors.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	var (
		results []SyncResult
		errs    []error
	)
	run := func(name string, enabled bool, fn func(context.Context) (SyncResult, error)) {
		if !enabled {
			return
		}
		res, err := fn(ctx)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	run("laws", s.laws != nil, s.SyncLaws)
	run("precedents", s.precedents != nil, s.SyncPrecedents)
	run("legal_qna", s.qna != nil, s.SyncQnA)
	return results, errors.Join(errs...)
}

// resync ensures the index, overwrites every document by ID under a fresh
// sync id and, when every document was accepted, prunes documents from
// earlier runs so the index matches the table exactly.
func (s *SyncService) resync(ctx context.Context, ix searchindex.Index, rows int, build func(syncID string) []searchindex.Document) (SyncResult, error) {
	res := SyncResult{Index: ix.Name, SyncID: s.newSyncID(), Rows: rows}
	if s.indexer == nil {
		return res, errors.New("sync service has no indexer")
	}

	if _, err := s.indexer.EnsureIndex(ctx, ix); err != nil {
		return res, err
	}

	bulk, err := s.indexer.BulkOverwrite(ctx, ix.Name, build(res.SyncID))
	res.BulkResult = bulk
	metrics.DocumentsIndexed.WithLabelValues(ix.Name).Add(float64(bulk.Indexed))
	if err != nil {
		var bulkErr *searchindex.BulkError
		if errors.As(err, &bulkErr) {
			log.Error().
				Str("index", ix.Name).
				Int("attempted", bulk.Attempted).
				Int("indexed", bulk.Indexed).
				Int("failed", bulk.Failed).
				Strs("sample", bulkErr.Sample).
				Msg("Bulk write partially failed, stale documents kept")
		}
		return res, err
	}

	if err := s.indexer.Refresh(ctx, ix.Name); err != nil {
		return res, err
	}

	pruned, err := s.indexer.DeleteStale(ctx, ix.Name, res.SyncID)
	if err != nil {
		return res, err
	}
	res.Pruned = pruned

	log.Info().
		Str("index", ix.Name).
		Str("sync_id", res.SyncID).
		Int("rows", rows).
		Int("indexed", bulk.Indexed).
		Int64("pruned", pruned).
		Msg("Index resynced")
	return res, nil
}
