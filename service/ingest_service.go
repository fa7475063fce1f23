package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/lawapi"
	"github.com/gahuily/LawChat/metrics"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/normalize"
)

// DefaultBatchSize is the number of records written per transaction
const DefaultBatchSize = 100

// RecordSource extracts raw records from the law API
type RecordSource interface {
	Extract(ctx context.Context, opts lawapi.ExtractOptions) iter.Seq2[lawapi.RawRecord, error]
	Detail(ctx context.Context, target models.EntityType, id string) (lawapi.RawRecord, error)
}

// LawWriter persists normalized laws
type LawWriter interface {
	UpsertLaws(ctx context.Context, laws []models.LawRecord) (int64, error)
}

// PrecedentWriter persists normalized precedents
type PrecedentWriter interface {
	UpsertPrecedents(ctx context.Context, precs []models.PrecedentRecord) (int64, error)
}

// IngestService runs extract -> (detail) -> normalize -> upsert
type IngestService struct {
	source       RecordSource
	normalizer   *normalize.Normalizer
	laws         LawWriter
	precedents   PrecedentWriter
	batchSize    int
	fetchDetails bool
}

// IngestOption is a functional option for IngestService
type IngestOption func(*IngestService)

// IngestWithSource sets the law API source
func IngestWithSource(src RecordSource) IngestOption {
	return func(s *IngestService) {
		s.source = src
	}
}

// IngestWithNormalizer sets the normalizer
func IngestWithNormalizer(n *normalize.Normalizer) IngestOption {
	return func(s *IngestService) {
		s.normalizer = n
	}
}

// IngestWithLawWriter sets the law store
func IngestWithLawWriter(w LawWriter) IngestOption {
	return func(s *IngestService) {
		s.laws = w
	}
}

// IngestWithPrecedentWriter sets the precedent store
func IngestWithPrecedentWriter(w PrecedentWriter) IngestOption {
	return func(s *IngestService) {
		s.precedents = w
	}
}

// IngestWithBatchSize sets how many records share one transaction
func IngestWithBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// IngestWithDetails toggles the per-precedent detail lookup (on by default)
func IngestWithDetails(enabled bool) IngestOption {
	return func(s *IngestService) {
		s.fetchDetails = enabled
	}
}

// NewIngestService creates a new ingest service
func NewIngestService(opts ...IngestOption) *IngestService {
	s := &IngestService{
		batchSize:    DefaultBatchSize,
		fetchDetails: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(nil)
	}
	return s
}

// IngestRequest selects which list pages to pull
type IngestRequest struct {
	Query    string
	Display  int
	MaxPages int
}

// IngestResult summarises one ingest run
type IngestResult struct {
	Extracted     int
	Written       int
	Changed       int64
	MissingID     int
	DetailMissing int
}

// IngestLaws pulls the statute list and upserts every record that has a law_id.
func (s *IngestService) IngestLaws(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if s.source == nil || s.laws == nil {
		return IngestResult{}, errors.New("ingest service needs a source and a law writer")
	}

	var res IngestResult
	b := newBatcher(s.batchSize, func(batch []models.LawRecord) error {
		changed, err := s.laws.UpsertLaws(ctx, batch)
		if err != nil {
			return err
		}
		metrics.RecordsIngested.WithLabelValues(string(models.EntityLaw)).Add(float64(len(batch)))
		res.Written += len(batch)
		res.Changed += changed
		return nil
	})

	opts := lawapi.ExtractOptions{Target: models.EntityLaw, Query: req.Query, Display: req.Display, MaxPages: req.MaxPages}
	for raw, err := range s.source.Extract(ctx, opts) {
		if err != nil {
			return res, abortAfterFlush(b.flush(), fmt.Errorf("extract laws: %w", err))
		}
		res.Extracted++

		law := s.normalizer.Law(raw)
		if law.LawID == "" {
			res.MissingID++
			log.Warn().Interface("record", raw).Msg("Law without identifier dropped")
			continue
		}
		if err := b.add(law); err != nil {
			return res, fmt.Errorf("store laws: %w", err)
		}
		logProgress("laws", res.Extracted)
	}

	if err := b.flush(); err != nil {
		return res, fmt.Errorf("store laws: %w", err)
	}

	log.Info().
		Int("extracted", res.Extracted).
		Int("written", res.Written).
		Int64("changed", res.Changed).
		Int("missing_id", res.MissingID).
		Msg("Law ingest complete")
	return res, nil
}

// IngestPrecedents pulls the precedent list, fetches each precedent's detail
// for the full text and upserts the merged record.
func (s *IngestService) IngestPrecedents(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if s.source == nil || s.precedents == nil {
		return IngestResult{}, errors.New("ingest service needs a source and a precedent writer")
	}

	var res IngestResult
	b := newBatcher(s.batchSize, func(batch []models.PrecedentRecord) error {
		changed, err := s.precedents.UpsertPrecedents(ctx, batch)
		if err != nil {
			return err
		}
		metrics.RecordsIngested.WithLabelValues(string(models.EntityPrecedent)).Add(float64(len(batch)))
		res.Written += len(batch)
		res.Changed += changed
		return nil
	})

	opts := lawapi.ExtractOptions{Target: models.EntityPrecedent, Query: req.Query, Display: req.Display, MaxPages: req.MaxPages}
	for raw, err := range s.source.Extract(ctx, opts) {
		if err != nil {
			return res, abortAfterFlush(b.flush(), fmt.Errorf("extract precedents: %w", err))
		}
		res.Extracted++

		prec := s.normalizer.Precedent(raw)
		if prec.PrecID == "" {
			res.MissingID++
			log.Warn().Interface("record", raw).Msg("Precedent without identifier dropped")
			continue
		}

		if s.fetchDetails {
			detail, err := s.source.Detail(ctx, models.EntityPrecedent, prec.PrecID)
			if errors.Is(err, lawapi.ErrDetailNotFound) {
				res.DetailMissing++
				log.Warn().Str("prec_id", prec.PrecID).Msg("Precedent detail not found, skipping")
				continue
			}
			if err != nil {
				return res, abortAfterFlush(b.flush(), fmt.Errorf("detail %s: %w", prec.PrecID, err))
			}
			prec = mergePrecedent(s.normalizer.Precedent(detail), prec)
		}

		if err := b.add(prec); err != nil {
			return res, fmt.Errorf("store precedents: %w", err)
		}
		logProgress("precedents", res.Extracted)
	}

	if err := b.flush(); err != nil {
		return res, fmt.Errorf("store precedents: %w", err)
	}

	log.Info().
		Int("extracted", res.Extracted).
		Int("written", res.Written).
		Int64("changed", res.Changed).
		Int("missing_id", res.MissingID).
		Int("detail_missing", res.DetailMissing).
		Msg("Precedent ingest complete")
	return res, nil
}

// abortAfterFlush keeps what was already buffered before reporting the upstream error.
func abortAfterFlush(flushErr, cause error) error {
	if flushErr != nil {
		return errors.Join(cause, fmt.Errorf("flush pending records: %w", flushErr))
	}
	return cause
}

// mergePrecedent fills fields the detail block lacks from the list record.
func mergePrecedent(detail, list models.PrecedentRecord) models.PrecedentRecord {
	if detail.PrecID == "" {
		detail.PrecID = list.PrecID
	}
	fill := func(dst **string, src *string) {
		if *dst == nil {
			*dst = src
		}
	}
	fill(&detail.CaseNo, list.CaseNo)
	fill(&detail.CaseName, list.CaseName)
	fill(&detail.CourtName, list.CourtName)
	fill(&detail.JudgmentDate, list.JudgmentDate)
	fill(&detail.CaseType, list.CaseType)
	fill(&detail.Summary, list.Summary)
	fill(&detail.FullText, list.FullText)
	return detail
}

func logProgress(entity string, n int) {
	if n%500 == 0 {
		log.Info().Str("entity", entity).Int("extracted", n).Msg("Ingest progress")
	}
}

// batcher buffers records and hands them to write in groups of size.
type batcher[T any] struct {
	size  int
	buf   []T
	write func([]T) error
}

func newBatcher[T any](size int, write func([]T) error) *batcher[T] {
	return &batcher[T]{size: size, write: write, buf: make([]T, 0, size)}
}

func (b *batcher[T]) add(item T) error {
	b.buf = append(b.buf, item)
	if len(b.buf) >= b.size {
		return b.flush()
	}
	return nil
}

func (b *batcher[T]) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	err := b.write(b.buf)
	b.buf = make([]T, 0, b.size)
	return err
}
