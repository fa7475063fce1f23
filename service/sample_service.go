package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/metrics"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/normalize"
)

// UpsertFunc writes a single record, e.g. LawRepository.Upsert
type UpsertFunc[T any] func(ctx context.Context, rec T) error

// SampleService loads JSON arrays already in the table layout (sample_laws.json,
// sample_precedents.json) straight into the row store, one record at a time.
type SampleService struct {
	upsertLaw       UpsertFunc[models.LawRecord]
	upsertPrecedent UpsertFunc[models.PrecedentRecord]
}

// NewSampleService creates a new sample loader. Either writer may be nil when
// only the other entity is loaded.
func NewSampleService(law UpsertFunc[models.LawRecord], precedent UpsertFunc[models.PrecedentRecord]) *SampleService {
	return &SampleService{upsertLaw: law, upsertPrecedent: precedent}
}

// SampleResult summarises one sample load
type SampleResult struct {
	Records   int
	Written   int
	MissingID int
}

// LoadLaws reads a JSON array of laws and upserts each one
func (s *SampleService) LoadLaws(ctx context.Context, r io.Reader) (SampleResult, error) {
	if s.upsertLaw == nil {
		return SampleResult{}, errors.New("sample service has no law writer")
	}
	var laws []models.LawRecord
	if err := json.NewDecoder(r).Decode(&laws); err != nil {
		return SampleResult{}, fmt.Errorf("decode sample laws: %w", err)
	}

	res := SampleResult{Records: len(laws)}
	for _, l := range laws {
		if l.LawID == "" {
			res.MissingID++
			log.Warn().Interface("record", l).Msg("Sample law without law_id dropped")
			continue
		}
		l.PromulgationDate = normalize.CanonicalDate(l.PromulgationDate)
		l.EnforcementDate = normalize.CanonicalDate(l.EnforcementDate)
		if err := s.upsertLaw(ctx, l); err != nil {
			return res, fmt.Errorf("store sample law %s: %w", l.LawID, err)
		}
		res.Written++
	}
	metrics.RecordsIngested.WithLabelValues(string(models.EntityLaw)).Add(float64(res.Written))

	log.Info().Int("records", res.Records).Int("written", res.Written).Int("missing_id", res.MissingID).Msg("Sample laws loaded")
	return res, nil
}

// LoadPrecedents reads a JSON array of precedents and upserts each one
func (s *SampleService) LoadPrecedents(ctx context.Context, r io.Reader) (SampleResult, error) {
	if s.upsertPrecedent == nil {
		return SampleResult{}, errors.New("sample service has no precedent writer")
	}
	var precs []models.PrecedentRecord
	if err := json.NewDecoder(r).Decode(&precs); err != nil {
		return SampleResult{}, fmt.Errorf("decode sample precedents: %w", err)
	}

	res := SampleResult{Records: len(precs)}
	for _, p := range precs {
		if p.PrecID == "" {
			res.MissingID++
			log.Warn().Interface("record", p).Msg("Sample precedent without prec_id dropped")
			continue
		}
		p.JudgmentDate = normalize.CanonicalDate(p.JudgmentDate)
		if err := s.upsertPrecedent(ctx, p); err != nil {
			return res, fmt.Errorf("store sample precedent %s: %w", p.PrecID, err)
		}
		res.Written++
	}
	metrics.RecordsIngested.WithLabelValues(string(models.EntityPrecedent)).Add(float64(res.Written))

	log.Info().Int("records", res.Records).Int("written", res.Written).Int("missing_id", res.MissingID).Msg("Sample precedents loaded")
	return res, nil
}
