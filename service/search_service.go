package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/searchindex"
)

const (
	// DefaultResultSize is the number of hits returned when no size is given
	DefaultResultSize = 3
	// MaxResultSize bounds any requested size
	MaxResultSize = 50
)

var (
	// ErrEmptyQuery is returned for a missing or blank query string
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrSearchUnavailable wraps index and connection failures during search
	ErrSearchUnavailable = errors.New("search index unavailable")
)

// Searcher runs ranked queries against the document index
type Searcher interface {
	Search(ctx context.Context, ix searchindex.Index, query string, size int) ([]searchindex.Hit, error)
}

// SearchService handles ranked retrieval over the indices
type SearchService struct {
	searcher Searcher
}

// NewSearchService creates a new search service
func NewSearchService(searcher Searcher) *SearchService {
	return &SearchService{searcher: searcher}
}

// ClampSize applies the default and maximum result sizes.
func ClampSize(size int) int {
	if size <= 0 {
		return DefaultResultSize
	}
	return min(size, MaxResultSize)
}

func (s *SearchService) run(ctx context.Context, ix searchindex.Index, query string, size int) ([]searchindex.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	hits, err := s.searcher.Search(ctx, ix, query, ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	return hits, nil
}

// SearchPrecedents ranks precedents by case name (x3), summary (x2) and full text.
func (s *SearchService) SearchPrecedents(ctx context.Context, query string, size int) ([]models.PrecedentHit, error) {
	hits, err := s.run(ctx, searchindex.Precedents, query, size)
	if err != nil {
		return nil, err
	}

	results := make([]models.PrecedentHit, 0, len(hits))
	for _, h := range hits {
		var src models.PrecedentRecord
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return nil, fmt.Errorf("%w: decode hit %s: %w", ErrSearchUnavailable, h.ID, err)
		}
		if src.PrecID == "" {
			src.PrecID = h.ID
		}
		results = append(results, models.PrecedentHit{
			PrecID:       src.PrecID,
			CaseNo:       src.CaseNo,
			CaseName:     src.CaseName,
			CourtName:    src.CourtName,
			JudgmentDate: src.JudgmentDate,
			Summary:      src.Summary,
			Score:        h.Score,
		})
	}
	return results, nil
}

// SearchLaws ranks statutes by name (x3) and type (x2).
func (s *SearchService) SearchLaws(ctx context.Context, query string, size int) ([]models.LawHit, error) {
	hits, err := s.run(ctx, searchindex.Laws, query, size)
	if err != nil {
		return nil, err
	}

	results := make([]models.LawHit, 0, len(hits))
	for _, h := range hits {
		var src models.LawRecord
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return nil, fmt.Errorf("%w: decode hit %s: %w", ErrSearchUnavailable, h.ID, err)
		}
		if src.LawID == "" {
			src.LawID = h.ID
		}
		results = append(results, models.LawHit{LawRecord: src, Score: h.Score})
	}
	return results, nil
}

// SearchQnA ranks Q&A pairs by question (x3), category (x2) and answer.
func (s *SearchService) SearchQnA(ctx context.Context, query string, size int) ([]models.QnAHit, error) {
	hits, err := s.run(ctx, searchindex.LegalQnA, query, size)
	if err != nil {
		return nil, err
	}

	results := make([]models.QnAHit, 0, len(hits))
	for _, h := range hits {
		var src models.QnARecord
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return nil, fmt.Errorf("%w: decode hit %s: %w", ErrSearchUnavailable, h.ID, err)
		}
		if src.QnaID == "" {
			src.QnaID = h.ID
		}
		results = append(results, models.QnAHit{QnARecord: src, Score: h.Score})
	}
	return results, nil
}
