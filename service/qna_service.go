package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/metrics"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/normalize"
)

// LegalQAURL is the public LegalQA dataset in JSON lines form
const LegalQAURL = "https://raw.githubusercontent.com/haven-jeon/LegalQA/main/data/legalqa.jsonlines"

// QnAWriter persists Q&A pairs
type QnAWriter interface {
	UpsertQnA(ctx context.Context, items []models.QnARecord) (int64, error)
}

// QnAService loads Q&A datasets into the legal_qna table
type QnAService struct {
	writer     QnAWriter
	normalizer *normalize.Normalizer
	httpClient *http.Client
	batchSize  int
}

// NewQnAService creates a new Q&A loader
func NewQnAService(writer QnAWriter, httpClient *http.Client) *QnAService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &QnAService{
		writer:     writer,
		normalizer: normalize.New(nil),
		httpClient: httpClient,
		batchSize:  DefaultBatchSize,
	}
}

// LoadRequest describes one dataset load
type LoadRequest struct {
	// Source labels the rows ("legalqa", "easylaw")
	Source string
	// IDPrefix prefixes derived ids ("easy"); defaults to Source
	IDPrefix string
	// DeriveIDs numbers rows by line when the dataset has no id field
	DeriveIDs bool
}

// LoadResult summarises a dataset load
type LoadResult struct {
	Lines     int
	Written   int
	Changed   int64
	Malformed int
	MissingID int
}

// Open downloads a dataset over HTTP. The caller closes the body.
func (s *QnAService) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download dataset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("dataset download returned HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Load reads JSON lines from r and upserts them in batches. Lines that are
// not JSON objects are skipped.
func (s *QnAService) Load(ctx context.Context, r io.Reader, req LoadRequest) (LoadResult, error) {
	if s.writer == nil {
		return LoadResult{}, errors.New("Q&A service has no writer")
	}
	if req.Source == "" {
		req.Source = "legalqa"
	}
	if req.IDPrefix == "" {
		req.IDPrefix = req.Source
	}

	var res LoadResult
	b := newBatcher(s.batchSize, func(batch []models.QnARecord) error {
		changed, err := s.writer.UpsertQnA(ctx, batch)
		if err != nil {
			return err
		}
		metrics.RecordsIngested.WithLabelValues("qna").Add(float64(len(batch)))
		res.Written += len(batch)
		res.Changed += changed
		return nil
	})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil || raw == nil {
			res.Malformed++
			log.Warn().Int("line", res.Lines).Msg("Skipping malformed dataset line")
			continue
		}

		rec := s.normalizer.LegalQA(req.Source, req.IDPrefix, raw)
		if rec.QnaID == "" && req.DeriveIDs {
			rec.QnaID = fmt.Sprintf("%s_%06d", req.IDPrefix, res.Lines)
		}
		if rec.QnaID == "" {
			res.MissingID++
			log.Warn().Int("line", res.Lines).Msg("Q&A row without identifier dropped")
			continue
		}

		if err := b.add(rec); err != nil {
			return res, fmt.Errorf("store Q&A: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, abortAfterFlush(b.flush(), fmt.Errorf("read dataset: %w", err))
	}
	if err := b.flush(); err != nil {
		return res, fmt.Errorf("store Q&A: %w", err)
	}

	log.Info().
		Str("source", req.Source).
		Int("lines", res.Lines).
		Int("written", res.Written).
		Int("malformed", res.Malformed).
		Int("missing_id", res.MissingID).
		Msg("Q&A load complete")
	return res, nil
}
