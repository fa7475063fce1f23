package repository

import (
	"context"
	"fmt"

	"github.com/gahuily/LawChat/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QnARepository handles database operations for legal Q&A pairs
type QnARepository struct {
	db *pgxpool.Pool
}

// NewQnARepository creates a new Q&A repository
func NewQnARepository(db *pgxpool.Pool) *QnARepository {
	return &QnARepository{db: db}
}

func qnaArgs(q models.QnARecord) []any {
	return []any{q.QnaID, q.Source, q.URL, q.Category, q.Question, q.Answer}
}

// UpsertQnA writes a batch of Q&A pairs in one transaction
func (r *QnARepository) UpsertQnA(ctx context.Context, items []models.QnARecord) (int64, error) {
	rows := make([][]any, 0, len(items))
	for _, q := range items {
		if q.QnaID == "" {
			return 0, ErrMissingID
		}
		rows = append(rows, qnaArgs(q))
	}
	return upsertMany(ctx, r.db, qnaTable, rows)
}

// ListAll returns every Q&A pair ordered by qna_id
func (r *QnARepository) ListAll(ctx context.Context) ([]models.QnARecord, error) {
	rows, err := r.db.Query(ctx, qnaTable.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to query legal_qna: %w", err)
	}
	defer rows.Close()

	var items []models.QnARecord
	for rows.Next() {
		var q models.QnARecord
		if err := rows.Scan(&q.QnaID, &q.Source, &q.URL, &q.Category, &q.Question, &q.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan legal_qna row: %w", err)
		}
		items = append(items, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legal_qna: %w", err)
	}

	return items, nil
}

// Count returns the number of stored Q&A pairs
func (r *QnARepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, qnaTable)
}
