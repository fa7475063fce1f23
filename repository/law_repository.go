package repository

import (
	"context"
	"fmt"

	"github.com/gahuily/LawChat/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LawRepository handles database operations for statutes
type LawRepository struct {
	db *pgxpool.Pool
}

// NewLawRepository creates a new law repository
func NewLawRepository(db *pgxpool.Pool) *LawRepository {
	return &LawRepository{db: db}
}

func lawArgs(l models.LawRecord) []any {
	return []any{l.LawID, l.LawNameKor, l.LawType, l.PromulgationDate, l.EnforcementDate}
}

// Upsert inserts a law or overwrites the existing row with the same law_id
func (r *LawRepository) Upsert(ctx context.Context, law models.LawRecord) error {
	if law.LawID == "" {
		return ErrMissingID
	}
	return upsertOne(ctx, r.db, lawsTable, lawArgs(law))
}

// UpsertLaws writes a batch of laws in one transaction and returns the number of rows changed
func (r *LawRepository) UpsertLaws(ctx context.Context, laws []models.LawRecord) (int64, error) {
	rows := make([][]any, 0, len(laws))
	for _, l := range laws {
		if l.LawID == "" {
			return 0, ErrMissingID
		}
		rows = append(rows, lawArgs(l))
	}
	return upsertMany(ctx, r.db, lawsTable, rows)
}

// ListAll returns every law ordered by law_id
func (r *LawRepository) ListAll(ctx context.Context) ([]models.LawRecord, error) {
	rows, err := r.db.Query(ctx, lawsTable.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to query laws: %w", err)
	}
	defer rows.Close()

	var laws []models.LawRecord
	for rows.Next() {
		var l models.LawRecord
		if err := rows.Scan(&l.LawID, &l.LawNameKor, &l.LawType, &l.PromulgationDate, &l.EnforcementDate); err != nil {
			return nil, fmt.Errorf("failed to scan law: %w", err)
		}
		laws = append(laws, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating laws: %w", err)
	}

	return laws, nil
}

// Count returns the number of stored laws
func (r *LawRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, lawsTable)
}
