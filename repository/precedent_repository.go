package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gahuily/LawChat/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMissingID is returned when a record without an external identifier reaches the store
var ErrMissingID = errors.New("record has no external identifier")

// PrecedentRepository handles database operations for court precedents
type PrecedentRepository struct {
	db *pgxpool.Pool
}

// NewPrecedentRepository creates a new precedent repository
func NewPrecedentRepository(db *pgxpool.Pool) *PrecedentRepository {
	return &PrecedentRepository{db: db}
}

func precedentArgs(p models.PrecedentRecord) []any {
	return []any{
		p.PrecID, p.CaseNo, p.CaseName, p.CourtName,
		p.JudgmentDate, p.CaseType, p.Summary, p.FullText,
	}
}

// Upsert inserts a precedent or overwrites the existing row with the same prec_id
func (r *PrecedentRepository) Upsert(ctx context.Context, prec models.PrecedentRecord) error {
	if prec.PrecID == "" {
		return ErrMissingID
	}
	return upsertOne(ctx, r.db, precedentsTable, precedentArgs(prec))
}

// UpsertPrecedents writes a batch of precedents in one transaction
func (r *PrecedentRepository) UpsertPrecedents(ctx context.Context, precs []models.PrecedentRecord) (int64, error) {
	rows := make([][]any, 0, len(precs))
	for _, p := range precs {
		if p.PrecID == "" {
			return 0, ErrMissingID
		}
		rows = append(rows, precedentArgs(p))
	}
	return upsertMany(ctx, r.db, precedentsTable, rows)
}

// ListAll returns every precedent ordered by prec_id
func (r *PrecedentRepository) ListAll(ctx context.Context) ([]models.PrecedentRecord, error) {
	rows, err := r.db.Query(ctx, precedentsTable.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to query precedents: %w", err)
	}
	defer rows.Close()

	var precs []models.PrecedentRecord
	for rows.Next() {
		var p models.PrecedentRecord
		err := rows.Scan(
			&p.PrecID,
			&p.CaseNo,
			&p.CaseName,
			&p.CourtName,
			&p.JudgmentDate,
			&p.CaseType,
			&p.Summary,
			&p.FullText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan precedent: %w", err)
		}
		precs = append(precs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating precedents: %w", err)
	}

	return precs, nil
}

// Count returns the number of stored precedents
func (r *PrecedentRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, precedentsTable)
}
