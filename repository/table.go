package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// table describes an upsertable table keyed by an external identifier.
// columns lists every written column, key first.
type table struct {
	name    string
	key     string
	columns []string
}

var (
	lawsTable = table{
		name:    "laws",
		key:     "law_id",
		columns: []string{"law_id", "law_name_kor", "law_type", "promulgation_date", "enforcement_date"},
	}
	precedentsTable = table{
		name: "precedents",
		key:  "prec_id",
		columns: []string{
			"prec_id", "case_no", "case_name", "court_name",
			"judgment_date", "case_type", "summary", "full_text",
		},
	}
	qnaTable = table{
		name:    "legal_qna",
		key:     "qna_id",
		columns: []string{"qna_id", "source", "url", "category", "question", "answer"},
	}
)

// upsertSQL builds a single INSERT ... ON CONFLICT statement that overwrites
// every non-key column. Rows whose values are unchanged are left untouched.
func (t table) upsertSQL() string {
	placeholders := make([]string, len(t.columns))
	var sets, current, incoming []string
	for i, col := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col == t.key {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		current = append(current, t.name+"."+col)
		incoming = append(incoming, "EXCLUDED."+col)
	}

	return fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (%s) DO UPDATE SET
			%s
		WHERE (%s) IS DISTINCT FROM (%s)`,
		t.name, strings.Join(t.columns, ", "),
		strings.Join(placeholders, ", "),
		t.key,
		strings.Join(sets, ",\n\t\t\t"),
		strings.Join(current, ", "), strings.Join(incoming, ", "),
	)
}

func (t table) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.columns, ", "), t.name, t.key)
}

func (t table) countSQL() string {
	return "SELECT COUNT(*) FROM " + t.name
}

// upsertOne writes one row with a single autocommitted statement.
func upsertOne(ctx context.Context, db *pgxpool.Pool, t table, args []any) error {
	if _, err := db.Exec(ctx, t.upsertSQL(), args...); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", t.name, err)
	}
	return nil
}

// upsertMany writes rows inside one transaction, queued as a single batch.
// The transaction is rolled back on any failure.
func upsertMany(ctx context.Context, db *pgxpool.Pool, t table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var changed int64
	query := t.upsertSQL()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, args := range rows {
			b.Queue(query, args...)
		}

		br := tx.SendBatch(ctx, b)
		for i := range rows {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("row %d: %w", i, err)
			}
			changed += tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert batch into %s: %w", t.name, err)
	}
	return changed, nil
}

func count(ctx context.Context, db *pgxpool.Pool, t table) (int64, error) {
	var n int64
	if err := db.QueryRow(ctx, t.countSQL()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	return n, nil
}
