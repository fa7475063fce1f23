package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var schemaStatements = []struct {
	name string
	sql  string
}{
	{
		name: "laws",
		sql: `
CREATE TABLE IF NOT EXISTS laws (
    id                BIGSERIAL PRIMARY KEY,
    law_id            TEXT NOT NULL UNIQUE,
    law_name_kor      TEXT,
    law_type          TEXT,
    promulgation_date TEXT,
    enforcement_date  TEXT
);`,
	},
	{
		name: "precedents",
		sql: `
CREATE TABLE IF NOT EXISTS precedents (
    id            BIGSERIAL PRIMARY KEY,
    prec_id       TEXT NOT NULL UNIQUE,
    case_no       TEXT,
    case_name     TEXT,
    court_name    TEXT,
    judgment_date TEXT,
    case_type     TEXT,
    summary       TEXT,
    full_text     TEXT
);`,
	},
	{
		name: "legal_qna",
		sql: `
CREATE TABLE IF NOT EXISTS legal_qna (
    id         BIGSERIAL PRIMARY KEY,
    qna_id     TEXT NOT NULL UNIQUE,
    source     TEXT NOT NULL,
    url        TEXT,
    category   TEXT,
    question   TEXT,
    answer     TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureSchema creates the laws, precedents and legal_qna tables if they do not exist
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
		log.Debug().Str("table", stmt.name).Msg("Table ready")
	}
	log.Info().Int("tables", len(schemaStatements)).Msg("Schema ensured")
	return nil
}
