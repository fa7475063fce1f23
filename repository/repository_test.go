package repository

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gahuily/LawChat/models"
)

func itoa(i int) string { return strconv.Itoa(i) }

func str(s string) *string { return &s }

func sampleLaw(id string) models.LawRecord {
	return models.LawRecord{LawID: id, LawNameKor: str("주택임대차보호법"), LawType: str("법률"), PromulgationDate: str("20230328")}
}

func samplePrecedent(id string) models.PrecedentRecord {
	return models.PrecedentRecord{
		PrecID:       id,
		CaseNo:       str("2019다12345"),
		CaseName:     str("전세보증금반환"),
		CourtName:    str("대법원"),
		JudgmentDate: str("20200326"),
		Summary:      str("임대차 종료 시 보증금 반환"),
		FullText:     str("【주문】 상고를 기각한다."),
	}
}

func sampleQnA(id string) models.QnARecord {
	return models.QnARecord{QnaID: id, Source: "legalqa", Question: str("전세 계약이 끝나면?"), Answer: str("보증금을 돌려받습니다.")}
}

// testPool connects to TEST_DATABASE_URL and starts from empty tables.
// Tests are skipped when the variable is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, EnsureSchema(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE laws, precedents, legal_qna")
	require.NoError(t, err)
	return db
}

func TestPrecedentRepository_UpsertIsIdempotent(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	repo := NewPrecedentRepository(db)

	batch := []models.PrecedentRecord{samplePrecedent("228541"), samplePrecedent("000123")}
	changed, err := repo.UpsertPrecedents(ctx, batch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	changed, err = repo.UpsertPrecedents(ctx, batch)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed, "unchanged rows are not rewritten")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "000123", all[0].PrecID, "leading zeros survive")
	assert.Equal(t, batch[1], all[0])
}

func TestPrecedentRepository_LastWriteWins(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	repo := NewPrecedentRepository(db)

	first := samplePrecedent("1")
	require.NoError(t, repo.Upsert(ctx, first))

	second := samplePrecedent("1")
	second.Summary = str("변경된 요지")
	second.FullText = nil
	changed, err := repo.UpsertPrecedents(ctx, []models.PrecedentRecord{second})
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "변경된 요지", *all[0].Summary)
	assert.Nil(t, all[0].FullText)
}

func TestRepositories_RejectMissingID(t *testing.T) {
	// No connection is needed: the check runs before any statement.
	ctx := context.Background()

	_, err := NewPrecedentRepository(nil).UpsertPrecedents(ctx, []models.PrecedentRecord{{}})
	assert.ErrorIs(t, err, ErrMissingID)
	assert.ErrorIs(t, NewPrecedentRepository(nil).Upsert(ctx, models.PrecedentRecord{}), ErrMissingID)
	_, err = NewLawRepository(nil).UpsertLaws(ctx, []models.LawRecord{{}})
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = NewQnARepository(nil).UpsertQnA(ctx, []models.QnARecord{{Source: "legalqa"}})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestLawAndQnARepositories(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()

	laws := NewLawRepository(db)
	_, err := laws.UpsertLaws(ctx, []models.LawRecord{sampleLaw("001234")})
	require.NoError(t, err)
	require.NoError(t, laws.Upsert(ctx, sampleLaw("001235")))
	n, err := laws.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	qna := NewQnARepository(db)
	_, err = qna.UpsertQnA(ctx, []models.QnARecord{sampleQnA("legalqa_000001")})
	require.NoError(t, err)
	items, err := qna.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "legalqa", items[0].Source)
}
