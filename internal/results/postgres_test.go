package results

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwas-risk-engine/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	return store, mock
}

func matchRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"study_id", "accession", "trait", "matched_snp", "user_genotype",
		"risk_allele", "effect_size", "effect_type", "risk_score", "risk_level",
	})
}

func TestNewPostgresStore_NilConnection(t *testing.T) {
	store, err := NewPostgresStore(nil)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestPostgresStore_Put(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO match_results").
		WithArgs(
			int64(42), "GCST000123", "Type 2 diabetes", "rs7903146", "TT",
			"T", 1.4, "OR", 1.96, "INCREASED", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), testMatch(42, 1.96))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM match_results WHERE study_id").
		WithArgs(int64(42)).
		WillReturnRows(matchRows().AddRow(
			int64(42), "GCST000123", "Type 2 diabetes", "rs7903146", "TT",
			"T", 1.4, "OR", 1.96, "INCREASED",
		))

	got, err := store.Get(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), got.StudyID)
	assert.Equal(t, "rs7903146", got.MatchedSNP)
	assert.Equal(t, domain.ODDS_RATIO, got.EffectType)
	assert.Equal(t, domain.INCREASED, got.RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM match_results WHERE study_id").
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM match_results").
		WithArgs(10, 0).
		WillReturnRows(matchRows().
			AddRow(int64(2), "GCST2", "Asthma", "rs2", "AA", "A", 2.0, "OR", 4.0, "INCREASED").
			AddRow(int64(1), "GCST1", "Asthma", "rs1", "AG", "A", 1.2, "OR", 1.2, "INCREASED"))

	matches, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint64(2), matches[0].StudyID)
	assert.Equal(t, uint64(1), matches[1].StudyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM match_results").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Clear(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM match_results").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := store.Clear(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
