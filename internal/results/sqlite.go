// Package results persists computed match results under the contract
// "studyId -> last-known MatchResult, overwritten on reinsertion". The
// stores are session-scoped conveniences, not a system of record: a new
// genotype upload starts from Clear.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gwas-risk-engine/internal/domain"
)

// SQLiteStore implements domain.MatchStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite match store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createMatchSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createMatchSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS match_results (
		study_id INTEGER PRIMARY KEY,
		accession TEXT DEFAULT '',
		trait TEXT DEFAULT '',
		matched_snp TEXT NOT NULL,
		user_genotype TEXT NOT NULL,
		risk_allele TEXT DEFAULT '',
		effect_size REAL NOT NULL DEFAULT 0,
		effect_type TEXT NOT NULL,
		risk_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_match_trait ON match_results(trait);
	CREATE INDEX IF NOT EXISTS idx_match_level ON match_results(risk_level);
	`
	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(s scanner) (*domain.MatchResult, error) {
	m := &domain.MatchResult{}
	var studyID int64
	var effectType, riskLevel string

	err := s.Scan(
		&studyID, &m.Accession, &m.Trait, &m.MatchedSNP, &m.UserGenotype,
		&m.RiskAllele, &m.EffectSize, &effectType, &m.RiskScore, &riskLevel,
	)
	if err != nil {
		return nil, err
	}

	m.StudyID = uint64(studyID)
	m.EffectType = domain.EffectType(effectType)
	m.RiskLevel = domain.RiskLevel(riskLevel)
	return m, nil
}

const matchColumns = `study_id, accession, trait, matched_snp, user_genotype,
	risk_allele, effect_size, effect_type, risk_score, risk_level`

// Put upserts the result for its study, overwriting any earlier match
func (s *SQLiteStore) Put(ctx context.Context, result *domain.MatchResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results (
			study_id, accession, trait, matched_snp, user_genotype,
			risk_allele, effect_size, effect_type, risk_score, risk_level, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(study_id) DO UPDATE SET
			accession = excluded.accession,
			trait = excluded.trait,
			matched_snp = excluded.matched_snp,
			user_genotype = excluded.user_genotype,
			risk_allele = excluded.risk_allele,
			effect_size = excluded.effect_size,
			effect_type = excluded.effect_type,
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			updated_at = excluded.updated_at`,
		int64(result.StudyID), result.Accession, result.Trait, result.MatchedSNP,
		result.UserGenotype, result.RiskAllele, result.EffectSize,
		string(result.EffectType), result.RiskScore, string(result.RiskLevel),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving match result: %w", err)
	}
	return nil
}

// Get returns the last-known result for a study
func (s *SQLiteStore) Get(ctx context.Context, studyID uint64) (*domain.MatchResult, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM match_results WHERE study_id = ?`, matchColumns),
		int64(studyID),
	)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting match result: %w", err)
	}
	return m, nil
}

// List returns a page of results ordered by descending risk score
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM match_results ORDER BY risk_score DESC, study_id LIMIT ? OFFSET ?`, matchColumns),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing match results: %w", err)
	}
	defer rows.Close()

	var matches []*domain.MatchResult
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match result: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of stored results
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_results`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting match results: %w", err)
	}
	return count, nil
}

// Clear removes all stored results
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM match_results`); err != nil {
		return fmt.Errorf("clearing match results: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
