package results

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/gwas-risk-engine/internal/domain"
)

// PostgresStore implements domain.MatchStore using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL match store around an existing
// connection. The schema is expected to exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL match store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewPostgresStore(db)
}

// Put upserts the result for its study, overwriting any earlier match
func (s *PostgresStore) Put(ctx context.Context, result *domain.MatchResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results (
			study_id, accession, trait, matched_snp, user_genotype,
			risk_allele, effect_size, effect_type, risk_score, risk_level, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (study_id) DO UPDATE SET
			accession = EXCLUDED.accession,
			trait = EXCLUDED.trait,
			matched_snp = EXCLUDED.matched_snp,
			user_genotype = EXCLUDED.user_genotype,
			risk_allele = EXCLUDED.risk_allele,
			effect_size = EXCLUDED.effect_size,
			effect_type = EXCLUDED.effect_type,
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			updated_at = EXCLUDED.updated_at`,
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
func (s *PostgresStore) Get(ctx context.Context, studyID uint64) (*domain.MatchResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT study_id, accession, trait, matched_snp, user_genotype,
			risk_allele, effect_size, effect_type, risk_score, risk_level
		FROM match_results WHERE study_id = $1`,
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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT study_id, accession, trait, matched_snp, user_genotype,
			risk_allele, effect_size, effect_type, risk_score, risk_level
		FROM match_results
		ORDER BY risk_score DESC, study_id
		LIMIT $1 OFFSET $2`,
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_results`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting match results: %w", err)
	}
	return count, nil
}

// Clear removes all stored results
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM match_results`); err != nil {
		return fmt.Errorf("clearing match results: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
