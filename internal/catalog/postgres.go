package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/domain"
)

// studyColumns is the canonical select list shared by all queries
const studyColumns = `accession, title, trait, mapped_trait, author, journal,
	publication_date, sample_size_text, replication_text, p_value_text,
	log_p_value_text, effect_size_text, effect_type_hint, risk_allele_text,
	snp_list_text, risk_freq_text, genes`

// PostgresSource is the catalog-backed StudySource for full deployments.
// Only the cheap text predicates are pushed down; numeric and quality
// filters operate on normalized values the database does not hold, so the
// pipeline re-applies the full set in memory.
type PostgresSource struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresSource creates a Postgres study source
func NewPostgresSource(db *pgxpool.Pool, logger *logrus.Logger) *PostgresSource {
	return &PostgresSource{
		db:  db,
		log: logger,
	}
}

// FetchBatch returns one page of raw study records in stable id order
func (s *PostgresSource) FetchBatch(ctx context.Context, filters domain.StudyFilters, offset, limit int) ([]domain.RawStudyRecord, error) {
	where, args := buildWhere(filters)
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM studies %s ORDER BY id LIMIT $%d OFFSET $%d`,
		studyColumns, where, len(args)-1, len(args),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"offset": offset,
			"limit":  limit,
			"error":  err,
		}).Error("Failed to fetch study batch")
		return nil, fmt.Errorf("fetching study batch: %w", err)
	}
	defer rows.Close()

	records := make([]domain.RawStudyRecord, 0, limit)
	for rows.Next() {
		var r domain.RawStudyRecord
		if err := rows.Scan(
			&r.Accession, &r.Title, &r.Trait, &r.MappedTrait, &r.Author, &r.Journal,
			&r.PublicationDate, &r.SampleSizeText, &r.ReplicationText, &r.PValueText,
			&r.LogPValueText, &r.EffectSizeText, &r.EffectTypeHint, &r.RiskAlleleText,
			&r.SNPListText, &r.RiskFreqText, &r.Genes,
		); err != nil {
			return nil, fmt.Errorf("scanning study row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating study rows: %w", err)
	}

	return records, nil
}

// Count returns the number of studies matching the pushed-down predicates
func (s *PostgresSource) Count(ctx context.Context, filters domain.StudyFilters) (int64, error) {
	where, args := buildWhere(filters)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM studies %s`, where)

	var count int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		s.log.WithError(err).Error("Failed to count studies")
		return 0, fmt.Errorf("counting studies: %w", err)
	}
	return count, nil
}

// buildWhere assembles the pushed-down predicate clauses. Search is a
// case-insensitive substring over the descriptive text columns; trait is an
// exact match against either trait field.
func buildWhere(filters domain.StudyFilters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			`(title ILIKE $%d OR trait ILIKE $%d OR mapped_trait ILIKE $%d OR author ILIKE $%d OR genes ILIKE $%d OR accession ILIKE $%d)`,
			n, n, n, n, n, n,
		))
	}
	if filters.Trait != "" {
		args = append(args, filters.Trait)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(LOWER(trait) = LOWER($%d) OR LOWER(mapped_trait) = LOWER($%d))`, n, n))
	}
	if filters.RequireRiskAllele {
		clauses = append(clauses, `risk_allele_text <> '' AND risk_allele_text <> 'NR' AND risk_allele_text NOT LIKE '%?%'`)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
