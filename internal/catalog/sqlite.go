package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/gwas-risk-engine/internal/domain"
)

// SQLiteSource is a local-file StudySource: the embedded analog of the
// remote catalog, used for single-node deployments and as a local cache of
// fetched catalog pages.
type SQLiteSource struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteSource opens (or creates) a local catalog file
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers unblocked while catalog pages are imported.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createCatalogSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSource{db: db, dbPath: dbPath}, nil
}

func createCatalogSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS studies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		accession TEXT NOT NULL DEFAULT '',
		title TEXT DEFAULT '',
		trait TEXT DEFAULT '',
		mapped_trait TEXT DEFAULT '',
		author TEXT DEFAULT '',
		journal TEXT DEFAULT '',
		publication_date TEXT DEFAULT '',
		sample_size_text TEXT DEFAULT '',
		replication_text TEXT DEFAULT '',
		p_value_text TEXT DEFAULT '',
		log_p_value_text TEXT DEFAULT '',
		effect_size_text TEXT DEFAULT '',
		effect_type_hint TEXT DEFAULT '',
		risk_allele_text TEXT DEFAULT '',
		snp_list_text TEXT DEFAULT '',
		risk_freq_text TEXT DEFAULT '',
		genes TEXT DEFAULT '',
		study_key INTEGER NOT NULL,
		UNIQUE(study_key)
	);

	CREATE INDEX IF NOT EXISTS idx_studies_trait ON studies(trait);
	CREATE INDEX IF NOT EXISTS idx_studies_accession ON studies(accession);
	`
	_, err := db.Exec(schema)
	return err
}

// Import upserts raw records into the local catalog, keyed by study
// identity, so re-importing an unchanged page is a no-op.
func (s *SQLiteSource) Import(ctx context.Context, records []domain.RawStudyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO studies (
			accession, title, trait, mapped_trait, author, journal,
			publication_date, sample_size_text, replication_text, p_value_text,
			log_p_value_text, effect_size_text, effect_type_hint, risk_allele_text,
			snp_list_text, risk_freq_text, genes, study_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(study_key) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("preparing import statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		// SQLite integers are signed; the hash is stored reinterpreted.
		if _, err := stmt.ExecContext(ctx,
			r.Accession, r.Title, r.Trait, r.MappedTrait, r.Author, r.Journal,
			r.PublicationDate, r.SampleSizeText, r.ReplicationText, r.PValueText,
			r.LogPValueText, r.EffectSizeText, r.EffectTypeHint, r.RiskAlleleText,
			r.SNPListText, r.RiskFreqText, r.Genes, int64(r.ID()),
		); err != nil {
			return fmt.Errorf("importing study %s: %w", r.Accession, err)
		}
	}

	return tx.Commit()
}

// FetchBatch returns one page of raw study records in stable id order
func (s *SQLiteSource) FetchBatch(ctx context.Context, filters domain.StudyFilters, offset, limit int) ([]domain.RawStudyRecord, error) {
	where, args := buildWhereSQLite(filters)
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM studies %s ORDER BY id LIMIT ? OFFSET ?`,
		strings.ReplaceAll(studyColumns, "\n", " "), where,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
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
	return records, rows.Err()
}

// Count returns the number of studies matching the pushed-down predicates
func (s *SQLiteSource) Count(ctx context.Context, filters domain.StudyFilters) (int64, error) {
	where, args := buildWhereSQLite(filters)
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM studies %s`, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting studies: %w", err)
	}
	return count, nil
}

// Close closes the underlying database
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// buildWhereSQLite mirrors buildWhere with ?-placeholders and LIKE, which
// is case-insensitive for ASCII in SQLite.
func buildWhereSQLite(filters domain.StudyFilters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		clauses = append(clauses,
			`(title LIKE ? OR trait LIKE ? OR mapped_trait LIKE ? OR author LIKE ? OR genes LIKE ? OR accession LIKE ?)`)
		for i := 0; i < 6; i++ {
			args = append(args, pattern)
		}
	}
	if filters.Trait != "" {
		clauses = append(clauses, `(LOWER(trait) = LOWER(?) OR LOWER(mapped_trait) = LOWER(?))`)
		args = append(args, filters.Trait, filters.Trait)
	}
	if filters.RequireRiskAllele {
		clauses = append(clauses, `risk_allele_text <> '' AND risk_allele_text <> 'NR' AND risk_allele_text NOT LIKE '%?%'`)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
