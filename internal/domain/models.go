package domain

import (
	"hash/fnv"
	"time"
)

// Core Enums and Types

// ConfidenceBand represents the heuristic tri-level quality classification
// of a study. It is not a statistical confidence interval.
type ConfidenceBand string

const (
	HIGH_CONFIDENCE   ConfidenceBand = "HIGH"
	MEDIUM_CONFIDENCE ConfidenceBand = "MEDIUM"
	LOW_CONFIDENCE    ConfidenceBand = "LOW"
)

// FlagSeverity represents the severity of a quality flag
type FlagSeverity string

const (
	MAJOR FlagSeverity = "MAJOR"
	MINOR FlagSeverity = "MINOR"
)

// EffectType represents how a study reports its effect size
type EffectType string

const (
	ODDS_RATIO EffectType = "OR"
	BETA       EffectType = "BETA"
)

// RiskLevel represents the directional classification of a risk score
type RiskLevel string

const (
	INCREASED RiskLevel = "INCREASED"
	DECREASED RiskLevel = "DECREASED"
	NEUTRAL   RiskLevel = "NEUTRAL"
)

// SortKey represents the available study sort orders
type SortKey string

const (
	SortRelevance    SortKey = "relevance"
	SortPower        SortKey = "power"
	SortRecent       SortKey = "recent"
	SortAlphabetical SortKey = "alphabetical"
)

// SortDirection represents comparator direction
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ScanState represents the bulk scan state machine
type ScanState string

const (
	ScanFetching  ScanState = "FETCHING"
	ScanAnalyzing ScanState = "ANALYZING"
	ScanComplete  ScanState = "COMPLETE"
	ScanError     ScanState = "ERROR"
)

// Core Data Models

// RawStudyRecord is one catalog entry as sourced externally. Every field is
// optional free text; an empty string means the source did not report it.
type RawStudyRecord struct {
	Accession       string `json:"accession"`
	Title           string `json:"title,omitempty"`
	Trait           string `json:"trait,omitempty"`
	MappedTrait     string `json:"mapped_trait,omitempty"`
	Author          string `json:"author,omitempty"`
	Journal         string `json:"journal,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	SampleSizeText  string `json:"sample_size_text,omitempty"`
	ReplicationText string `json:"replication_text,omitempty"`
	PValueText      string `json:"p_value_text,omitempty"`
	LogPValueText   string `json:"log_p_value_text,omitempty"`
	EffectSizeText  string `json:"effect_size_text,omitempty"`
	EffectTypeHint  string `json:"effect_type_hint,omitempty"`
	RiskAlleleText  string `json:"risk_allele_text,omitempty"`
	SNPListText     string `json:"snp_list_text,omitempty"`
	RiskFreqText    string `json:"risk_freq_text,omitempty"`
	Genes           string `json:"genes,omitempty"`
}

// ID returns the stable study identity: a 64-bit FNV-1a hash over the
// composite of accession, SNP list, risk allele, p-value and effect size.
// Deterministic across runs; collisions are a documented, undetected risk.
func (r *RawStudyRecord) ID() uint64 {
	h := fnv.New64a()
	for _, field := range []string{r.Accession, r.SNPListText, r.RiskAlleleText, r.PValueText, r.EffectSizeText} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// QualityFlag is one severity-tagged data-quality annotation on a study
type QualityFlag struct {
	Message  string       `json:"message"`
	Severity FlagSeverity `json:"severity"`
}

// NormalizedStudy is a RawStudyRecord plus its parsed numeric fields and the
// derived quality classification. Built once per query batch, then read-only.
type NormalizedStudy struct {
	RawStudyRecord

	SampleSize       *int64         `json:"sample_size"`
	PValue           *float64       `json:"p_value"`
	LogPValue        *float64       `json:"log_p_value"`
	PublicationMilli *int64         `json:"publication_timestamp"`
	QualityFlags     []QualityFlag  `json:"quality_flags"`
	Confidence       ConfidenceBand `json:"confidence_band"`
}

// GenotypeMap maps rsID to a two-character allele pair (e.g. "AG").
// Built wholesale from an uploaded file; never partially mutated.
type GenotypeMap map[string]string

// MatchResult is one scored overlap between a study and the user genotype
type MatchResult struct {
	StudyID      uint64     `json:"study_id"`
	Accession    string     `json:"accession,omitempty"`
	Trait        string     `json:"trait,omitempty"`
	MatchedSNP   string     `json:"matched_snp"`
	UserGenotype string     `json:"user_genotype"`
	RiskAllele   string     `json:"risk_allele"`
	EffectSize   float64    `json:"effect_size"`
	EffectType   EffectType `json:"effect_type"`
	RiskScore    float64    `json:"risk_score"`
	RiskLevel    RiskLevel  `json:"risk_level"`
}

// StudyFilters holds the independently toggleable, AND-combined predicates
// applied by the filter pipeline and pushed down to study sources where cheap.
type StudyFilters struct {
	Search            string         `json:"search,omitempty"`
	Trait             string         `json:"trait,omitempty"`
	MinSampleSize     *int64         `json:"min_sample_size,omitempty"`
	MaxPValue         *float64       `json:"max_p_value,omitempty"`
	MinLogPValue      *float64       `json:"min_log_p_value,omitempty"`
	ExcludeLowQuality bool           `json:"exclude_low_quality,omitempty"`
	RequireRiskAllele bool           `json:"require_risk_allele,omitempty"`
	Confidence        ConfidenceBand `json:"confidence,omitempty"`
}

// SortSpec selects a sort key and direction for the pipeline
type SortSpec struct {
	Key       SortKey       `json:"key"`
	Direction SortDirection `json:"direction"`
}

// ScanProgress is one progress event emitted by the bulk scan orchestrator
type ScanProgress struct {
	ScanID           string        `json:"scan_id"`
	State            ScanState     `json:"state"`
	BatchesFetched   int           `json:"batches_fetched"`
	StudiesProcessed int64         `json:"studies_processed"`
	StudiesMatched   int64         `json:"studies_matched"`
	TotalStudies     int64         `json:"total_studies"`
	Elapsed          time.Duration `json:"elapsed"`
	Error            string        `json:"error,omitempty"`
}

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Session  SessionConfig  `mapstructure:"session"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// DatabaseConfig represents the Postgres catalog connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CatalogConfig selects and tunes the study source backend
type CatalogConfig struct {
	Backend      string `mapstructure:"backend"` // "postgres" or "sqlite"
	SQLitePath   string `mapstructure:"sqlite_path"`
	SNPCacheSize int    `mapstructure:"snp_cache_size"`
	PageSize     int    `mapstructure:"page_size"`
}

// SessionConfig tunes genotype session storage
type SessionConfig struct {
	Backend     string        `mapstructure:"backend"` // "memory" or "redis"
	RedisURL    string        `mapstructure:"redis_url"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// ScanConfig tunes the bulk scan orchestrator
type ScanConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	ResultsPath      string        `mapstructure:"results_path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
