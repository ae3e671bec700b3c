package domain

import (
	"context"
)

// StudySource streams raw catalog records in pages. Implementations are
// backed by any queryable store; filters may be partially pushed down, the
// pipeline re-applies the full predicate set in memory.
type StudySource interface {
	FetchBatch(ctx context.Context, filters StudyFilters, offset, limit int) ([]RawStudyRecord, error)
	Count(ctx context.Context, filters StudyFilters) (int64, error)
}

// GenotypeStore holds one GenotypeMap per browsing session. Maps are
// replaced wholesale on upload and removed on explicit clear or expiry.
type GenotypeStore interface {
	Put(ctx context.Context, sessionID string, genotype GenotypeMap) error
	Get(ctx context.Context, sessionID string) (GenotypeMap, error)
	Delete(ctx context.Context, sessionID string) error
}

// MatchStore persists the last-known MatchResult per study. Reinserting an
// existing study ID overwrites the prior record.
type MatchStore interface {
	Put(ctx context.Context, result *MatchResult) error
	Get(ctx context.Context, studyID uint64) (*MatchResult, error)
	List(ctx context.Context, limit, offset int) ([]*MatchResult, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// ProgressSink receives orchestrator progress events. Publish must not
// block scan progress; slow consumers should drop events.
type ProgressSink interface {
	Publish(progress ScanProgress)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
}
