package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwas-risk-engine/internal/domain"
)

// memorySource serves canned records in batches and optionally cancels the
// context after the first fetch.
type memorySource struct {
	records     []domain.RawStudyRecord
	fetchErr    error
	cancelAfter int
	cancel      context.CancelFunc
	fetchCalls  int
}

func (m *memorySource) FetchBatch(_ context.Context, _ domain.StudyFilters, offset, limit int) ([]domain.RawStudyRecord, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	m.fetchCalls++
	if m.cancel != nil && m.fetchCalls >= m.cancelAfter {
		m.cancel()
	}
	if offset >= len(m.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[offset:end], nil
}

func (m *memorySource) Count(_ context.Context, _ domain.StudyFilters) (int64, error) {
	return int64(len(m.records)), nil
}

// memoryMatchStore is a threadsafe in-memory MatchStore for scan tests
type memoryMatchStore struct {
	mu      sync.Mutex
	matches map[uint64]*domain.MatchResult
}

func newMemoryMatchStore() *memoryMatchStore {
	return &memoryMatchStore{matches: make(map[uint64]*domain.MatchResult)}
}

func (m *memoryMatchStore) Put(_ context.Context, result *domain.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[result.StudyID] = result
	return nil
}

func (m *memoryMatchStore) Get(_ context.Context, studyID uint64) (*domain.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.matches[studyID]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memoryMatchStore) List(_ context.Context, _, _ int) ([]*domain.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.MatchResult, 0, len(m.matches))
	for _, r := range m.matches {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryMatchStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matches)), nil
}

func (m *memoryMatchStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = make(map[uint64]*domain.MatchResult)
	return nil
}

// progressRecorder collects published events in order
type progressRecorder struct {
	mu     sync.Mutex
	events []domain.ScanProgress
}

func (p *progressRecorder) Publish(event domain.ScanProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *progressRecorder) all() []domain.ScanProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ScanProgress(nil), p.events...)
}

func scanTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func scanRecord(accession, snps string) domain.RawStudyRecord {
	return domain.RawStudyRecord{
		Accession:      accession,
		Trait:          "Test trait",
		SNPListText:    snps,
		RiskAlleleText: snps + "-A",
		EffectSizeText: "2.0",
	}
}

func TestScanner_Run(t *testing.T) {
	source := &memorySource{records: []domain.RawStudyRecord{
		scanRecord("GCST1", "rs1"),
		scanRecord("GCST2", "rs2"),
		scanRecord("GCST3", "rs3"),
	}}
	store := newMemoryMatchStore()
	scanner := NewScanner(scanTestLogger(), source, store, domain.ScanConfig{BatchSize: 2})

	genotypes := domain.GenotypeMap{"rs1": "AA", "rs3": "AG"}

	result, err := scanner.Run(context.Background(), "", genotypes, domain.StudyFilters{}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.ScanID)
	assert.Equal(t, int64(3), result.StudiesProcessed)
	assert.Equal(t, int64(2), result.StudiesMatched)
	assert.Equal(t, 2, result.BatchesFetched)
	assert.False(t, result.Cancelled)
	assert.Len(t, result.Matches, 2)

	stored, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored)
}

func TestScanner_Run_EmptyGenotype(t *testing.T) {
	scanner := NewScanner(scanTestLogger(), &memorySource{}, nil, domain.ScanConfig{})

	_, err := scanner.Run(context.Background(), "", nil, domain.StudyFilters{}, nil)
	assert.ErrorIs(t, err, domain.ErrNoGenotype)
}

func TestScanner_Run_SkipsIncompleteRecords(t *testing.T) {
	noSNPs := scanRecord("GCST1", "rs1")
	noSNPs.SNPListText = ""
	noAllele := scanRecord("GCST2", "rs1")
	noAllele.RiskAlleleText = ""
	noEffect := scanRecord("GCST3", "rs1")
	noEffect.EffectSizeText = ""

	source := &memorySource{records: []domain.RawStudyRecord{
		noSNPs, noAllele, noEffect, scanRecord("GCST4", "rs1"),
	}}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{})

	result, err := scanner.Run(context.Background(), "", domain.GenotypeMap{"rs1": "AA"}, domain.StudyFilters{}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.StudiesProcessed)
	assert.Equal(t, int64(1), result.StudiesMatched)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "GCST4", result.Matches[0].Accession)
}

func TestScanner_Run_DeduplicatesByStudyIdentity(t *testing.T) {
	duplicate := scanRecord("GCST1", "rs1")
	source := &memorySource{records: []domain.RawStudyRecord{duplicate, duplicate}}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{})

	result, err := scanner.Run(context.Background(), "", domain.GenotypeMap{"rs1": "AA"}, domain.StudyFilters{}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.StudiesProcessed)
	assert.Equal(t, int64(1), result.StudiesMatched)
	assert.Len(t, result.Matches, 1)
}

func TestScanner_Run_FirstMatchingSNPOnly(t *testing.T) {
	record := scanRecord("GCST1", "rs1; rs2")
	source := &memorySource{records: []domain.RawStudyRecord{record}}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{})

	genotypes := domain.GenotypeMap{"rs1": "AA", "rs2": "AA"}
	result, err := scanner.Run(context.Background(), "", genotypes, domain.StudyFilters{}, nil)
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "rs1", result.Matches[0].MatchedSNP)
}

func TestScanner_Run_CancellationKeepsPartialResults(t *testing.T) {
	records := make([]domain.RawStudyRecord, 0, 6)
	for _, acc := range []string{"GCST1", "GCST2", "GCST3", "GCST4", "GCST5", "GCST6"} {
		r := scanRecord(acc, "rs1")
		r.Title = acc
		records = append(records, r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	source := &memorySource{records: records, cancelAfter: 1, cancel: cancel}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{BatchSize: 2})

	result, err := scanner.Run(ctx, "", domain.GenotypeMap{"rs1": "AA"}, domain.StudyFilters{}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.BatchesFetched)
	assert.Equal(t, int64(2), result.StudiesProcessed)
	assert.Len(t, result.Matches, 2)
}

func TestScanner_Run_SourceFailureIsFatal(t *testing.T) {
	source := &memorySource{fetchErr: errors.New("connection reset")}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{})

	_, err := scanner.Run(context.Background(), "", domain.GenotypeMap{"rs1": "AA"}, domain.StudyFilters{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestScanner_Run_ProgressEvents(t *testing.T) {
	source := &memorySource{records: []domain.RawStudyRecord{scanRecord("GCST1", "rs1")}}
	recorder := &progressRecorder{}
	scanner := NewScanner(scanTestLogger(), source, nil, domain.ScanConfig{})

	result, err := scanner.Run(context.Background(), "scan-abc", domain.GenotypeMap{"rs1": "AA"}, domain.StudyFilters{}, recorder)
	require.NoError(t, err)
	assert.Equal(t, "scan-abc", result.ScanID)

	events := recorder.all()
	require.NotEmpty(t, events)

	final := events[len(events)-1]
	assert.Equal(t, "scan-abc", final.ScanID)
	assert.Equal(t, domain.ScanComplete, final.State)
	assert.Equal(t, int64(1), final.StudiesProcessed)
	assert.Equal(t, int64(1), final.StudiesMatched)
	assert.Equal(t, int64(1), final.TotalStudies)
}
