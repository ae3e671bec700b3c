package catalog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwas-risk-engine/internal/domain"
)

type stubSource struct {
	records []domain.RawStudyRecord
	err     error
	calls   int
}

func (s *stubSource) FetchBatch(context.Context, domain.StudyFilters, int, int) ([]domain.RawStudyRecord, error) {
	s.calls++
	return s.records, s.err
}

func (s *stubSource) Count(context.Context, domain.StudyFilters) (int64, error) {
	s.calls++
	return int64(len(s.records)), s.err
}

func breakerTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	inner := &stubSource{records: []domain.RawStudyRecord{{Accession: "GCST1"}}}
	source := NewBreakerSource(inner, breakerTestLogger())

	records, err := source.FetchBatch(context.Background(), domain.StudyFilters{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GCST1", records[0].Accession)

	count, err := source.Count(context.Background(), domain.StudyFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBreakerSource_PropagatesErrors(t *testing.T) {
	inner := &stubSource{err: errors.New("connection refused")}
	source := NewBreakerSource(inner, breakerTestLogger())

	_, err := source.FetchBatch(context.Background(), domain.StudyFilters{}, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBreakerSource_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubSource{err: errors.New("down")}
	source := NewBreakerSource(inner, breakerTestLogger())

	for i := 0; i < 5; i++ {
		_, err := source.Count(context.Background(), domain.StudyFilters{})
		require.Error(t, err)
	}
	callsBeforeOpen := inner.calls

	_, err := source.Count(context.Background(), domain.StudyFilters{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callsBeforeOpen, inner.calls, "open breaker should not reach the source")
}
