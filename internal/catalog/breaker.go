package catalog

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/gwas-risk-engine/internal/domain"
)

// BreakerSource wraps a StudySource with a circuit breaker. A bulk scan
// issues tens of page fetches back to back; once the backing store starts
// failing, the breaker fails the remaining fetches fast instead of holding
// the scan open against a dead source.
type BreakerSource struct {
	inner   domain.StudySource
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewBreakerSource wraps a study source with circuit breaker protection
func NewBreakerSource(inner domain.StudySource, logger *logrus.Logger) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        "study-source",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Study source circuit breaker state changed")
		},
	}

	return &BreakerSource{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     logger,
	}
}

// FetchBatch fetches one page through the breaker
func (b *BreakerSource) FetchBatch(ctx context.Context, filters domain.StudyFilters, offset, limit int) ([]domain.RawStudyRecord, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.FetchBatch(ctx, filters, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawStudyRecord), nil
}

// Count counts matching studies through the breaker
func (b *BreakerSource) Count(ctx context.Context, filters domain.StudyFilters) (int64, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Count(ctx, filters)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}
