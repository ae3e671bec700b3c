package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gwas-risk-engine/internal/domain"
)

// ScanResult is the outcome of one bulk scan run
type ScanResult struct {
	ScanID           string               `json:"scan_id"`
	Matches          []domain.MatchResult `json:"matches"`
	StudiesProcessed int64                `json:"studies_processed"`
	StudiesMatched   int64                `json:"studies_matched"`
	BatchesFetched   int                  `json:"batches_fetched"`
	Elapsed          time.Duration        `json:"elapsed"`
	Cancelled        bool                 `json:"cancelled"`
}

// Scanner drives genotype matching and risk scoring over an entire catalog
// in bounded-memory batches. One run per genotype session at a time;
// callers serialize or cancel the prior run.
type Scanner struct {
	log              *logrus.Logger
	source           domain.StudySource
	store            domain.MatchStore
	batchSize        int
	progressInterval time.Duration
}

// NewScanner creates a bulk scan orchestrator. store may be nil when the
// caller only wants the in-memory result set.
func NewScanner(logger *logrus.Logger, source domain.StudySource, store domain.MatchStore, cfg domain.ScanConfig) *Scanner {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10000
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Scanner{
		log:              logger,
		source:           source,
		store:            store,
		batchSize:        batchSize,
		progressInterval: interval,
	}
}

// Run scans every study matching filters against the genotype, producing a
// result set deduplicated by study identity. Each matched study is scored
// once, against its first matching SNP only, which bounds output size and
// keeps one study from contributing twice to a trait.
//
// Cancellation is cooperative: the context is checked between batches, a
// started batch always completes, and cancellation returns the partial
// result set without error. Source failures are fatal for the run.
// scanID may be empty, in which case one is generated; async callers pass
// their own so progress events correlate with the handle they returned.
func (s *Scanner) Run(ctx context.Context, scanID string, genotypes domain.GenotypeMap, filters domain.StudyFilters, sink domain.ProgressSink) (*ScanResult, error) {
	if len(genotypes) == 0 {
		return nil, domain.ErrNoGenotype
	}
	if scanID == "" {
		scanID = uuid.NewString()
	}

	start := time.Now()
	result := &ScanResult{ScanID: scanID}

	var totalStudies int64

	// Time-based throttle so a progress observer is not flooded per-record.
	limiter := rate.NewLimiter(rate.Every(s.progressInterval), 1)
	publish := func(state domain.ScanState, errMsg string, force bool) {
		if sink == nil || (!force && !limiter.Allow()) {
			return
		}
		sink.Publish(domain.ScanProgress{
			ScanID:           result.ScanID,
			State:            state,
			BatchesFetched:   result.BatchesFetched,
			StudiesProcessed: result.StudiesProcessed,
			StudiesMatched:   result.StudiesMatched,
			TotalStudies:     totalStudies,
			Elapsed:          time.Since(start),
			Error:            errMsg,
		})
	}

	totalStudies, err := s.source.Count(ctx, filters)
	if err != nil {
		publish(domain.ScanError, err.Error(), true)
		return nil, fmt.Errorf("counting catalog studies: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"scan_id":    result.ScanID,
		"total":      totalStudies,
		"batch_size": s.batchSize,
		"snps":       len(genotypes),
	}).Info("Bulk scan started")

	seen := make(map[uint64]struct{})
	offset := 0

	for {
		// Abort check at batch boundary; a batch in flight always finishes.
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		publish(domain.ScanFetching, "", false)
		batch, err := s.source.FetchBatch(ctx, filters, offset, s.batchSize)
		if err != nil {
			publish(domain.ScanError, err.Error(), true)
			return nil, fmt.Errorf("fetching catalog batch at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			break
		}
		result.BatchesFetched++
		offset += len(batch)

		publish(domain.ScanAnalyzing, "", false)
		for i := range batch {
			raw := &batch[i]
			result.StudiesProcessed++

			if raw.SNPListText == "" || raw.RiskAlleleText == "" || raw.EffectSizeText == "" {
				continue
			}
			id := raw.ID()
			if _, dup := seen[id]; dup {
				continue
			}
			matched := Matches(genotypes, raw.SNPListText)
			if len(matched) == 0 {
				continue
			}

			match := ScoreStudy(raw, matched[0], genotypes[matched[0]])
			seen[id] = struct{}{}
			result.Matches = append(result.Matches, *match)
			result.StudiesMatched++

			if s.store != nil {
				if err := s.store.Put(ctx, match); err != nil {
					publish(domain.ScanError, err.Error(), true)
					return nil, fmt.Errorf("storing match for study %d: %w", id, err)
				}
			}
		}
	}

	result.Elapsed = time.Since(start)
	publish(domain.ScanComplete, "", true)

	s.log.WithFields(logrus.Fields{
		"scan_id":   result.ScanID,
		"processed": result.StudiesProcessed,
		"matched":   result.StudiesMatched,
		"batches":   result.BatchesFetched,
		"elapsed":   result.Elapsed,
		"cancelled": result.Cancelled,
	}).Info("Bulk scan finished")

	return result, nil
}
