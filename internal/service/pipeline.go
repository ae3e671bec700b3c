package service

import (
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/domain"
)

// QueryResult is the outcome of one filter/sort pass. Studies holds the
// complete filtered and sorted set; Total is its size and Shown the page
// size the caller should truncate to. Callers report both so "total
// filtered" and "total returned" stay distinguishable.
type QueryResult struct {
	Studies []domain.NormalizedStudy `json:"studies"`
	Total   int                      `json:"total"`
	Shown   int                      `json:"shown"`
}

// Pipeline applies the user-facing filter predicates and sort orders over
// batches of classified studies. It owns a bounded SNP-parse memoization
// cache shared with callers that annotate results against a genotype.
type Pipeline struct {
	log      *logrus.Logger
	snpCache *lru.Cache[string, []string]
	pageSize int
}

// NewPipeline creates a filter/sort pipeline. cacheSize bounds the SNP
// parse memoization cache; pageSize is the default shown count.
func NewPipeline(logger *logrus.Logger, cacheSize, pageSize int) (*Pipeline, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		log:      logger,
		snpCache: cache,
		pageSize: pageSize,
	}, nil
}

// Apply filters and sorts a batch of normalized studies. All enabled
// predicates are AND-combined; ties keep input order.
func (p *Pipeline) Apply(studies []domain.NormalizedStudy, filters domain.StudyFilters, spec domain.SortSpec) QueryResult {
	filtered := make([]domain.NormalizedStudy, 0, len(studies))
	for _, s := range studies {
		if p.matches(&s, &filters) {
			filtered = append(filtered, s)
		}
	}

	p.sortStudies(filtered, spec)

	shown := p.pageSize
	if shown > len(filtered) {
		shown = len(filtered)
	}

	p.log.WithFields(logrus.Fields{
		"input":    len(studies),
		"filtered": len(filtered),
		"shown":    shown,
		"sort":     spec.Key,
	}).Debug("Pipeline pass completed")

	return QueryResult{Studies: filtered, Total: len(filtered), Shown: shown}
}

// CachedSNPs returns the parsed SNP list for a raw catalog field, memoized
// in the bounded LRU cache.
func (p *Pipeline) CachedSNPs(rawSNPText string) []string {
	if snps, ok := p.snpCache.Get(rawSNPText); ok {
		return snps
	}
	snps := ParseSNPList(rawSNPText)
	p.snpCache.Add(rawSNPText, snps)
	return snps
}

// MatchesGenotype reports SNP overlap using the memoized parse
func (p *Pipeline) MatchesGenotype(genotypes domain.GenotypeMap, rawSNPText string) bool {
	if len(genotypes) == 0 {
		return false
	}
	for _, snp := range p.CachedSNPs(rawSNPText) {
		if _, ok := genotypes[snp]; ok {
			return true
		}
	}
	return false
}

func (p *Pipeline) matches(s *domain.NormalizedStudy, f *domain.StudyFilters) bool {
	if f.Search != "" && !matchesSearch(s, f.Search) {
		return false
	}
	if f.Trait != "" &&
		!strings.EqualFold(s.Trait, f.Trait) && !strings.EqualFold(s.MappedTrait, f.Trait) {
		return false
	}
	// Numeric filters require the field: records missing it fail when the
	// filter is set.
	if f.MinSampleSize != nil && (s.SampleSize == nil || *s.SampleSize < *f.MinSampleSize) {
		return false
	}
	if f.MaxPValue != nil && (s.PValue == nil || *s.PValue > *f.MaxPValue) {
		return false
	}
	if f.MinLogPValue != nil && (s.LogPValue == nil || *s.LogPValue < *f.MinLogPValue) {
		return false
	}
	// Low quality means the low confidence band, i.e. any major flag.
	// Minor-flag-only records survive this toggle.
	if f.ExcludeLowQuality && s.Confidence == domain.LOW_CONFIDENCE {
		return false
	}
	if f.RequireRiskAllele && missingRiskAllele(s.RiskAlleleText) {
		return false
	}
	if f.Confidence != "" && s.Confidence != f.Confidence {
		return false
	}
	return true
}

func matchesSearch(s *domain.NormalizedStudy, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{s.Title, s.Trait, s.MappedTrait, s.Author, s.Genes, s.Accession} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func missingRiskAllele(raw string) bool {
	t := strings.TrimSpace(raw)
	return t == "" || t == "NR" || strings.Contains(t, "?")
}

func (p *Pipeline) sortStudies(studies []domain.NormalizedStudy, spec domain.SortSpec) {
	dir := 1
	switch spec.Direction {
	case domain.Ascending:
		dir = 1
	case domain.Descending:
		dir = -1
	default:
		// Statistic sorts default to best-first; titles default A-Z.
		if spec.Key != domain.SortAlphabetical {
			dir = -1
		}
	}

	sort.SliceStable(studies, func(i, j int) bool {
		a, b := &studies[i], &studies[j]
		switch spec.Key {
		case domain.SortPower:
			return cmpInt64(orZero(a.SampleSize), orZero(b.SampleSize))*dir < 0
		case domain.SortRecent:
			// Undated records sort last regardless of direction.
			if a.PublicationMilli == nil {
				return false
			}
			if b.PublicationMilli == nil {
				return true
			}
			return cmpInt64(*a.PublicationMilli, *b.PublicationMilli)*dir < 0
		case domain.SortAlphabetical:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))*dir < 0
		default: // relevance
			return cmpFloat(orNegInf(a.LogPValue), orNegInf(b.LogPValue))*dir < 0
		}
	})
}

func orZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func orNegInf(v *float64) float64 {
	if v == nil {
		return math.Inf(-1)
	}
	return *v
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
