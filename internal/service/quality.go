package service

import (
	"github.com/gwas-risk-engine/internal/domain"
)

// Threshold constants for the quality heuristic. These mirror the
// genome-wide significance conventions the catalog itself reports against.
const (
	verySmallCohort    = 500
	smallCohort        = 1000
	mediumCohort       = 2000
	largeCohort        = 5000
	genomeWideSig      = 5e-8
	marginalSig        = 5e-7
	mediumPValueCeil   = 1e-6
	highPValueCeil     = 5e-9
	weakLogP           = 6
	mediumLogP         = 7
	highLogP           = 9
)

// Classify derives the severity-tagged quality flags and the confidence
// band for a study from its normalized statistics. The band is a pure
// function of its inputs; it is a display heuristic, not a validated
// statistical score.
func Classify(sampleSize *int64, pValue, logPValue *float64) ([]domain.QualityFlag, domain.ConfidenceBand) {
	flags := buildFlags(sampleSize, pValue, logPValue)

	// Major flags are hard overrides: data-quality problems outrank
	// marginal statistical strength.
	for _, f := range flags {
		if f.Severity == domain.MAJOR {
			return flags, domain.LOW_CONFIDENCE
		}
	}

	if sampleSize != nil && *sampleSize >= largeCohort &&
		logPValue != nil && *logPValue >= highLogP &&
		(pValue == nil || *pValue <= highPValueCeil) {
		return flags, domain.HIGH_CONFIDENCE
	}

	if ((sampleSize != nil && *sampleSize >= mediumCohort) ||
		(logPValue != nil && *logPValue >= mediumLogP)) &&
		(pValue == nil || *pValue <= mediumPValueCeil) {
		return flags, domain.MEDIUM_CONFIDENCE
	}

	return flags, domain.LOW_CONFIDENCE
}

func buildFlags(sampleSize *int64, pValue, logPValue *float64) []domain.QualityFlag {
	var flags []domain.QualityFlag

	if sampleSize != nil {
		switch {
		case *sampleSize < verySmallCohort:
			flags = append(flags, domain.QualityFlag{
				Message:  "very small discovery cohort",
				Severity: domain.MAJOR,
			})
		case *sampleSize < smallCohort:
			flags = append(flags, domain.QualityFlag{
				Message:  "small discovery cohort",
				Severity: domain.MINOR,
			})
		}
	}

	if pValue != nil {
		switch {
		case *pValue > marginalSig:
			flags = append(flags, domain.QualityFlag{
				Message:  "well above genome-wide significance",
				Severity: domain.MAJOR,
			})
		case *pValue > genomeWideSig:
			flags = append(flags, domain.QualityFlag{
				Message:  "above genome-wide significance",
				Severity: domain.MINOR,
			})
		}
	}

	if logPValue != nil && *logPValue < weakLogP {
		flags = append(flags, domain.QualityFlag{
			Message:  "weak association signal",
			Severity: domain.MINOR,
		})
	}

	return flags
}
