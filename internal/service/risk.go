package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/gwas-risk-engine/internal/domain"
	"github.com/gwas-risk-engine/pkg/genotype"
)

// scoreFloor is the display clamp: no computed score is reported below it
const scoreFloor = 0.1

// ExtractRiskAllele returns the tested allele from a risk-allele
// specification: the trailing token after the last '-' ("rs123-A" yields
// "A"). A specification without a separator is returned as-is.
func ExtractRiskAllele(spec string) string {
	spec = strings.TrimSpace(spec)
	if i := strings.LastIndex(spec, "-"); i >= 0 {
		return strings.TrimSpace(spec[i+1:])
	}
	return spec
}

// EffectTypeFromHint maps the catalog's effect-type hint text onto an
// EffectType. Anything not explicitly marked as a beta coefficient is
// treated as an odds ratio, which is how the catalog reports by default.
func EffectTypeFromHint(hint string) domain.EffectType {
	if strings.Contains(strings.ToLower(hint), "beta") {
		return domain.BETA
	}
	return domain.ODDS_RATIO
}

// ComputeRiskScore scores one matched genotype against a study's reported
// effect.
//
// Odds-ratio semantics: non-carriers are always the neutral reference at
// 1.0 regardless of effect direction; carriers get OR^count, classified by
// whether the OR is protective (<1) or risk-increasing (>1).
//
// Beta semantics: 1 + beta*count, a display convenience on the trait's own
// scale, not a multiplicative risk ratio.
//
// Unparsable effect sizes and invalid genotypes fall back to a neutral 1.0
// (call sites are expected to exclude invalid genotypes from matching; the
// fallback covers the ones that do not pre-filter). The final score is
// clamped to a floor of 0.1 on every branch.
func ComputeRiskScore(userGenotype, riskAlleleSpec, effectSizeText string, effectType domain.EffectType) (float64, domain.RiskLevel) {
	effect, err := strconv.ParseFloat(strings.TrimSpace(effectSizeText), 64)
	if err != nil || math.IsNaN(effect) || math.IsInf(effect, 0) {
		return 1.0, domain.NEUTRAL
	}
	if !genotype.IsValid(userGenotype) {
		return 1.0, domain.NEUTRAL
	}

	allele := ExtractRiskAllele(riskAlleleSpec)
	count := genotype.CountAllele(userGenotype, allele)

	var score float64
	var level domain.RiskLevel

	switch effectType {
	case domain.BETA:
		score = 1.0 + effect*float64(count)
		switch {
		case count == 0 || effect == 0:
			level = domain.NEUTRAL
		case effect > 0:
			level = domain.INCREASED
		default:
			level = domain.DECREASED
		}

	default: // odds ratio
		if count == 0 || effect == 1.0 {
			return 1.0, domain.NEUTRAL
		}
		score = math.Pow(effect, float64(count))
		if effect < 1.0 {
			level = domain.DECREASED
		} else {
			level = domain.INCREASED
		}
	}

	if score < scoreFloor {
		score = scoreFloor
	}
	return score, level
}

// ScoreStudy builds a MatchResult for a study against one matched SNP
func ScoreStudy(raw *domain.RawStudyRecord, matchedSNP, userGenotype string) *domain.MatchResult {
	effectType := EffectTypeFromHint(raw.EffectTypeHint)
	score, level := ComputeRiskScore(userGenotype, raw.RiskAlleleText, raw.EffectSizeText, effectType)

	effect, _ := strconv.ParseFloat(strings.TrimSpace(raw.EffectSizeText), 64)

	trait := raw.Trait
	if trait == "" {
		trait = raw.MappedTrait
	}

	return &domain.MatchResult{
		StudyID:      raw.ID(),
		Accession:    raw.Accession,
		Trait:        trait,
		MatchedSNP:   matchedSNP,
		UserGenotype: userGenotype,
		RiskAllele:   ExtractRiskAllele(raw.RiskAlleleText),
		EffectSize:   effect,
		EffectType:   effectType,
		RiskScore:    score,
		RiskLevel:    level,
	}
}
