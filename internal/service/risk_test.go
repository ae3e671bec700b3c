package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwas-risk-engine/internal/domain"
)

func TestExtractRiskAllele(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"rs7903146-T", "T"},
		{"rs123-A", "A"},
		{"A", "A"},
		{" rs1-G ", "G"},
		{"rs1-?", "?"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractRiskAllele(tt.spec), "spec %q", tt.spec)
	}
}

func TestEffectTypeFromHint(t *testing.T) {
	assert.Equal(t, domain.BETA, EffectTypeFromHint("beta coefficient"))
	assert.Equal(t, domain.BETA, EffectTypeFromHint("Beta (unit increase)"))
	assert.Equal(t, domain.ODDS_RATIO, EffectTypeFromHint("OR"))
	assert.Equal(t, domain.ODDS_RATIO, EffectTypeFromHint(""))
}

func TestComputeRiskScore_OddsRatio(t *testing.T) {
	tests := []struct {
		name      string
		genotype  string
		spec      string
		effect    string
		wantScore float64
		wantLevel domain.RiskLevel
	}{
		{
			name:      "homozygous carrier squares the odds ratio",
			genotype:  "AA",
			spec:      "rs1-A",
			effect:    "2.0",
			wantScore: 4.0,
			wantLevel: domain.INCREASED,
		},
		{
			name:      "heterozygous carrier",
			genotype:  "AG",
			spec:      "rs1-A",
			effect:    "1.5",
			wantScore: 1.5,
			wantLevel: domain.INCREASED,
		},
		{
			name:      "non-carrier is neutral even for protective alleles",
			genotype:  "GG",
			spec:      "rs1-A",
			effect:    "0.5",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
		{
			name:      "protective carrier is decreased",
			genotype:  "AA",
			spec:      "rs1-A",
			effect:    "0.8",
			wantScore: 0.64,
			wantLevel: domain.DECREASED,
		},
		{
			name:      "strongly protective score clamps at the floor",
			genotype:  "AA",
			spec:      "rs1-A",
			effect:    "0.2",
			wantScore: 0.1,
			wantLevel: domain.DECREASED,
		},
		{
			name:      "odds ratio of one is neutral",
			genotype:  "AA",
			spec:      "rs1-A",
			effect:    "1.0",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
		{
			name:      "unparsable effect is neutral",
			genotype:  "AA",
			spec:      "rs1-A",
			effect:    "NR",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
		{
			name:      "invalid genotype is neutral",
			genotype:  "--",
			spec:      "rs1-A",
			effect:    "2.0",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := ComputeRiskScore(tt.genotype, tt.spec, tt.effect, domain.ODDS_RATIO)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestComputeRiskScore_Beta(t *testing.T) {
	tests := []struct {
		name      string
		genotype  string
		spec      string
		effect    string
		wantScore float64
		wantLevel domain.RiskLevel
	}{
		{
			name:      "positive beta scales with allele count",
			genotype:  "TT",
			spec:      "rs1-T",
			effect:    "0.25",
			wantScore: 1.5,
			wantLevel: domain.INCREASED,
		},
		{
			name:      "negative beta decreases",
			genotype:  "TC",
			spec:      "rs1-T",
			effect:    "-0.3",
			wantScore: 0.7,
			wantLevel: domain.DECREASED,
		},
		{
			name:      "non-carrier is neutral",
			genotype:  "CC",
			spec:      "rs1-T",
			effect:    "0.5",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
		{
			name:      "zero beta is neutral",
			genotype:  "TT",
			spec:      "rs1-T",
			effect:    "0",
			wantScore: 1.0,
			wantLevel: domain.NEUTRAL,
		},
		{
			name:      "large negative beta clamps at the floor",
			genotype:  "TT",
			spec:      "rs1-T",
			effect:    "-0.8",
			wantScore: 0.1,
			wantLevel: domain.DECREASED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := ComputeRiskScore(tt.genotype, tt.spec, tt.effect, domain.BETA)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestScoreStudy(t *testing.T) {
	raw := &domain.RawStudyRecord{
		Accession:      "GCST000123",
		Trait:          "Type 2 diabetes",
		EffectSizeText: "1.4",
		EffectTypeHint: "",
		RiskAlleleText: "rs7903146-T",
		SNPListText:    "rs7903146",
	}

	result := ScoreStudy(raw, "rs7903146", "TT")
	require.NotNil(t, result)

	assert.Equal(t, raw.ID(), result.StudyID)
	assert.Equal(t, "GCST000123", result.Accession)
	assert.Equal(t, "Type 2 diabetes", result.Trait)
	assert.Equal(t, "rs7903146", result.MatchedSNP)
	assert.Equal(t, "TT", result.UserGenotype)
	assert.Equal(t, "T", result.RiskAllele)
	assert.Equal(t, 1.4, result.EffectSize)
	assert.Equal(t, domain.ODDS_RATIO, result.EffectType)
	assert.InDelta(t, 1.96, result.RiskScore, 1e-9)
	assert.Equal(t, domain.INCREASED, result.RiskLevel)
}

func TestScoreStudy_MappedTraitFallback(t *testing.T) {
	raw := &domain.RawStudyRecord{
		MappedTrait:    "body mass index",
		EffectSizeText: "0.1",
		EffectTypeHint: "beta",
		RiskAlleleText: "rs1-A",
	}

	result := ScoreStudy(raw, "rs1", "AG")
	assert.Equal(t, "body mass index", result.Trait)
	assert.Equal(t, domain.BETA, result.EffectType)
	assert.InDelta(t, 1.1, result.RiskScore, 1e-9)
}
