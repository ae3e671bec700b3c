package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gwas-risk-engine/internal/domain"
)

func TestParseSNPList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "empty",
			raw:  "",
			want: []string{},
		},
		{
			name: "single id",
			raw:  "rs7903146",
			want: []string{"rs7903146"},
		},
		{
			name: "mixed delimiters",
			raw:  "rs1; rs2,rs3  rs4",
			want: []string{"rs1", "rs2", "rs3", "rs4"},
		},
		{
			name: "leading and trailing delimiters",
			raw:  "; rs1, rs2 ;",
			want: []string{"rs1", "rs2"},
		},
		{
			name: "delimiter runs collapse",
			raw:  "rs1;;  ,, rs2",
			want: []string{"rs1", "rs2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSNPList(tt.raw))
		})
	}
}

func TestMatches(t *testing.T) {
	genotypes := domain.GenotypeMap{
		"rs1": "AG",
		"rs2": "--",
		"rs3": "CC",
	}

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "single exact match",
			raw:  "rs1",
			want: []string{"rs1"},
		},
		{
			name: "no-call genotype is skipped",
			raw:  "rs2",
			want: nil,
		},
		{
			name: "multiple matches preserve list order",
			raw:  "rs3; rs1",
			want: []string{"rs3", "rs1"},
		},
		{
			name: "unknown ids do not match",
			raw:  "rs999",
			want: nil,
		},
		{
			name: "no complement or fuzzy matching",
			raw:  "RS1",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(genotypes, tt.raw))
		})
	}
}

func TestHasAnyMatch(t *testing.T) {
	genotypes := domain.GenotypeMap{"rs1": "AG", "rs2": "--"}

	assert.True(t, HasAnyMatch(genotypes, "rs99; rs1"))
	assert.False(t, HasAnyMatch(genotypes, "rs2"))
	assert.False(t, HasAnyMatch(genotypes, ""))
}
