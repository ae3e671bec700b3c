package genotype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_WhitespaceFormat(t *testing.T) {
	input := `# This data file generated by a consumer genetics service
# rsid	chromosome	position	genotype
rs4477212	1	82154	AA
rs3094315	1	752566	AG
rs12562034	1	768448	--
`

	genotypes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, genotypes, 3)
	assert.Equal(t, "AA", genotypes["rs4477212"])
	assert.Equal(t, "AG", genotypes["rs3094315"])
	assert.Equal(t, "--", genotypes["rs12562034"], "no-call markers are preserved")
}

func TestParse_CommaFormat(t *testing.T) {
	input := `RSID,CHROMOSOME,POSITION,RESULT
rs4477212,1,82154,AA
rs3094315,1,752566,GG
`

	genotypes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, genotypes, 2)
	assert.Equal(t, "AA", genotypes["rs4477212"])
	assert.Equal(t, "GG", genotypes["rs3094315"])
	assert.NotContains(t, genotypes, "RSID", "header row is skipped")
}

func TestParse_CommaFormatSplitAlleles(t *testing.T) {
	input := `rsid,chromosome,position,allele1,allele2
rs4477212,1,82154,A,A
rs3094315,1,752566,A,G
`

	genotypes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "AA", genotypes["rs4477212"])
	assert.Equal(t, "AG", genotypes["rs3094315"])
}

func TestParse_LaterRowsOverwrite(t *testing.T) {
	input := `rs1	1	100	AA
rs1	1	100	AG
`

	genotypes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "AG", genotypes["rs1"])
}

func TestParse_SkipsShortAndBlankLines(t *testing.T) {
	input := `# comment

rs1	1	100
rs2	1	200	CC
`

	genotypes, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, genotypes, 1)
	assert.Equal(t, "CC", genotypes["rs2"])
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader("# only comments\n"))
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		genotype string
		want     bool
	}{
		{"AA", true},
		{"AG", true},
		{"A", true},
		{"", false},
		{"--", false},
		{"-", false},
		{"00", false},
		{"---", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValid(tt.genotype), "genotype %q", tt.genotype)
	}
}

func TestCountAllele(t *testing.T) {
	tests := []struct {
		genotype string
		allele   string
		want     int
	}{
		{"AA", "A", 2},
		{"AG", "A", 1},
		{"GG", "A", 0},
		{"AG", "G", 1},
		{"AA", "", 0},
		{"--", "A", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CountAllele(tt.genotype, tt.allele),
			"genotype %q allele %q", tt.genotype, tt.allele)
	}
}
