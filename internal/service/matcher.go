package service

import (
	"regexp"

	"github.com/gwas-risk-engine/internal/domain"
	"github.com/gwas-risk-engine/pkg/genotype"
)

// snpDelimRe splits catalog SNP lists, which mix semicolons, commas and
// whitespace runs as delimiters.
var snpDelimRe = regexp.MustCompile(`[;,\s]+`)

// ParseSNPList splits a raw catalog SNP field into trimmed rsIDs, dropping
// empty tokens.
func ParseSNPList(raw string) []string {
	parts := snpDelimRe.Split(raw, -1)
	snps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			snps = append(snps, p)
		}
	}
	return snps
}

// Matches returns the parsed SNPs present in the genotype map with a
// callable genotype. Matching is exact rsID equality: both the catalog and
// the supported genotype file formats are forward-strand, so
// complement-strand normalization would only manufacture false positives.
func Matches(genotypes domain.GenotypeMap, rawSNPText string) []string {
	var matched []string
	for _, snp := range ParseSNPList(rawSNPText) {
		if g, ok := genotypes[snp]; ok && genotype.IsValid(g) {
			matched = append(matched, snp)
		}
	}
	return matched
}

// HasAnyMatch reports whether any SNP in the raw list has a callable
// genotype entry. Cheap pre-filter used before scoring work.
func HasAnyMatch(genotypes domain.GenotypeMap, rawSNPText string) bool {
	for _, snp := range ParseSNPList(rawSNPText) {
		if g, ok := genotypes[snp]; ok && genotype.IsValid(g) {
			return true
		}
	}
	return false
}
