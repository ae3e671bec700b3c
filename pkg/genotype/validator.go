package genotype

import "strings"

// IsValid reports whether a genotype string is a real call. No-call and
// placeholder markers from consumer files ("--", "-", "00", empty, or any
// all-dash string) are preserved verbatim by the parser and rejected here.
func IsValid(g string) bool {
	if g == "" || g == "00" {
		return false
	}
	return strings.Trim(g, "-") != ""
}

// CountAllele returns how many copies of the given allele appear in the
// genotype (0, 1 or 2). Comparison is exact per allele position.
func CountAllele(genotype, allele string) int {
	if allele == "" {
		return 0
	}
	count := 0
	for _, base := range genotype {
		if string(base) == allele {
			count++
		}
	}
	return count
}
