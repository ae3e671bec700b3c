// Package genotype parses consumer genetic-data exports into an
// rsID-to-allele-pair map and provides the genotype validity predicate used
// downstream. Two textual formats are supported: whitespace-delimited
// four-column files with '#' comment headers, and comma-delimited files
// with a literal header row, where the call is either one joined column or
// split allele1/allele2 columns. No-call markers are preserved verbatim;
// filtering them is the consumer's decision.
package genotype

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads a genotype export and builds the rsID map. The format is
// detected from the first data-carrying line. Later occurrences of an rsID
// overwrite earlier ones, matching how re-exports restate corrected calls.
func Parse(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	genotypes := make(map[string]string)
	delimited := false
	lines := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines++

		if lines == 1 {
			delimited = strings.Contains(line, ",")
			if delimited {
				// Comma format carries a literal header row.
				continue
			}
		}

		var fields []string
		if delimited {
			fields = strings.Split(line, ",")
		} else {
			fields = strings.Fields(line)
		}
		if len(fields) < 4 {
			continue
		}

		rsID := strings.TrimSpace(fields[0])
		call := strings.TrimSpace(fields[3])
		// Five-column exports split the call into allele1/allele2.
		if len(fields) >= 5 {
			call += strings.TrimSpace(fields[4])
		}
		if rsID == "" {
			continue
		}
		genotypes[rsID] = call
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading genotype file: %w", err)
	}
	if len(genotypes) == 0 {
		return nil, fmt.Errorf("no genotype rows found")
	}
	return genotypes, nil
}
