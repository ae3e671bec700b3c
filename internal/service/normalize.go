package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/gwas-risk-engine/internal/domain"
)

// Normalizer parses the heterogeneous free-text fields of raw catalog
// records into typed values. Every parse is total: unparsable input yields
// nil, never an error.
type Normalizer struct{}

// NewNormalizer creates a new field normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var (
	digitGroupRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)
	sciNotationRe = regexp.MustCompile(`(?i)^(\d*\.?\d+)\s*[x×*]\s*10\s*\^?\s*[-−]\s*(\d+)$`)
	numericDateRe = regexp.MustCompile(`^(\d{1,2})([/-])(\d{1,2})[/-](\d{1,4})$`)
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+),?\s+(\d{1,4})$`)
	monthDayYearRe = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{1,4})$`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseSampleSize extracts every digit group from a free-text cohort
// description. When all extracted numbers lie within 2% of the maximum
// they are treated as restatements of the same cohort (a pre/post-QC
// figure) and the maximum is returned; otherwise they are treated as
// distinct sub-cohorts and summed. The window is deliberately narrow:
// a replication cohort is routinely within 5% of discovery and must be
// counted, not collapsed.
func (n *Normalizer) ParseSampleSize(text string) *int64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var values []int64
	for _, group := range digitGroupRe.FindAllString(text, -1) {
		v, err := strconv.ParseInt(strings.ReplaceAll(group, ",", ""), 10, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		return &values[0]
	}

	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}

	allSimilar := true
	for _, v := range values {
		if float64(v) < 0.98*float64(max) {
			allSimilar = false
			break
		}
	}
	if allSimilar {
		return &max
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return &sum
}

// ParsePValue parses decimal or scientific notation ("5e-8", "0.05"),
// "N x 10^-M" textual notation, and "< X" inequality notation. Values
// outside (0, 1] or non-finite are invalid and yield nil.
func (n *Normalizer) ParsePValue(text string) *float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	// Inequality notation: parse the bound itself.
	if strings.HasPrefix(s, "<=") {
		return n.ParsePValue(s[2:])
	}
	if strings.HasPrefix(s, "<") {
		return n.ParsePValue(s[1:])
	}

	if m := sciNotationRe.FindStringSubmatch(s); m != nil {
		mantissa, err1 := strconv.ParseFloat(m[1], 64)
		exponent, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return nil
		}
		return validPValue(mantissa * math.Pow(10, -float64(exponent)))
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return validPValue(v)
}

func validPValue(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > 1 {
		return nil
	}
	return &v
}

// ParseLogPValue parses a field already storing -log10(p). When the field
// is absent the value is derived from the p-value text instead. Negative
// results are invalid.
func (n *Normalizer) ParseLogPValue(logText, pValueText string) *float64 {
	s := strings.TrimSpace(logText)
	if s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 {
			return &v
		}
	}

	if p := n.ParsePValue(pValueText); p != nil {
		v := -math.Log10(*p)
		if v < 0 {
			// p == 1 rounds to -0; clamp rather than discard.
			v = 0
		}
		return &v
	}
	return nil
}

// ParsePublicationDate parses a free-text publication date into epoch
// milliseconds at UTC midnight. Tried in order: numeric M/D/Y and M-D-Y
// (month-first, falling back to day-first when the leading number cannot
// be a month), general date-string parse, "D Month Y", and "Month D, Y".
// A candidate that fails calendar round-trip validation is rejected
// rather than shifted.
func (n *Normalizer) ParsePublicationDate(text string) *int64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	// Numeric patterns are matched before the general parser so two-digit
	// years and impossible dates get the pivot and round-trip rules below.
	// Ambiguous numerics resolve month-first, the same way the general
	// parser reads them.
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])
		y = normalizeYear(y)
		if y < 100 {
			return nil
		}
		if ts := utcMidnight(y, time.Month(a), b); ts != nil {
			return ts
		}
		return utcMidnight(y, time.Month(b), a)
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return utcMidnight(t.Year(), t.Month(), t.Day())
	}

	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		if month, ok := lookupMonth(m[2]); ok {
			d, _ := strconv.Atoi(m[1])
			y := normalizeYear(atoi(m[3]))
			if y >= 100 {
				return utcMidnight(y, month, d)
			}
		}
	}

	if m := monthDayYearRe.FindStringSubmatch(s); m != nil {
		if month, ok := lookupMonth(m[1]); ok {
			d, _ := strconv.Atoi(m[2])
			y := normalizeYear(atoi(m[3]))
			if y >= 100 {
				return utcMidnight(y, month, d)
			}
		}
	}

	return nil
}

// normalizeYear applies the two-digit year pivot: <70 is 2000s, >=70 is 1900s
func normalizeYear(y int) int {
	if y < 70 {
		if y >= 0 && y < 100 {
			return 2000 + y
		}
	} else if y < 100 {
		return 1900 + y
	}
	return y
}

// utcMidnight builds a UTC-midnight timestamp, rejecting dates that do not
// round-trip (Feb 30, month 13 and similar are normalized by time.Date,
// which is exactly what must not happen here).
func utcMidnight(year int, month time.Month, day int) *int64 {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func lookupMonth(name string) (time.Month, bool) {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	m, ok := monthsByPrefix[key]
	return m, ok
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// Normalize derives a NormalizedStudy from a raw catalog record. Sample
// size prefers the discovery cohort text and falls back to the replication
// text when the former carries no numbers.
func (n *Normalizer) Normalize(raw domain.RawStudyRecord) domain.NormalizedStudy {
	study := domain.NormalizedStudy{RawStudyRecord: raw}

	study.SampleSize = n.ParseSampleSize(raw.SampleSizeText)
	if study.SampleSize == nil {
		study.SampleSize = n.ParseSampleSize(raw.ReplicationText)
	}
	study.PValue = n.ParsePValue(raw.PValueText)
	study.LogPValue = n.ParseLogPValue(raw.LogPValueText, raw.PValueText)
	study.PublicationMilli = n.ParsePublicationDate(raw.PublicationDate)
	study.QualityFlags, study.Confidence = Classify(study.SampleSize, study.PValue, study.LogPValue)

	return study
}
