// Package eval scores extracted rows against a ground-truth table using
// fuzzy address matching and greedy one-to-one assignment.
package eval

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitRe       = regexp.MustCompile(`\b(?:UNIT|SUITE|STE|APT)\s*#?\s*\w+\b`)
	hashUnitRe   = regexp.MustCompile(`#\s*\w+\b`)
	postalRe     = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b\s*$`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	spaceRe      = regexp.MustCompile(`\s+`)
	pcaNumberRe  = regexp.MustCompile(`(?:PCA|AOC|REC)[\s#-]*(\d+)`)
	leadNumberRe = regexp.MustCompile(`^(\d+)`)
)

// NormalizeAddress upper-cases an address, strips unit/suite designators,
// trailing postal codes and punctuation, and collapses whitespace. Used
// both as the dedup key during compilation and as the comparison form
// during evaluation.
func NormalizeAddress(addr string) string {
	s := strings.ToUpper(strings.TrimSpace(addr))
	s = unitRe.ReplaceAllString(s, " ")
	s = hashUnitRe.ReplaceAllString(s, " ")
	s = postalRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractPCANumber pulls a numeric identifier out of free text such as
// "PCA #12" or "AOC-3". Returns nil when no recognizable number exists.
func ExtractPCANumber(text string) *int {
	m := pcaNumberRe.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// StreetNumber returns the leading house number of a normalized address,
// or "" when the address does not start with digits.
func StreetNumber(normalized string) string {
	m := leadNumberRe.FindStringSubmatch(normalized)
	if m == nil {
		return ""
	}
	return m[1]
}
