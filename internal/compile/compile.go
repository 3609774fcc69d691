// Package compile merges per-chunk extraction results into a final
// deduplicated table. The merge is deterministic: no model calls, the
// same input always yields the same output.
package compile

import (
	"strconv"
	"strings"

	"pcax/internal/domain"
	"pcax/internal/eval"
)

// dedupKey identifies rows describing the same PCA: the normalized
// address plus the PCA number. Rows with a nil number never merge with
// numbered rows for the same address.
func dedupKey(row domain.ExtractedRow) string {
	num := "nil"
	if row.PCANumber != nil {
		num = strconv.Itoa(*row.PCANumber)
	}
	return eval.NormalizeAddress(row.Address) + "|" + num
}

// Rows deduplicates and merges extracted rows, preserving the order of
// first occurrence, then assigns 1-based identifiers. Calling Rows on
// its own output returns the same rows.
func Rows(in []domain.ExtractedRow) []domain.ExtractedRow {
	seen := make(map[string]int, len(in))
	out := make([]domain.ExtractedRow, 0, len(in))

	for _, row := range in {
		key := dedupKey(row)
		idx, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, row)
			continue
		}
		out[idx] = merge(out[idx], row)
	}

	for i := range out {
		out[i].PCAIdentifier = i + 1
	}
	return out
}

// merge folds b into a, keeping the longest non-empty value per field
// and the union of source pages.
func merge(a, b domain.ExtractedRow) domain.ExtractedRow {
	a.Address = longer(a.Address, b.Address)
	a.LocationRelationToSite = longer(a.LocationRelationToSite, b.LocationRelationToSite)
	a.PCAName = longer(a.PCAName, b.PCAName)
	a.DescriptionTimeline = longer(a.DescriptionTimeline, b.DescriptionTimeline)
	if a.PCANumber == nil {
		a.PCANumber = b.PCANumber
	}
	a.SourcePages = mergePages(a.SourcePages, b.SourcePages)
	return a
}

func longer(a, b string) string {
	if len(strings.TrimSpace(b)) > len(strings.TrimSpace(a)) {
		return b
	}
	return a
}

// mergePages concatenates distinct page references with "; ".
func mergePages(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	present := make(map[string]bool)
	parts := make([]string, 0, 4)
	for _, ref := range strings.Split(a+"; "+b, ";") {
		ref = strings.TrimSpace(ref)
		if ref == "" || present[ref] {
			continue
		}
		present[ref] = true
		parts = append(parts, ref)
	}
	return strings.Join(parts, "; ")
}
