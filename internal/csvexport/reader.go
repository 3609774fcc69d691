package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pcax/internal/domain"
)

// Read parses a PCA table from CSV. Column order is taken from the header
// row, so hand-curated ground-truth files with reordered or extra columns
// load fine. A leading UTF-8 BOM is stripped.
func Read(r io.Reader) ([]domain.ExtractedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		idx[col] = i
	}
	if _, ok := idx["address"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "address")
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []domain.ExtractedRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+2, err)
		}
		row := domain.ExtractedRow{
			Address:                field(rec, "address"),
			LocationRelationToSite: field(rec, "location_relation_to_site"),
			PCAName:                field(rec, "pca_name"),
			DescriptionTimeline:    field(rec, "description_timeline"),
			SourcePages:            field(rec, "source_pages"),
		}
		if v := field(rec, "pca_identifier"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				row.PCAIdentifier = n
			}
		}
		if v := field(rec, "pca_number"); v != "" {
			if n, err := strconv.Atoi(strings.TrimPrefix(v, "#")); err == nil {
				row.PCANumber = &n
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadFile loads a PCA table from a CSV file on disk.
func ReadFile(path string) ([]domain.ExtractedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}
