// Package csvexport reads and writes the seven-column PCA table in CSV and
// XLSX form.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"pcax/internal/domain"
)

// Header is the canonical column order of the compiled table.
var Header = []string{
	"pca_identifier",
	"address",
	"location_relation_to_site",
	"pca_number",
	"pca_name",
	"description_timeline",
	"source_pages",
}

// utf8BOM makes Excel detect UTF-8 when opening the file directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Write renders rows as CSV, prefixed with a UTF-8 BOM.
func Write(w io.Writer, rows []domain.ExtractedRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", row.PCAIdentifier, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV to path, creating parent-relative file anew.
func WriteFile(path string, rows []domain.ExtractedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Write(f, rows)
}

func record(row domain.ExtractedRow) []string {
	num := ""
	if row.PCANumber != nil {
		num = strconv.Itoa(*row.PCANumber)
	}
	return []string{
		strconv.Itoa(row.PCAIdentifier),
		row.Address,
		row.LocationRelationToSite,
		num,
		row.PCAName,
		row.DescriptionTimeline,
		row.SourcePages,
	}
}
