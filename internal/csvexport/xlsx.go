package csvexport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pcax/internal/domain"
)

const sheetName = "PCA Table"

// WriteXLSX renders rows as a styled spreadsheet for reviewers who edit the
// table by hand.
func WriteXLSX(w io.Writer, rows []domain.ExtractedRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, col := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for r, row := range rows {
		values := []any{
			row.PCAIdentifier,
			row.Address,
			row.LocationRelationToSite,
			nil,
			row.PCAName,
			row.DescriptionTimeline,
			row.SourcePages,
		}
		if row.PCANumber != nil {
			values[3] = *row.PCANumber
		}
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", r+1, err)
			}
		}
	}

	// Wide columns for the free-text fields.
	_ = f.SetColWidth(sheetName, "B", "B", 32)
	_ = f.SetColWidth(sheetName, "E", "E", 28)
	_ = f.SetColWidth(sheetName, "F", "F", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
