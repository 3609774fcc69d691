package csvexport_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pcax/internal/csvexport"
	"pcax/internal/domain"
)

func intPtr(n int) *int { return &n }

func sampleRows() []domain.ExtractedRow {
	return []domain.ExtractedRow{
		{PCAIdentifier: 1, Address: "123 Main St", LocationRelationToSite: "On-Site", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs removed 1998", SourcePages: "1-5"},
		{PCAIdentifier: 2, Address: "456 Oak Ave", LocationRelationToSite: "Off-Site", PCAName: "Dry Cleaner", DescriptionTimeline: "PCE use, 1970s", SourcePages: "6-10"},
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, csvexport.Write(&buf, sampleRows()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xef\xbb\xbf"), "expected UTF-8 BOM")

	rows, err := csvexport.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestWrite_QuotesEmbeddedCommas(t *testing.T) {
	rows := []domain.ExtractedRow{
		{PCAIdentifier: 1, Address: "1 Main St, Rear Lot", PCAName: "Gas Station", DescriptionTimeline: "USTs, piping, and dispensers"},
	}
	var buf bytes.Buffer
	require.NoError(t, csvexport.Write(&buf, rows))

	parsed, err := csvexport.Read(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "1 Main St, Rear Lot", parsed[0].Address)
}

func TestRead_ReorderedColumnsAndHashNumbers(t *testing.T) {
	csvText := "address,pca_number,pca_name,description_timeline\n" +
		"9 Elm St,#4,Print Shop,Inks and solvents\n"

	rows, err := csvexport.Read(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9 Elm St", rows[0].Address)
	require.NotNil(t, rows[0].PCANumber)
	assert.Equal(t, 4, *rows[0].PCANumber)
}

func TestRead_MissingAddressColumn(t *testing.T) {
	_, err := csvexport.Read(strings.NewReader("pca_name,description_timeline\na,b\n"))
	assert.Error(t, err)
}

func TestWriteXLSX_ProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, csvexport.WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cell, err := f.GetCellValue("PCA Table", "B2")
	require.NoError(t, err)
	assert.Equal(t, "123 Main St", cell)

	header, err := f.GetCellValue("PCA Table", "A1")
	require.NoError(t, err)
	assert.Equal(t, "pca_identifier", header)
}
