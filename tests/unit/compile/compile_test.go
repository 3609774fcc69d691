package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcax/internal/compile"
	"pcax/internal/domain"
)

func intPtr(n int) *int { return &n }

func TestRows_MergesDuplicatesAndRenumbers(t *testing.T) {
	in := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs", SourcePages: "1-5"},
		{Address: "456 Oak Ave", PCANumber: intPtr(2), PCAName: "Dry Cleaner", DescriptionTimeline: "Solvents", SourcePages: "6-10"},
		// Duplicate of the first row from a later chunk, with a richer description.
		{Address: "123 MAIN STREET", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs removed in 1998 after closure", SourcePages: "11-15"},
	}

	out := compile.Rows(in)

	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].PCAIdentifier)
	assert.Equal(t, 2, out[1].PCAIdentifier)

	// First occurrence keeps its slot; longest field wins; pages union.
	assert.Equal(t, "123 Main Street", out[0].Address)
	assert.Equal(t, "USTs removed in 1998 after closure", out[0].DescriptionTimeline)
	assert.Equal(t, "1-5; 11-15", out[0].SourcePages)
	assert.Equal(t, "456 Oak Ave", out[1].Address)
}

func TestRows_NilNumberNeverMergesWithNumbered(t *testing.T) {
	in := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs"},
		{Address: "123 Main Street", PCAName: "Gas Station", DescriptionTimeline: "USTs"},
	}

	out := compile.Rows(in)
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].PCANumber)
	assert.Nil(t, out[1].PCANumber)
}

func TestRows_TwoNilNumbersMergeAndBackfill(t *testing.T) {
	in := []domain.ExtractedRow{
		{Address: "9 Elm St", PCAName: "Print Shop", DescriptionTimeline: "Inks", SourcePages: "3"},
		{Address: "9 Elm St", PCANumber: nil, PCAName: "Print Shop", DescriptionTimeline: "Inks and solvent use", SourcePages: "3"},
	}

	out := compile.Rows(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Inks and solvent use", out[0].DescriptionTimeline)
	assert.Equal(t, "3", out[0].SourcePages)
}

func TestRows_Idempotent(t *testing.T) {
	in := []domain.ExtractedRow{
		{Address: "123 Main Street", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs", SourcePages: "1-5"},
		{Address: "123 Main St.", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs", SourcePages: "6-10"},
		{Address: "456 Oak Ave", PCANumber: intPtr(2), PCAName: "Dry Cleaner", DescriptionTimeline: "Solvents", SourcePages: "2"},
	}

	once := compile.Rows(in)
	twice := compile.Rows(once)
	assert.Equal(t, once, twice)
}

func TestRows_EmptyInput(t *testing.T) {
	assert.Empty(t, compile.Rows(nil))
}

func TestRows_PreservesFirstOccurrenceOrder(t *testing.T) {
	in := []domain.ExtractedRow{
		{Address: "C St", PCAName: "c", DescriptionTimeline: "c"},
		{Address: "A St", PCAName: "a", DescriptionTimeline: "a"},
		{Address: "B St", PCAName: "b", DescriptionTimeline: "b"},
		{Address: "A St", PCAName: "a", DescriptionTimeline: "a again longer"},
	}

	out := compile.Rows(in)
	require.Len(t, out, 3)
	assert.Equal(t, "C St", out[0].Address)
	assert.Equal(t, "A St", out[1].Address)
	assert.Equal(t, "B St", out[2].Address)
}
