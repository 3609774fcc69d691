package extractor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pcax/internal/domain"
	"pcax/internal/extractor"
)

var testChunk = domain.Chunk{Index: 1, TotalChunks: 2, StartPage: 1, EndPage: 5}

func TestExtractJSONObject_PlainPayload(t *testing.T) {
	var out map[string]any
	ok := extractor.ExtractJSONObject(`{"rows": []}`, &out)
	require.True(t, ok)
	assert.Contains(t, out, "rows")
}

func TestExtractJSONObject_FencedBlock(t *testing.T) {
	text := "Here is the extraction:\n```json\n{\"rows\": [{\"address\": \"1 Main St\"}]}\n```\nDone."
	var out map[string]any
	require.True(t, extractor.ExtractJSONObject(text, &out))
	assert.Contains(t, out, "rows")
}

func TestExtractJSONObject_BraceSubstring(t *testing.T) {
	text := `The table follows. {"rows": []} Hope that helps!`
	var out map[string]any
	require.True(t, extractor.ExtractJSONObject(text, &out))
}

func TestExtractJSONObject_NoJSON(t *testing.T) {
	var out map[string]any
	assert.False(t, extractor.ExtractJSONObject("I could not find any PCAs.", &out))
}

func TestParseRows_TolerantNumberTypes(t *testing.T) {
	raw := `{"rows": [
		{"address": "1 Main St", "pca_name": "Gas Station", "description_timeline": "USTs", "pca_number": 3},
		{"address": "2 Main St", "pca_name": "Dry Cleaner", "description_timeline": "Solvents", "pca_number": "#4"},
		{"address": "3 Main St", "pca_name": "Auto Repair", "description_timeline": "Lifts", "pca_number": null}
	]}`

	rows, err := extractor.ParseRows("gemini", raw, testChunk, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, *rows[0].PCANumber)
	assert.Equal(t, 4, *rows[1].PCANumber)
	assert.Nil(t, rows[2].PCANumber)
}

func TestParseRows_DropsIncompleteRows(t *testing.T) {
	raw := `{"rows": [
		{"address": "1 Main St", "pca_name": "Gas Station", "description_timeline": "USTs"},
		{"address": "", "pca_name": "Mystery", "description_timeline": "??"},
		{"address": "2 Main St", "pca_name": "", "description_timeline": "??"}
	]}`

	rows, err := extractor.ParseRows("gemini", raw, testChunk, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1 Main St", rows[0].Address)
}

func TestParseRows_BackfillsSourcePages(t *testing.T) {
	raw := `{"rows": [{"address": "1 Main St", "pca_name": "Gas Station", "description_timeline": "USTs"}]}`

	rows, err := extractor.ParseRows("gemini", raw, testChunk, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1-5", rows[0].SourcePages)
}

func TestParseRows_NormalizesLocation(t *testing.T) {
	raw := `{"rows": [
		{"address": "1 Main St", "pca_name": "a", "description_timeline": "x", "location_relation_to_site": "onsite"},
		{"address": "2 Main St", "pca_name": "b", "description_timeline": "y", "location_relation_to_site": "Off Site"}
	]}`

	rows, err := extractor.ParseRows("gemini", raw, testChunk, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "On-Site", rows[0].LocationRelationToSite)
	assert.Equal(t, "Off-Site", rows[1].LocationRelationToSite)
}

func TestParseRows_MissingRowsKeyIsInvalid(t *testing.T) {
	_, err := extractor.ParseRows("gemini", `{"pcas": []}`, testChunk, zap.NewNop())
	var invErr *extractor.InvalidResponseError
	require.True(t, errors.As(err, &invErr))
}

func TestRetryable(t *testing.T) {
	assert.True(t, extractor.Retryable(extractor.NewRateLimitError("gemini", errors.New("429"), 0)))
	assert.True(t, extractor.Retryable(&extractor.NetworkError{Provider: "gemini", Err: errors.New("reset")}))
	assert.False(t, extractor.Retryable(&extractor.AuthError{Provider: "gemini", Err: errors.New("401")}))
	assert.False(t, extractor.Retryable(&extractor.InvalidResponseError{Provider: "gemini", Err: errors.New("bad json")}))
}
