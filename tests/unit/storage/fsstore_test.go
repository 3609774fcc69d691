package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcax/internal/domain"
	"pcax/internal/storage/fsstore"
)

func intPtr(n int) *int { return &n }

func TestStore_CreateRunNumbersSequentially(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.CreateRun()
	require.NoError(t, err)
	second, err := store.CreateRun()
	require.NoError(t, err)

	assert.Equal(t, "exp_001", first)
	assert.Equal(t, "exp_002", second)
}

func TestStore_CreateRunSkipsForeignDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "exp_007"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scratch"), 0o755))

	store, err := fsstore.NewStore(root)
	require.NoError(t, err)

	ref, err := store.CreateRun()
	require.NoError(t, err)
	assert.Equal(t, "exp_008", ref)
}

func TestStore_FinalRowsRoundTrip(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)
	ref, err := store.CreateRun()
	require.NoError(t, err)

	rows := []domain.ExtractedRow{
		{PCAIdentifier: 1, Address: "123 Main St", PCANumber: intPtr(1), PCAName: "Gas Station", DescriptionTimeline: "USTs", SourcePages: "1-5"},
		{PCAIdentifier: 2, Address: "456 Oak Ave", PCAName: "Dry Cleaner", DescriptionTimeline: "Solvents", SourcePages: "6"},
	}
	require.NoError(t, store.SaveFinalRows(ref, rows))

	loaded, err := store.LoadFinalRows(ref)
	require.NoError(t, err)
	assert.Equal(t, rows, loaded)

	// The CSV is written alongside the JSON.
	csvData, err := os.ReadFile(store.FinalCSVPath(ref))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "123 Main St")
	assert.Contains(t, string(csvData), "pca_identifier")
}

func TestStore_ChunkAndRawArtifacts(t *testing.T) {
	store, err := fsstore.NewStore(t.TempDir())
	require.NoError(t, err)
	ref, err := store.CreateRun()
	require.NoError(t, err)

	chunk := domain.Chunk{Index: 2, TotalChunks: 3, StartPage: 6, EndPage: 10, Text: "page text"}
	require.NoError(t, store.SaveChunkText(ref, chunk))
	require.NoError(t, store.SaveRawResponse(ref, 2, 1, `{"rows": []}`))

	root := filepath.Dir(filepath.Dir(store.FinalCSVPath(ref)))
	chunkData, err := os.ReadFile(filepath.Join(root, ref, "chunks", "chunk_02.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(chunkData), "pages 6-10")

	_, err = os.Stat(filepath.Join(root, ref, "raw", "chunk_02_attempt_1.txt"))
	assert.NoError(t, err)
}

func TestStore_SaveEvaluation(t *testing.T) {
	root := t.TempDir()
	store, err := fsstore.NewStore(root)
	require.NoError(t, err)
	ref, err := store.CreateRun()
	require.NoError(t, err)

	report := &domain.EvalReport{
		Metrics: domain.EvalMetrics{TruePositives: 2, Recall: 0.5},
		Matches: []domain.MatchResult{
			{GroundTruthIndex: 0, ExtractedIndex: 1, Score: 0.91, Tier: domain.MatchTierAccepted, GroundTruthAddr: "123 Main St"},
		},
	}
	require.NoError(t, store.SaveEvaluation(ref, report))

	evalDir := filepath.Join(root, ref, "evaluation")
	data, err := os.ReadFile(filepath.Join(evalDir, "metrics.json"))
	require.NoError(t, err)
	var metrics domain.EvalMetrics
	require.NoError(t, json.Unmarshal(data, &metrics))
	assert.Equal(t, 2, metrics.TruePositives)
	assert.InDelta(t, 0.5, metrics.Recall, 1e-9)

	matches, err := os.ReadFile(filepath.Join(evalDir, "matches.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(matches), "123 Main St")
	assert.FileExists(t, filepath.Join(evalDir, "false_negatives.csv"))
	assert.FileExists(t, filepath.Join(evalDir, "false_positives.csv"))
}
