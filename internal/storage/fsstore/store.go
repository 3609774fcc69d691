// Package fsstore persists run artifacts as numbered experiment directories
// on the local filesystem:
//
//	<root>/exp_001/
//	    chunks/chunk_01.txt
//	    raw/chunk_01_attempt_1.txt
//	    partial_rows.json
//	    final_rows.json
//	    final_table.csv
//	    metadata.json
//	    evaluation/metrics.json, matches.csv, false_negatives.csv, false_positives.csv
package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"pcax/internal/csvexport"
	"pcax/internal/domain"
	"pcax/internal/eval"
)

var expDirRe = regexp.MustCompile(`^exp_(\d+)$`)

// Store implements port.RunStore on a local directory tree.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates the store, provisioning the root directory.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating run root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// CreateRun allocates the next exp_NNN directory and returns its name.
func (s *Store) CreateRun() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", fmt.Errorf("listing run root: %w", err)
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m := expDirRe.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}

	ref := fmt.Sprintf("exp_%03d", max+1)
	for _, sub := range []string{"chunks", "raw"} {
		if err := os.MkdirAll(filepath.Join(s.root, ref, sub), 0o755); err != nil {
			return "", fmt.Errorf("creating run dir %s: %w", ref, err)
		}
	}
	return ref, nil
}

// SaveChunkText writes one chunk's prompt text for later inspection.
func (s *Store) SaveChunkText(runRef string, chunk domain.Chunk) error {
	path := filepath.Join(s.root, runRef, "chunks", fmt.Sprintf("chunk_%02d.txt", chunk.Index))
	header := fmt.Sprintf("# chunk %d/%d, pages %s\n\n", chunk.Index, chunk.TotalChunks, chunk.PageRef())
	return os.WriteFile(path, []byte(header+chunk.Text), 0o644)
}

// SaveRawResponse keeps every provider response, one file per attempt.
func (s *Store) SaveRawResponse(runRef string, chunkIndex, attempt int, raw string) error {
	path := filepath.Join(s.root, runRef, "raw", fmt.Sprintf("chunk_%02d_attempt_%d.txt", chunkIndex, attempt))
	return os.WriteFile(path, []byte(raw), 0o644)
}

// SavePartialRows overwrites the accumulated in-progress rows.
func (s *Store) SavePartialRows(runRef string, rows []domain.ExtractedRow) error {
	return s.writeJSON(runRef, "partial_rows.json", rows)
}

// SaveFinalRows writes the compiled table as both JSON and CSV.
func (s *Store) SaveFinalRows(runRef string, rows []domain.ExtractedRow) error {
	if err := s.writeJSON(runRef, "final_rows.json", rows); err != nil {
		return err
	}
	return csvexport.WriteFile(s.FinalCSVPath(runRef), rows)
}

// LoadFinalRows reads a run's compiled table back.
func (s *Store) LoadFinalRows(runRef string) ([]domain.ExtractedRow, error) {
	data, err := os.ReadFile(filepath.Join(s.root, runRef, "final_rows.json"))
	if err != nil {
		return nil, fmt.Errorf("reading final rows: %w", err)
	}
	var rows []domain.ExtractedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing final rows: %w", err)
	}
	return rows, nil
}

// SaveMetadata records run parameters and summary counts.
func (s *Store) SaveMetadata(runRef string, meta map[string]any) error {
	return s.writeJSON(runRef, "metadata.json", meta)
}

// SaveEvaluation writes the scoring artifacts into the run's evaluation dir.
func (s *Store) SaveEvaluation(runRef string, report *domain.EvalReport) error {
	return eval.WriteReportDir(filepath.Join(s.root, runRef, "evaluation"), report)
}

// FinalCSVPath returns where the compiled CSV lives for a run.
func (s *Store) FinalCSVPath(runRef string) string {
	return filepath.Join(s.root, runRef, "final_table.csv")
}

func (s *Store) writeJSON(runRef, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.root, runRef, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
