package eval

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"pcax/internal/csvexport"
	"pcax/internal/domain"
)

// WriteReportDir persists a report as browsable artifacts:
//
//	<dir>/metrics.json
//	<dir>/matches.csv
//	<dir>/false_negatives.csv
//	<dir>/false_positives.csv
func WriteReportDir(dir string, report *domain.EvalReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating evaluation dir: %w", err)
	}

	data, err := json.MarshalIndent(report.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing metrics.json: %w", err)
	}

	if err := writeMatchCSV(filepath.Join(dir, "matches.csv"), report.Matches); err != nil {
		return err
	}
	if err := writeMatchCSV(filepath.Join(dir, "false_negatives.csv"), report.FalseNegatives); err != nil {
		return err
	}
	return csvexport.WriteFile(filepath.Join(dir, "false_positives.csv"), report.FalsePositives)
}

func writeMatchCSV(path string, matches []domain.MatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"gt_index", "ext_index", "score", "tier", "gt_address", "ext_address", "pca_number"}); err != nil {
		return err
	}
	for _, m := range matches {
		rec := []string{
			strconv.Itoa(m.GroundTruthIndex),
			strconv.Itoa(m.ExtractedIndex),
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			string(m.Tier),
			m.GroundTruthAddr,
			m.ExtractedAddr,
			m.PCANumber,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
