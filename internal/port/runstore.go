package port

import (
	"context"

	"pcax/internal/domain"
)

// RunStore persists per-run artifacts: chunk texts, raw provider responses,
// partial row sets, and the final compiled table. The canonical
// implementation writes numbered run directories on the local filesystem.
type RunStore interface {
	// CreateRun allocates a new run directory and returns its reference.
	CreateRun() (string, error)
	SaveChunkText(runRef string, chunk domain.Chunk) error
	SaveRawResponse(runRef string, chunkIndex int, attempt int, raw string) error
	SavePartialRows(runRef string, rows []domain.ExtractedRow) error
	SaveFinalRows(runRef string, rows []domain.ExtractedRow) error
	LoadFinalRows(runRef string) ([]domain.ExtractedRow, error)
	SaveMetadata(runRef string, meta map[string]any) error
	SaveEvaluation(runRef string, report *domain.EvalReport) error
	// FinalCSVPath returns the path of the compiled CSV for download.
	FinalCSVPath(runRef string) string
}

// ExperimentRepository archives completed runs and their compiled rows in a
// relational store for later comparison across prompt versions.
type ExperimentRepository interface {
	SaveExperiment(ctx context.Context, job *domain.Job, rows []domain.ExtractedRow) error
	ListExperiments(ctx context.Context, limit int) ([]domain.Job, error)
	GetRows(ctx context.Context, jobID string) ([]domain.ExtractedRow, error)
}
