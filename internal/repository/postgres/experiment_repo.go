package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pcax/internal/domain"
	"pcax/internal/port"
)

type experimentRepo struct {
	db *sqlx.DB
}

// NewExperimentRepo creates a PostgreSQL-backed ExperimentRepository.
func NewExperimentRepo(db *sqlx.DB) port.ExperimentRepository {
	return &experimentRepo{db: db}
}

// experimentRecord maps the experiments table.
type experimentRecord struct {
	JobID           string     `db:"job_id"`
	DocumentName    string     `db:"document_name"`
	PromptVersion   string     `db:"prompt_version"`
	Provider        string     `db:"provider"`
	Model           string     `db:"model"`
	TotalChunks     int        `db:"total_chunks"`
	CompletedChunks int        `db:"completed_chunks"`
	RowCount        int        `db:"row_count"`
	WarningCount    int        `db:"warning_count"`
	ResultRef       string     `db:"result_ref"`
	StartedAt       time.Time  `db:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}

func (r *experimentRepo) SaveExperiment(ctx context.Context, job *domain.Job, rows []domain.ExtractedRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("experimentRepo.SaveExperiment begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO experiments (
		job_id, document_name, prompt_version, provider, model,
		total_chunks, completed_chunks, row_count, warning_count,
		result_ref, started_at, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (job_id) DO UPDATE SET
		row_count = EXCLUDED.row_count,
		completed_at = EXCLUDED.completed_at`,
		job.ID, job.DocumentName, job.PromptVersion, job.Provider, job.Model,
		job.TotalChunks, job.CompletedChunks, len(rows), len(job.Warnings),
		job.ResultRef, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("experimentRepo.SaveExperiment insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM experiment_rows WHERE job_id = $1", job.ID); err != nil {
		return fmt.Errorf("experimentRepo.SaveExperiment clear rows: %w", err)
	}
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `INSERT INTO experiment_rows (
			job_id, pca_identifier, address, location_relation_to_site,
			pca_number, pca_name, description_timeline, source_pages
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			job.ID, row.PCAIdentifier, row.Address, row.LocationRelationToSite,
			row.PCANumber, row.PCAName, row.DescriptionTimeline, row.SourcePages)
		if err != nil {
			return fmt.Errorf("experimentRepo.SaveExperiment row %d: %w", row.PCAIdentifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("experimentRepo.SaveExperiment commit: %w", err)
	}
	return nil
}

func (r *experimentRepo) ListExperiments(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []experimentRecord
	err := r.db.SelectContext(ctx, &records,
		"SELECT * FROM experiments ORDER BY started_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("experimentRepo.ListExperiments: %w", err)
	}

	jobs := make([]domain.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, domain.Job{
			ID:              rec.JobID,
			Status:          domain.JobStatusCompleted,
			DocumentName:    rec.DocumentName,
			PromptVersion:   rec.PromptVersion,
			Provider:        rec.Provider,
			Model:           rec.Model,
			TotalChunks:     rec.TotalChunks,
			CompletedChunks: rec.CompletedChunks,
			ResultRef:       rec.ResultRef,
			StartedAt:       rec.StartedAt,
			CompletedAt:     rec.CompletedAt,
		})
	}
	return jobs, nil
}

func (r *experimentRepo) GetRows(ctx context.Context, jobID string) ([]domain.ExtractedRow, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM experiments WHERE job_id = $1", jobID)
	if err != nil {
		return nil, fmt.Errorf("experimentRepo.GetRows: %w", err)
	}
	if exists == 0 {
		return nil, domain.ErrJobNotFound
	}

	var rows []domain.ExtractedRow
	err = r.db.SelectContext(ctx, &rows, `SELECT
			pca_identifier, address, location_relation_to_site,
			pca_number, pca_name, description_timeline, source_pages
		FROM experiment_rows WHERE job_id = $1 ORDER BY pca_identifier`, jobID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("experimentRepo.GetRows: %w", err)
	}
	return rows, nil
}
