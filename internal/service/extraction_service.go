package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pcax/internal/chunker"
	"pcax/internal/compile"
	"pcax/internal/config"
	"pcax/internal/domain"
	"pcax/internal/extractor"
	"pcax/internal/port"
)

// StartOptions selects the prompt version and provider for a run, plus
// optional per-job overrides. Empty fields fall back to the active prompt,
// the default provider, and the server's configured model, temperature,
// credentials, and chunk budget.
type StartOptions struct {
	PromptVersion   string
	Provider        string
	Model           string
	Temperature     *float64
	APIKey          string
	ChunkWordBudget int
}

// Options wires the extraction service's collaborators. Repo and Archive
// are optional; when nil the corresponding persistence step is skipped.
type Options struct {
	Extractors      map[string]port.ChunkExtractor
	DefaultProvider string
	Prompts         port.PromptStore
	Store           port.RunStore
	Repo            port.ExperimentRepository
	Archive         port.ObjectStorage
	ArchiveBucket   string
	Pipeline        config.PipelineConfig
	Events          *Broadcaster
	Log             *zap.Logger
}

// ExtractionService orchestrates extraction runs: chunking, the concurrent
// worker pool, retries, compilation, and persistence. At most one job is
// active at a time; finished jobs stay queryable until Reset.
type ExtractionService struct {
	extractors      map[string]port.ChunkExtractor
	defaultProvider string
	prompts         port.PromptStore
	store           port.RunStore
	repo            port.ExperimentRepository
	archive         port.ObjectStorage
	archiveBucket   string
	events          *Broadcaster
	cfg             config.PipelineConfig
	log             *zap.Logger

	mu       sync.Mutex
	jobs     map[string]*domain.Job
	activeID string
	cancels  map[string]context.CancelFunc
	stopping map[string]bool // user requested cancellation
}

// NewExtractionService creates the orchestrator.
func NewExtractionService(opts Options) *ExtractionService {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	events := opts.Events
	if events == nil {
		events = NewBroadcaster()
	}
	return &ExtractionService{
		extractors:      opts.Extractors,
		defaultProvider: opts.DefaultProvider,
		prompts:         opts.Prompts,
		store:           opts.Store,
		repo:            opts.Repo,
		archive:         opts.Archive,
		archiveBucket:   opts.ArchiveBucket,
		events:          events,
		cfg:             opts.Pipeline,
		log:             log,
		jobs:            make(map[string]*domain.Job),
		cancels:         make(map[string]context.CancelFunc),
		stopping:        make(map[string]bool),
	}
}

// Events exposes the progress stream for SSE handlers.
func (s *ExtractionService) Events() *Broadcaster {
	return s.events
}

// StartExtraction validates the document, registers a new job and launches
// the worker pool in the background. Returns ErrJobAlreadyRunning while a
// previous job is still active.
func (s *ExtractionService) StartExtraction(_ context.Context, doc domain.Document, opts StartOptions) (*domain.Job, error) {
	budget := s.cfg.ChunkWordBudget
	if opts.ChunkWordBudget > 0 {
		budget = opts.ChunkWordBudget
	}
	chunks, err := chunker.Chunk(doc, budget)
	if err != nil {
		return nil, err
	}

	providerName := opts.Provider
	if providerName == "" {
		providerName = s.defaultProvider
	}
	ex, ok := s.extractors[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidDocument, providerName)
	}

	var pv *port.PromptVersion
	if opts.PromptVersion != "" {
		pv, err = s.prompts.Get(opts.PromptVersion)
	} else {
		pv, err = s.prompts.Active()
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if active, ok := s.jobs[s.activeID]; ok && !active.Terminal() {
		return nil, domain.ErrJobAlreadyRunning
	}

	runRef, err := s.store.CreateRun()
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	model := opts.Model
	if model == "" {
		if m, ok := ex.(interface{ Model() string }); ok {
			model = m.Model()
		}
	}

	job := &domain.Job{
		ID:            uuid.NewString()[:8],
		Status:        domain.JobStatusPending,
		DocumentName:  doc.Name,
		PromptVersion: pv.ID,
		Provider:      providerName,
		Model:         model,
		TotalChunks:   len(chunks),
		ResultRef:     runRef,
		StartedAt:     time.Now().UTC(),
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.jobs[job.ID] = job
	s.activeID = job.ID
	s.cancels[job.ID] = cancel

	s.log.Info("extraction job started",
		zap.String("job_id", job.ID),
		zap.String("document", doc.Name),
		zap.String("provider", providerName),
		zap.String("prompt_version", pv.ID),
		zap.Int("total_chunks", len(chunks)))

	go s.run(jobCtx, job.ID, ex, pv.Content, chunks, runRef, opts)

	return s.snapshotLocked(job), nil
}

// chunkOutcome is what one worker hands to the aggregator.
type chunkOutcome struct {
	rows   []domain.ExtractedRow
	result domain.ChunkResult
}

func (s *ExtractionService) run(ctx context.Context, jobID string, ex port.ChunkExtractor, promptText string, chunks []domain.Chunk, runRef string, opts StartOptions) {
	for _, c := range chunks {
		if err := s.store.SaveChunkText(runRef, c); err != nil {
			s.log.Warn("failed to save chunk text", zap.String("job_id", jobID), zap.Int("chunk", c.Index), zap.Error(err))
		}
	}

	s.setStatus(jobID, domain.JobStatusRunning)
	s.publish(jobID, domain.ProgressEvent{
		Status:      domain.EventProgress,
		Message:     "extraction started",
		TotalChunks: len(chunks),
	})

	results := make(chan chunkOutcome, len(chunks))
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		for out := range results {
			s.recordChunk(jobID, runRef, out)
		}
	}()

	concurrency := s.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			// Skip dispatch once the job is cancelled or a fatal error hit.
			if gctx.Err() != nil {
				return nil
			}
			out, skip, err := s.extractChunk(gctx, ex, promptText, chunk, runRef, opts)
			if err != nil {
				return err
			}
			if !skip {
				results <- out
			}
			return nil
		})
	}
	fatal := g.Wait()
	close(results)
	<-aggDone

	s.finish(jobID, runRef, fatal, ctx.Err() != nil)
}

// extractChunk calls the provider for one chunk with retries. Rate limits
// and network failures back off and retry up to the ceiling; a malformed
// response gets one strict retry and then degrades to zero rows; an auth
// failure is returned as a fatal error that stops the whole job; anything
// else degrades the chunk without retrying. skip is true when the job was
// cancelled mid-retry.
func (s *ExtractionService) extractChunk(jobCtx context.Context, ex port.ChunkExtractor, promptText string, chunk domain.Chunk, runRef string, opts StartOptions) (chunkOutcome, bool, error) {
	result := domain.ChunkResult{
		ChunkIndex:  chunk.Index,
		TotalChunks: chunk.TotalChunks,
		PagesStart:  chunk.StartPage,
		PagesEnd:    chunk.EndPage,
	}

	strict := false
	var lastErr error
	for attempt := 1; attempt <= s.cfg.RetryCeiling; attempt++ {
		// In-flight calls get their own deadline so a job cancellation lets
		// the current attempt finish instead of tearing down the connection.
		callCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ChunkTimeout)
		rows, raw, err := ex.Extract(callCtx, port.ExtractInput{
			Chunk:       chunk,
			Prompt:      promptText,
			Strict:      strict,
			Model:       opts.Model,
			Temperature: opts.Temperature,
			APIKey:      opts.APIKey,
		})
		cancel()

		if raw != "" {
			if saveErr := s.store.SaveRawResponse(runRef, chunk.Index, attempt, raw); saveErr != nil {
				s.log.Warn("failed to save raw response", zap.Int("chunk", chunk.Index), zap.Error(saveErr))
			}
		}

		if err == nil {
			result.Status = domain.ChunkStatusCompleted
			result.RowsFound = len(rows)
			return chunkOutcome{rows: rows, result: result}, false, nil
		}
		lastErr = err

		var authErr *extractor.AuthError
		if errors.As(err, &authErr) {
			return chunkOutcome{}, false, err
		}

		var invErr *extractor.InvalidResponseError
		if errors.As(err, &invErr) {
			if !strict {
				s.log.Warn("unparseable response, retrying with strict instruction",
					zap.Int("chunk", chunk.Index), zap.Error(err))
				strict = true
				continue
			}
			break
		}

		if attempt == s.cfg.RetryCeiling || !extractor.Retryable(err) {
			break
		}

		delay := s.cfg.BackoffBase * (1 << (attempt - 1))
		var rlErr *extractor.RateLimitError
		if errors.As(err, &rlErr) && rlErr.RetryAfter > delay {
			delay = rlErr.RetryAfter
		}
		s.log.Warn("chunk attempt failed, backing off",
			zap.Int("chunk", chunk.Index),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-jobCtx.Done():
			return chunkOutcome{}, true, nil
		}
	}

	// Degraded: the chunk contributes no rows but the job continues.
	result.Status = domain.ChunkStatusDegraded
	result.Warning = fmt.Sprintf("chunk %d/%d (pages %s) produced no rows: %v",
		chunk.Index, chunk.TotalChunks, chunk.PageRef(), lastErr)
	return chunkOutcome{result: result}, false, nil
}

// recordChunk is the single place job progress mutates during a run.
func (s *ExtractionService) recordChunk(jobID, runRef string, out chunkOutcome) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.CompletedChunks++
	job.ChunkResults = append(job.ChunkResults, out.result)
	job.RowsSoFar = append(job.RowsSoFar, out.rows...)
	if out.result.Warning != "" {
		job.Warnings = append(job.Warnings, out.result.Warning)
	}
	partial := make([]domain.ExtractedRow, len(job.RowsSoFar))
	copy(partial, job.RowsSoFar)
	ev := domain.ProgressEvent{
		JobID:           jobID,
		Status:          domain.EventProgress,
		ChunkIndex:      out.result.ChunkIndex,
		TotalChunks:     job.TotalChunks,
		CompletedChunks: job.CompletedChunks,
		RowsFound:       len(partial),
	}
	s.mu.Unlock()

	if err := s.store.SavePartialRows(runRef, partial); err != nil {
		s.log.Warn("failed to save partial rows", zap.String("job_id", jobID), zap.Error(err))
	}
	s.events.Publish(ev)
}

// finish moves the job to its terminal state and, on success, compiles and
// persists the final table.
func (s *ExtractionService) finish(jobID, runRef string, fatal error, cancelled bool) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	userCancelled := s.stopping[jobID]
	delete(s.stopping, jobID)
	if c, ok := s.cancels[jobID]; ok {
		c()
		delete(s.cancels, jobID)
	}

	now := time.Now().UTC()
	switch {
	case userCancelled || (cancelled && fatal == nil):
		job.Status = domain.JobStatusCancelled
		job.CompletedAt = &now
		s.mu.Unlock()
		s.log.Info("extraction job cancelled", zap.String("job_id", jobID))
		s.publish(jobID, domain.ProgressEvent{
			Status:  domain.EventCancelled,
			Message: "job cancelled",
		})
		return
	case fatal != nil:
		job.Status = domain.JobStatusError
		job.Error = fatal.Error()
		job.CompletedAt = &now
		s.mu.Unlock()
		s.log.Error("extraction job failed", zap.String("job_id", jobID), zap.Error(fatal))
		s.publish(jobID, domain.ProgressEvent{
			Status:  domain.EventError,
			Message: fatal.Error(),
		})
		return
	}

	rows := make([]domain.ExtractedRow, len(job.RowsSoFar))
	copy(rows, job.RowsSoFar)
	meta := map[string]any{
		"job_id":           job.ID,
		"document_name":    job.DocumentName,
		"prompt_version":   job.PromptVersion,
		"provider":         job.Provider,
		"model":            job.Model,
		"total_chunks":     job.TotalChunks,
		"completed_chunks": job.CompletedChunks,
		"warnings":         job.Warnings,
		"started_at":       job.StartedAt,
	}
	s.mu.Unlock()

	s.publish(jobID, domain.ProgressEvent{
		Status:  domain.EventCompiling,
		Message: "deduplicating and compiling final table",
	})

	compiled := compile.Rows(rows)
	if err := s.store.SaveFinalRows(runRef, compiled); err != nil {
		s.failJob(jobID, fmt.Errorf("saving final rows: %w", err))
		return
	}
	meta["compiled_at"] = time.Now().UTC()
	meta["row_count"] = len(compiled)
	if err := s.store.SaveMetadata(runRef, meta); err != nil {
		s.log.Warn("failed to save run metadata", zap.String("job_id", jobID), zap.Error(err))
	}

	s.mu.Lock()
	job.CompiledRows = compiled
	job.Status = domain.JobStatusCompleted
	now = time.Now().UTC()
	job.CompletedAt = &now
	snapshot := s.snapshotLocked(job)
	s.mu.Unlock()

	s.archiveRun(snapshot, runRef, compiled)

	s.log.Info("extraction job completed",
		zap.String("job_id", jobID),
		zap.Int("rows", len(compiled)),
		zap.Int("warnings", len(snapshot.Warnings)))
	s.publish(jobID, domain.ProgressEvent{
		Status:          domain.EventComplete,
		TotalChunks:     snapshot.TotalChunks,
		CompletedChunks: snapshot.CompletedChunks,
		RowsFound:       len(compiled),
		Rows:            compiled,
		ResultRef:       runRef,
	})
}

// archiveRun pushes the finished run to the optional archive backends.
// Failures are logged, never fatal: the local run directory stays canonical.
func (s *ExtractionService) archiveRun(job *domain.Job, runRef string, rows []domain.ExtractedRow) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.repo != nil {
		if err := s.repo.SaveExperiment(ctx, job, rows); err != nil {
			s.log.Warn("failed to archive experiment to database", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if s.archive != nil && s.archiveBucket != "" {
		path := s.store.FinalCSVPath(runRef)
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("failed to read final CSV for archive", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		key := fmt.Sprintf("runs/%s/%s", runRef, filepath.Base(path))
		if _, err := s.archive.Upload(ctx, port.UploadInput{
			Bucket:      s.archiveBucket,
			Key:         key,
			Body:        bytes.NewReader(data),
			ContentType: "text/csv",
		}); err != nil {
			s.log.Warn("failed to archive final CSV to object storage", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

func (s *ExtractionService) failJob(jobID string, err error) {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = domain.JobStatusError
		job.Error = err.Error()
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	s.mu.Unlock()
	s.log.Error("extraction job failed", zap.String("job_id", jobID), zap.Error(err))
	s.publish(jobID, domain.ProgressEvent{Status: domain.EventError, Message: err.Error()})
}

// Cancel requests cooperative cancellation of a running job. In-flight
// provider calls may still finish; no further chunks are dispatched and no
// final table is compiled.
func (s *ExtractionService) Cancel(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Terminal() {
		return domain.ErrJobTerminal
	}
	s.stopping[jobID] = true
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	s.log.Info("cancellation requested", zap.String("job_id", jobID))
	return nil
}

// GetJob returns a point-in-time copy of a job's state.
func (s *ExtractionService) GetJob(jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return s.snapshotLocked(job), nil
}

// ActiveJob returns the most recently started job, or ErrJobNotFound when
// nothing has run since the last reset.
func (s *ExtractionService) ActiveJob() (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[s.activeID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return s.snapshotLocked(job), nil
}

// Reset clears the job registry so a new run can start fresh. Refused while
// a job is still active.
func (s *ExtractionService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[s.activeID]; ok && !job.Terminal() {
		return domain.ErrJobRunning
	}
	s.jobs = make(map[string]*domain.Job)
	s.activeID = ""
	return nil
}

// SaveEditedRows replaces a completed job's compiled table with a
// human-edited version, renumbering identifiers from 1.
func (s *ExtractionService) SaveEditedRows(jobID string, rows []domain.ExtractedRow) ([]domain.ExtractedRow, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusCompleted {
		s.mu.Unlock()
		return nil, domain.ErrJobRunning
	}
	runRef := job.ResultRef
	s.mu.Unlock()

	for i := range rows {
		rows[i].PCAIdentifier = i + 1
	}
	if err := s.store.SaveFinalRows(runRef, rows); err != nil {
		return nil, fmt.Errorf("saving edited rows: %w", err)
	}

	s.mu.Lock()
	job.CompiledRows = rows
	s.mu.Unlock()
	return rows, nil
}

// FinalCSVPath exposes the on-disk location of a completed job's CSV.
func (s *ExtractionService) FinalCSVPath(jobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return "", domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusCompleted {
		return "", domain.ErrNoRows
	}
	return s.store.FinalCSVPath(job.ResultRef), nil
}

func (s *ExtractionService) setStatus(jobID string, status domain.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok && !job.Terminal() {
		job.Status = status
	}
}

func (s *ExtractionService) publish(jobID string, ev domain.ProgressEvent) {
	ev.JobID = jobID
	s.events.Publish(ev)
}

// snapshotLocked deep-copies a job. Callers must hold s.mu.
func (s *ExtractionService) snapshotLocked(job *domain.Job) *domain.Job {
	cp := *job
	cp.ChunkResults = append([]domain.ChunkResult(nil), job.ChunkResults...)
	cp.RowsSoFar = append([]domain.ExtractedRow(nil), job.RowsSoFar...)
	cp.CompiledRows = append([]domain.ExtractedRow(nil), job.CompiledRows...)
	cp.Warnings = append([]string(nil), job.Warnings...)
	return &cp
}
