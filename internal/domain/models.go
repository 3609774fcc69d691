package domain

import (
	"strconv"
	"time"
)

// Page holds the raw text of a single report page.
type Page struct {
	PageNum int    `json:"page_num"`
	Text    string `json:"text"`
}

// Document is an ordered sequence of pages produced by the upstream
// text-extraction service. Immutable once built.
type Document struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Chunk is a contiguous, page-aligned slice of a document sent to the LLM
// in one call. Chunks never split a page's text.
type Chunk struct {
	Index       int    `json:"index"` // 1-based
	TotalChunks int    `json:"total_chunks"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
	Text        string `json:"text"`
}

// PageRef returns the "start-end" citation string for the chunk.
func (c Chunk) PageRef() string {
	if c.StartPage == c.EndPage {
		return strconv.Itoa(c.StartPage)
	}
	return strconv.Itoa(c.StartPage) + "-" + strconv.Itoa(c.EndPage)
}

// ExtractedRow is a single Potentially Contaminating Activity record.
// PCAIdentifier is assigned after compilation, never by the LLM.
type ExtractedRow struct {
	PCAIdentifier          int    `db:"pca_identifier" json:"pca_identifier,omitempty"`
	Address                string `db:"address" json:"address"`
	LocationRelationToSite string `db:"location_relation_to_site" json:"location_relation_to_site"`
	PCANumber              *int   `db:"pca_number" json:"pca_number"`
	PCAName                string `db:"pca_name" json:"pca_name"`
	DescriptionTimeline    string `db:"description_timeline" json:"description_timeline"`
	SourcePages            string `db:"source_pages" json:"source_pages"`
}

// GroundTruthEntry has the same shape as ExtractedRow but is loaded from a
// human-curated reference file and never mutated.
type GroundTruthEntry = ExtractedRow

// ChunkResult records the outcome of one chunk dispatch.
type ChunkResult struct {
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	PagesStart  int    `json:"pages_start"`
	PagesEnd    int    `json:"pages_end"`
	RowsFound   int    `json:"rows_found"`
	Status      string `json:"status"` // completed, degraded
	Warning     string `json:"warning,omitempty"`
}

// Job tracks the lifecycle of one extraction run. Exactly one job is active
// per orchestrator at a time. Terminal states are final.
type Job struct {
	ID              string         `json:"job_id"`
	Status          JobStatus      `json:"status"`
	DocumentName    string         `json:"document_name"`
	PromptVersion   string         `json:"prompt_version"`
	Provider        string         `json:"provider"`
	Model           string         `json:"model"`
	TotalChunks     int            `json:"total_chunks"`
	CompletedChunks int            `json:"completed_chunks"`
	ChunkResults    []ChunkResult  `json:"chunk_results"`
	RowsSoFar       []ExtractedRow `json:"rows_so_far"`
	CompiledRows    []ExtractedRow `json:"compiled_rows,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Error           string         `json:"error,omitempty"`
	ResultRef       string         `json:"result_ref,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// ProgressEvent is published on the job's event stream.
type ProgressEvent struct {
	JobID           string         `json:"job_id"`
	Status          EventStatus    `json:"status"`
	Message         string         `json:"message,omitempty"`
	ChunkIndex      int            `json:"chunk_index,omitempty"`
	TotalChunks     int            `json:"total_chunks,omitempty"`
	CompletedChunks int            `json:"completed_chunks,omitempty"`
	RowsFound       int            `json:"rows_found,omitempty"`
	Rows            []ExtractedRow `json:"rows,omitempty"`
	ResultRef       string         `json:"result_ref,omitempty"`
}

// MatchTier classifies how a compiled row relates to a ground-truth entry.
type MatchTier string

const (
	// MatchTierAccepted is a one-to-one match at or above the acceptance threshold.
	MatchTierAccepted MatchTier = "accepted"
	// MatchTierNearMiss is a best candidate below the acceptance threshold but
	// above the near-miss floor; the ground-truth entry stays a false negative
	// and the compiled row is not counted as a false positive.
	MatchTierNearMiss MatchTier = "near_miss"
	// MatchTierNone means no plausible candidate was found.
	MatchTierNone MatchTier = "none"
)

// MatchResult pairs a ground-truth entry with at most one compiled row.
type MatchResult struct {
	GroundTruthIndex int       `json:"gt_index"`
	ExtractedIndex   int       `json:"ext_index"` // -1 when unmatched
	Score            float64   `json:"score"`
	Tier             MatchTier `json:"tier"`
	GroundTruthAddr  string    `json:"gt_address"`
	ExtractedAddr    string    `json:"ext_address,omitempty"`
	PCANumber        string    `json:"pca_number,omitempty"`
}

// EvalMetrics aggregates match results. Recall is the headline metric.
type EvalMetrics struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1Score        float64 `json:"f1_score"`
	Accuracy       float64 `json:"accuracy"`
	GroundTruthCnt int     `json:"gt_count"`
	ExtractedCnt   int     `json:"extracted_count"`
}

// EvalReport is the full evaluation output.
type EvalReport struct {
	Metrics        EvalMetrics    `json:"metrics"`
	Matches        []MatchResult  `json:"matches"`
	FalseNegatives []MatchResult  `json:"false_negatives"`
	FalsePositives []ExtractedRow `json:"false_positives"`
}
