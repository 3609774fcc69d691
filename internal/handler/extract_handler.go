package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/csvexport"
	"pcax/internal/domain"
	"pcax/internal/service"
)

// ExtractHandler exposes the extraction pipeline over HTTP.
type ExtractHandler struct {
	svc *service.ExtractionService
	log *zap.Logger
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(svc *service.ExtractionService, log *zap.Logger) *ExtractHandler {
	return &ExtractHandler{svc: svc, log: log}
}

// StartRequest is the POST /extractions payload. Model, temperature,
// api_key, and chunk_size are optional per-job overrides of the server
// configuration.
type StartRequest struct {
	DocumentName  string        `json:"document_name"`
	Pages         []domain.Page `json:"pages" binding:"required"`
	PromptVersion string        `json:"prompt_version"`
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	Temperature   *float64      `json:"temperature"`
	APIKey        string        `json:"api_key"`
	ChunkSize     int           `json:"chunk_size"`
}

// Start handles POST /api/v1/extractions. Returns 202 with the new job, or
// 409 while a previous job is still running.
func (h *ExtractHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "pages are required")
		return
	}

	doc := domain.Document{Name: req.DocumentName, Pages: req.Pages}
	job, err := h.svc.StartExtraction(c.Request.Context(), doc, service.StartOptions{
		PromptVersion:   req.PromptVersion,
		Provider:        req.Provider,
		Model:           req.Model,
		Temperature:     req.Temperature,
		APIKey:          req.APIKey,
		ChunkWordBudget: req.ChunkSize,
	})
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	RespondAccepted(c, job)
}

// Status handles GET /api/v1/extractions/:id.
func (h *ExtractHandler) Status(c *gin.Context) {
	job, err := h.svc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, job)
}

// Active handles GET /api/v1/extractions/active.
func (h *ExtractHandler) Active(c *gin.Context) {
	job, err := h.svc.ActiveJob()
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, job)
}

// Cancel handles POST /api/v1/extractions/:id/cancel.
func (h *ExtractHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Param("id")); err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"cancelled": true})
}

// Reset handles POST /api/v1/extractions/reset.
func (h *ExtractHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(); err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"reset": true})
}

// Rows handles GET /api/v1/extractions/:id/rows. While the job runs it
// returns the partial rows accumulated so far; once completed it returns
// the compiled table.
func (h *ExtractHandler) Rows(c *gin.Context) {
	job, err := h.svc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	rows := job.RowsSoFar
	final := job.Status == domain.JobStatusCompleted
	if final {
		rows = job.CompiledRows
	}
	RespondOK(c, gin.H{
		"job_id":   job.ID,
		"status":   job.Status,
		"is_final": final,
		"rows":     rows,
	})
}

// SaveRows handles PUT /api/v1/extractions/:id/rows with the human-edited
// table. Identifiers are reassigned from 1.
func (h *ExtractHandler) SaveRows(c *gin.Context) {
	var req struct {
		Rows []domain.ExtractedRow `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "rows are required")
		return
	}

	rows, err := h.svc.SaveEditedRows(c.Param("id"), req.Rows)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"rows": rows})
}

// Download handles GET /api/v1/extractions/:id/download?format=csv|xlsx.
func (h *ExtractHandler) Download(c *gin.Context) {
	job, err := h.svc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		HandleError(c, h.log, domain.ErrNoRows)
		return
	}

	name := job.DocumentName
	if name == "" {
		name = job.ID
	}

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"_pca_table.xlsx"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := csvexport.WriteXLSX(c.Writer, job.CompiledRows); err != nil {
			h.log.Error("xlsx export failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	case "csv":
		path, err := h.svc.FinalCSVPath(job.ID)
		if err != nil {
			HandleError(c, h.log, err)
			return
		}
		c.FileAttachment(path, name+"_pca_table.csv")
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be csv or xlsx")
	}
}

// Events handles GET /api/v1/extractions/events, streaming progress events
// as server-sent events until the client disconnects.
func (h *ExtractHandler) Events(c *gin.Context) {
	ch, cancel := h.svc.Events().Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Status), ev)
			return ev.Status == domain.EventProgress || ev.Status == domain.EventCompiling
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
