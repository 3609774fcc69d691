package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/csvexport"
	"pcax/internal/domain"
	"pcax/internal/service"
)

// EvalHandler scores completed runs against uploaded ground-truth tables.
type EvalHandler struct {
	extractSvc *service.ExtractionService
	evalSvc    *service.EvalService
	log        *zap.Logger
}

// NewEvalHandler creates a new EvalHandler.
func NewEvalHandler(extractSvc *service.ExtractionService, evalSvc *service.EvalService, log *zap.Logger) *EvalHandler {
	return &EvalHandler{extractSvc: extractSvc, evalSvc: evalSvc, log: log}
}

// Evaluate handles POST /api/v1/extractions/:id/evaluate. The ground truth
// arrives either as a multipart CSV upload (field "ground_truth") or as a
// JSON body with a "ground_truth" row array.
func (h *EvalHandler) Evaluate(c *gin.Context) {
	job, err := h.extractSvc.GetJob(c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		HandleError(c, h.log, domain.ErrNoRows)
		return
	}

	groundTruth, err := h.readGroundTruth(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_GROUND_TRUTH", err.Error())
		return
	}
	if len(groundTruth) == 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_GROUND_TRUTH", "ground truth table is empty")
		return
	}

	report, err := h.evalSvc.EvaluateRun(job.ResultRef, groundTruth)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, report)
}

func (h *EvalHandler) readGroundTruth(c *gin.Context) ([]domain.ExtractedRow, error) {
	if file, err := c.FormFile("ground_truth"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return csvexport.Read(f)
	}

	var req struct {
		GroundTruth []domain.ExtractedRow `json:"ground_truth"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return req.GroundTruth, nil
}
