package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/port"
)

// ExperimentHandler serves the archived experiment history.
type ExperimentHandler struct {
	repo port.ExperimentRepository
	log  *zap.Logger
}

// NewExperimentHandler creates a new ExperimentHandler.
func NewExperimentHandler(repo port.ExperimentRepository, log *zap.Logger) *ExperimentHandler {
	return &ExperimentHandler{repo: repo, log: log}
}

// List handles GET /api/v1/experiments?limit=N.
func (h *ExperimentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.repo.ListExperiments(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, jobs)
}

// Rows handles GET /api/v1/experiments/:id/rows.
func (h *ExperimentHandler) Rows(c *gin.Context) {
	rows, err := h.repo.GetRows(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"rows": rows})
}
