package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/port"
)

// PromptHandler exposes the versioned prompt store.
type PromptHandler struct {
	prompts port.PromptStore
	log     *zap.Logger
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(prompts port.PromptStore, log *zap.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, log: log}
}

// List handles GET /api/v1/prompts.
func (h *PromptHandler) List(c *gin.Context) {
	versions, err := h.prompts.List()
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, versions)
}

// Get handles GET /api/v1/prompts/:id, returning content too.
func (h *PromptHandler) Get(c *gin.Context) {
	v, err := h.prompts.Get(c.Param("id"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{
		"id":      v.ID,
		"name":    v.Name,
		"active":  v.Active,
		"content": v.Content,
	})
}

// Activate handles PUT /api/v1/prompts/:id/activate.
func (h *PromptHandler) Activate(c *gin.Context) {
	id := c.Param("id")
	if err := h.prompts.SetActive(id); err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"active_version": id})
}
