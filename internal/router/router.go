package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pcax/internal/handler"
	"pcax/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
// experimentH may be nil when the archive database is disabled.
func Setup(
	extractH *handler.ExtractHandler,
	evalH *handler.EvalHandler,
	promptH *handler.PromptHandler,
	healthH *handler.HealthHandler,
	experimentH *handler.ExperimentHandler,
	allowedOrigins []string,
	log *zap.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	extractions := v1.Group("/extractions")
	extractions.POST("", extractH.Start)
	extractions.GET("/active", extractH.Active)
	extractions.GET("/events", extractH.Events)
	extractions.POST("/reset", extractH.Reset)
	extractions.GET("/:id", extractH.Status)
	extractions.POST("/:id/cancel", extractH.Cancel)
	extractions.GET("/:id/rows", extractH.Rows)
	extractions.PUT("/:id/rows", extractH.SaveRows)
	extractions.GET("/:id/download", extractH.Download)
	extractions.POST("/:id/evaluate", evalH.Evaluate)

	prompts := v1.Group("/prompts")
	prompts.GET("", promptH.List)
	prompts.GET("/:id", promptH.Get)
	prompts.PUT("/:id/activate", promptH.Activate)

	if experimentH != nil {
		experiments := v1.Group("/experiments")
		experiments.GET("", experimentH.List)
		experiments.GET("/:id/rows", experimentH.Rows)
	}

	return r
}
