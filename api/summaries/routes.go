package summaries

import (
	"github.com/gin-gonic/gin"

	"github.com/podbrief/podbrief-api/api/types"
)

// RegisterRoutes registers summary routes. The generate middleware applies
// the stricter generation rate limit to the streaming endpoint only.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, generateMiddleware gin.HandlerFunc) {
	// POST /api/v1/episodes/:id/summarize - Stream a generated summary
	router.POST("/:id/summarize", generateMiddleware, Generate(deps))

	// GET /api/v1/episodes/:id/summary - Read a stored summary
	router.GET("/:id/summary", Get(deps))

	// DELETE /api/v1/episodes/:id/summary - Soft delete
	router.DELETE("/:id/summary", Delete(deps))
}
