package transcripts

import (
	"github.com/gin-gonic/gin"

	"github.com/podbrief/podbrief-api/api/types"
)

// RegisterRoutes registers transcript routes. The trigger middleware applies
// the stricter generation rate limit to the write endpoint only.
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies, triggerMiddleware gin.HandlerFunc) {
	// POST /api/v1/episodes/:id/transcribe - Start transcript generation
	router.POST("/:id/transcribe", triggerMiddleware, Trigger(deps))

	// GET /api/v1/episodes/:id/transcript - Read the transcript as minute buckets
	router.GET("/:id/transcript", Get(deps))

	// GET /api/v1/episodes/:id/transcript/status - Lifecycle state only
	router.GET("/:id/transcript/status", Status(deps))

	// DELETE /api/v1/episodes/:id/transcript - Soft delete
	router.DELETE("/:id/transcript", Delete(deps))
}
