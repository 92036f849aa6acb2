package version

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the version endpoint
func RegisterRoutes(engine *gin.Engine) {
	engine.GET("/", Get())
}
