package v1

import (
	roomHTTP "go-jukebox/internal/pkg/room/presentation/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, deps roomHTTP.Dependencies) {
	v1 := r.Group("/api/v1")
	roomHTTP.RegisterRoutes(v1, deps)
}
