package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/blocks")

	// Public read so the availability view can explain closures.
	group.GET("", h.List)

	// === Manager Routes ===
	group.Use(authMiddleware, auth.RequireRole(auth.RoleManager, auth.RoleAdmin))
	{
		group.POST("", h.Create)
		group.DELETE("/:id", h.Delete)
	}
}
