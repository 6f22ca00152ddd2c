package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/recurring-slots")
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
	}

	// === Manager Routes ===
	managers := group.Group("")
	managers.Use(auth.RequireRole(auth.RoleManager, auth.RoleAdmin))
	{
		managers.POST("", h.Create)
		managers.POST("/:id/generate", h.Generate)
		managers.DELETE("/:id", h.Deactivate)
	}
}
