package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

// RegisterRoutes registers the per-facility ledger routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/facilities/:id/ledger")
	group.Use(authMiddleware, auth.RequireRole(auth.RoleManager, auth.RoleAdmin))
	{
		group.GET("", h.List)
		group.POST("", h.AddManual)
	}
}
