package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

// RegisterRoutes registers facility and court routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	facilities := g.Group("/facilities")
	facilities.Use(authMiddleware)
	{
		facilities.GET("", h.List)
		facilities.GET("/:id", h.Get)
		facilities.POST("", auth.RequireRole(auth.RoleAdmin), h.Create)
		facilities.PATCH("/:id/schedule", auth.RequireRole(auth.RoleManager, auth.RoleAdmin), h.UpdateSchedule)
		facilities.PUT("/:id/payment-credentials", auth.RequireRole(auth.RoleManager, auth.RoleAdmin), h.SetCredentials)
	}

	courts := g.Group("/courts")
	courts.Use(authMiddleware)
	{
		courts.GET("", h.ListCourts)
		courts.GET("/:id", h.GetCourt)
		courts.POST("", auth.RequireRole(auth.RoleManager, auth.RoleAdmin), h.CreateCourt)
		courts.PATCH("/:id", auth.RequireRole(auth.RoleManager, auth.RoleAdmin), h.UpdateCourt)
	}
}
