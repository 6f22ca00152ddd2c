package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	managers := auth.RequireRole(auth.RoleManager, auth.RoleAdmin)

	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/confirm", managers, h.Confirm)
		group.GET("/:id/participants", h.ListParticipants)
		group.POST("/:id/participants", h.AddParticipant)
	}

	participants := g.Group("/participants")
	participants.Use(authMiddleware, managers)
	{
		participants.POST("/:id/payments", h.ApplyPayment)
	}
}
