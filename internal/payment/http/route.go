package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	// Unauthenticated; the payload is signed.
	g.POST("/webhooks/payments", h.Webhook)
}
