package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/payment"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/response"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Webhook(c *gin.Context) {
	var body WebhookRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid webhook payload", err)
		return
	}

	paymentID := body.Data.ID
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}
	typ := body.Type
	if typ == "" {
		typ = c.Query("type")
	}

	outcome, err := h.service.Process(c.Request.Context(), payment.Notification{
		Type:       typ,
		Action:     body.Action,
		MerchantID: body.UserID,
		PaymentID:  paymentID,
		RequestID:  c.GetHeader("x-request-id"),
		Signature:  c.GetHeader("x-signature"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Status: "processed", Outcome: string(outcome)})
}
