package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/response"
)

type Handler struct {
	service ledger.Service
}

func NewHandler(service ledger.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var req ListLedgerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	from, to, err := req.Range()
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	entries, total, err := h.service.List(c.Request.Context(), auth.GetActor(c), ledger.Filter{
		FacilityID: uri.ID,
		From:       from,
		To:         to,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]TransactionResponse, len(entries))
	for i, e := range entries {
		items[i] = NewTransactionResponse(e)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) AddManual(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body ManualEntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	entry, err := h.service.AddManual(c.Request.Context(), uri.ID, auth.GetActor(c), ledger.ManualEntryRequest{
		Amount:        body.Amount,
		Direction:     ledger.Direction(body.Direction),
		PaymentMethod: body.PaymentMethod,
		Description:   body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewTransactionResponse(entry))
}
