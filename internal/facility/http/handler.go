package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/response"
)

type Handler struct {
	service facility.Service
}

func NewHandler(service facility.Service) *Handler {
	return &Handler{service: service}
}

// Create adds a new facility. Only admins reach this handler.
func (h *Handler) Create(c *gin.Context) {
	var body CreateFacilityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := facility.CreateFacilityRequest{
		Name:                    body.Name,
		ManagerID:               body.ManagerID,
		Timezone:                body.Timezone,
		DefaultOpenHour:         body.DefaultOpenHour,
		DefaultCloseHour:        body.DefaultCloseHour,
		SlotGranularity:         body.SlotGranularity,
		CancellationPolicyHours: body.CancellationPolicyHours,
	}
	if body.WeeklySchedule != nil {
		req.Weekly = *body.WeeklySchedule
	}

	f, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewFacilityResponse(f))
}

func (h *Handler) List(c *gin.Context) {
	var req ListFacilitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := facility.Filter{
		ManagerID: req.ManagerID,
		Name:      req.Name,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	}

	facilities, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]FacilityResponse, len(facilities))
	for i, f := range facilities {
		items[i] = NewFacilityResponse(f)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	f, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewFacilityResponse(f))
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateScheduleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	req := facility.UpdateScheduleRequest{
		Timezone:                body.Timezone,
		DefaultOpenHour:         body.DefaultOpenHour,
		DefaultCloseHour:        body.DefaultCloseHour,
		SlotGranularity:         body.SlotGranularity,
		Weekly:                  body.WeeklySchedule,
		CancellationPolicyHours: body.CancellationPolicyHours,
	}

	f, err := h.service.UpdateSchedule(c.Request.Context(), uri.ID, auth.GetActor(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewFacilityResponse(f))
}

func (h *Handler) SetCredentials(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body CredentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	if err := h.service.SetCredentials(c.Request.Context(), uri.ID, auth.GetActor(c), body.MerchantID, body.AccessToken); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateCourt(c *gin.Context) {
	var body CreateCourtRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	court, err := h.service.CreateCourt(c.Request.Context(), auth.GetActor(c), facility.CreateCourtRequest{
		FacilityID:          body.FacilityID,
		Name:                body.Name,
		SlotDurationMinutes: body.SlotDurationMinutes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewCourtResponse(court))
}

func (h *Handler) ListCourts(c *gin.Context) {
	var req ListCourtsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	courts, err := h.service.ListCourts(c.Request.Context(), req.FacilityID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]CourtResponse, len(courts))
	for i, court := range courts {
		items[i] = NewCourtResponse(court)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) GetCourt(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	court, err := h.service.GetCourt(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCourtResponse(court))
}

func (h *Handler) UpdateCourt(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateCourtRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	court, err := h.service.UpdateCourt(c.Request.Context(), uri.ID, auth.GetActor(c), facility.UpdateCourtRequest{
		Name:                body.Name,
		SlotDurationMinutes: body.SlotDurationMinutes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCourtResponse(court))
}
