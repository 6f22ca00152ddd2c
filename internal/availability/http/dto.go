package http

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/court-scheduler/internal/availability"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type AvailabilityRequest struct {
	CourtID    string `form:"court_id" binding:"omitempty,uuid"`
	FacilityID string `form:"facility_id" binding:"omitempty,uuid"`
	Date       string `form:"date" binding:"required"`
	// CourtIDs is a comma separated subset of the facility's courts.
	CourtIDs string `form:"court_ids"`

	date     time.Time
	courtIDs []string
}

func (r *AvailabilityRequest) Validate() error {
	if r.CourtID == "" && r.FacilityID == "" {
		return errors.New("court_id or facility_id is required")
	}
	d, err := time.Parse(request.DateLayout, r.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	r.date = d

	if r.CourtIDs == "" {
		return nil
	}
	if r.FacilityID == "" {
		return errors.New("court_ids requires facility_id")
	}
	for _, id := range strings.Split(r.CourtIDs, ",") {
		id = strings.TrimSpace(id)
		if err := uuid.Validate(id); err != nil {
			return errors.New("court_ids must be a comma separated list of ids")
		}
		r.courtIDs = append(r.courtIDs, id)
	}
	return nil
}

type CourtInfo struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type CourtSlotResponse struct {
	CourtID   string `json:"court_id"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type SlotResponse struct {
	StartTime string              `json:"start_time"`
	Courts    []CourtSlotResponse `json:"courts"`
}

type AvailabilityResponse struct {
	FacilityID string         `json:"facility_id"`
	Date       string         `json:"date"`
	Open       bool           `json:"open"`
	OpenTime   string         `json:"open_time,omitempty"`
	CloseTime  string         `json:"close_time,omitempty"`
	Courts     []CourtInfo    `json:"courts"`
	Slots      []SlotResponse `json:"slots"`
}

func NewAvailabilityResponse(res *availability.Result) AvailabilityResponse {
	out := AvailabilityResponse{
		FacilityID: res.FacilityID,
		Date:       res.Date.Format(request.DateLayout),
		Open:       res.Open,
		Courts:     make([]CourtInfo, len(res.Courts)),
		Slots:      make([]SlotResponse, len(res.Slots)),
	}
	if res.Open {
		out.OpenTime = schedule.FormatMinute(res.Window.Open)
		out.CloseTime = schedule.FormatMinute(res.Window.Close)
	}
	for i, c := range res.Courts {
		out.Courts[i] = CourtInfo{ID: c.ID, Name: c.Name, SlotDurationMinutes: c.SlotDurationMinutes}
	}
	for i, s := range res.Slots {
		courts := make([]CourtSlotResponse, len(s.Courts))
		for j, c := range s.Courts {
			courts[j] = CourtSlotResponse{
				CourtID:   c.CourtID,
				EndTime:   schedule.FormatMinute(c.End),
				Available: c.Available,
			}
		}
		out.Slots[i] = SlotResponse{StartTime: schedule.FormatMinute(s.Start), Courts: courts}
	}
	return out
}
