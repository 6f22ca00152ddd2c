package http

import (
	"errors"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/recurring"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type RuleResponse struct {
	ID         string    `json:"id"`
	CourtID    string    `json:"court_id"`
	FacilityID string    `json:"facility_id"`
	UserID     string    `json:"user_id"`
	DayOfWeek  int       `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	AnchorDate string    `json:"anchor_date"`
	Price      int64     `json:"price"`
	Type       string    `json:"type"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewRuleResponse(r *recurring.Rule) RuleResponse {
	return RuleResponse{
		ID:         r.ID,
		CourtID:    r.CourtID,
		FacilityID: r.FacilityID,
		UserID:     r.UserID,
		DayOfWeek:  int(r.DayOfWeek),
		StartTime:  schedule.FormatMinute(r.StartMinute),
		EndTime:    schedule.FormatMinute(r.EndMinute),
		AnchorDate: r.AnchorDate.Format(request.DateLayout),
		Price:      r.Price,
		Type:       string(r.Type),
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}
}

type CreateRuleRequest struct {
	CourtID    string `json:"court_id" binding:"required,uuid"`
	UserID     string `json:"user_id" binding:"required"`
	DayOfWeek  *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time" binding:"required"`
	AnchorDate string `json:"anchor_date" binding:"required"`
	Price      int64  `json:"price" binding:"min=0"`
	Type       string `json:"type" binding:"omitempty,oneof=SUBSCRIPTION FIXED TRAINING"`

	anchor time.Time
	start  int
	end    int
}

func (r *CreateRuleRequest) Validate() error {
	d, err := time.Parse(request.DateLayout, r.AnchorDate)
	if err != nil {
		return errors.New("anchor_date must be YYYY-MM-DD")
	}
	start, ok := schedule.ParseMinute(r.StartTime)
	if !ok {
		return errors.New("start_time must be HH:MM")
	}
	end, ok := schedule.ParseMinute(r.EndTime)
	if !ok {
		return errors.New("end_time must be HH:MM")
	}
	r.anchor, r.start, r.end = d, start, end
	return nil
}

type ListRulesRequest struct {
	request.ListParams
	CourtID    string `form:"court_id" binding:"omitempty,uuid"`
	FacilityID string `form:"facility_id" binding:"omitempty,uuid"`
	ActiveOnly bool   `form:"active"`
}

type GenerateRequest struct {
	Occurrences int `json:"occurrences" binding:"required,min=1,max=52"`
}

type SkippedResponse struct {
	Date       string `json:"date"`
	Reason     string `json:"reason"`
	ConflictID string `json:"conflict_id,omitempty"`
}

type GenerateResponse struct {
	Created    int               `json:"created"`
	BookingIDs []string          `json:"booking_ids"`
	Skipped    []SkippedResponse `json:"skipped"`
}

func NewGenerateResponse(res *recurring.GenerateResult) GenerateResponse {
	skipped := make([]SkippedResponse, len(res.Skipped))
	for i, s := range res.Skipped {
		skipped[i] = SkippedResponse{
			Date:       s.Date.Format(request.DateLayout),
			Reason:     s.Reason,
			ConflictID: s.ConflictID,
		}
	}
	return GenerateResponse{Created: res.Created, BookingIDs: res.BookingIDs, Skipped: skipped}
}
