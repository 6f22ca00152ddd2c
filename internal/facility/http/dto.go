package http

import (
	"errors"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type FacilityResponse struct {
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	ManagerID               string          `json:"manager_id,omitempty"`
	Timezone                string          `json:"timezone"`
	DefaultOpenHour         *int            `json:"default_open_hour"`
	DefaultCloseHour        *int            `json:"default_close_hour"`
	SlotGranularity         int             `json:"slot_granularity"`
	WeeklySchedule          schedule.Weekly `json:"weekly_schedule"`
	CancellationPolicyHours int             `json:"cancellation_policy_hours"`
	OnlinePayments          bool            `json:"online_payments"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func NewFacilityResponse(f *facility.Facility) FacilityResponse {
	return FacilityResponse{
		ID:                      f.ID,
		Name:                    f.Name,
		ManagerID:               f.ManagerID,
		Timezone:                f.Timezone,
		DefaultOpenHour:         f.DefaultOpenHour,
		DefaultCloseHour:        f.DefaultCloseHour,
		SlotGranularity:         f.SlotGranularity,
		WeeklySchedule:          f.Weekly,
		CancellationPolicyHours: f.CancellationPolicyHours,
		OnlinePayments:          f.HasCredentials(),
		CreatedAt:               f.CreatedAt,
		UpdatedAt:               f.UpdatedAt,
	}
}

type CourtResponse struct {
	ID                  string    `json:"id"`
	FacilityID          string    `json:"facility_id"`
	Name                string    `json:"name"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	CreatedAt           time.Time `json:"created_at"`
}

func NewCourtResponse(c *facility.Court) CourtResponse {
	return CourtResponse{
		ID:                  c.ID,
		FacilityID:          c.FacilityID,
		Name:                c.Name,
		SlotDurationMinutes: c.SlotDurationMinutes,
		CreatedAt:           c.CreatedAt,
	}
}

type CreateFacilityRequest struct {
	Name                    string           `json:"name" binding:"required"`
	ManagerID               string           `json:"manager_id"`
	Timezone                string           `json:"timezone"`
	DefaultOpenHour         *int             `json:"default_open_hour" binding:"omitempty,min=0,max=24"`
	DefaultCloseHour        *int             `json:"default_close_hour" binding:"omitempty,min=0,max=24"`
	SlotGranularity         int              `json:"slot_granularity" binding:"omitempty,min=1,max=1440"`
	WeeklySchedule          *schedule.Weekly `json:"weekly_schedule"`
	CancellationPolicyHours *int             `json:"cancellation_policy_hours" binding:"omitempty,min=0"`
}

type UpdateScheduleRequest struct {
	Timezone                *string          `json:"timezone"`
	DefaultOpenHour         *int             `json:"default_open_hour" binding:"omitempty,min=0,max=24"`
	DefaultCloseHour        *int             `json:"default_close_hour" binding:"omitempty,min=0,max=24"`
	SlotGranularity         *int             `json:"slot_granularity" binding:"omitempty,min=1,max=1440"`
	WeeklySchedule          *schedule.Weekly `json:"weekly_schedule"`
	CancellationPolicyHours *int             `json:"cancellation_policy_hours" binding:"omitempty,min=0"`
}

var ErrEmptyUpdate = errors.New("at least one field must be provided")

func (r *UpdateScheduleRequest) Validate() error {
	if r.Timezone == nil && r.DefaultOpenHour == nil && r.DefaultCloseHour == nil &&
		r.SlotGranularity == nil && r.WeeklySchedule == nil && r.CancellationPolicyHours == nil {
		return ErrEmptyUpdate
	}
	return nil
}

type CredentialsRequest struct {
	MerchantID  string `json:"merchant_id" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

type ListFacilitiesRequest struct {
	request.ListParams
	ManagerID string `form:"manager_id"`
	Name      string `form:"name"`
}

type CreateCourtRequest struct {
	FacilityID          string `json:"facility_id" binding:"required,uuid"`
	Name                string `json:"name" binding:"required"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" binding:"omitempty,min=1,max=1440"`
}

type UpdateCourtRequest struct {
	Name                *string `json:"name"`
	SlotDurationMinutes *int    `json:"slot_duration_minutes" binding:"omitempty,min=1,max=1440"`
}

func (r *UpdateCourtRequest) Validate() error {
	if r.Name == nil && r.SlotDurationMinutes == nil {
		return ErrEmptyUpdate
	}
	return nil
}

type ListCourtsRequest struct {
	FacilityID string `form:"facility_id" binding:"required,uuid"`
}
