package facility

import (
	"time"
	_ "time/tzdata"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

var (
	ErrNotFound         = apperror.NotFound("facility not found")
	ErrCourtNotFound    = apperror.NotFound("court not found")
	ErrMerchantNotFound = apperror.NotFound("no facility for merchant")
	ErrForbidden        = apperror.Forbidden("forbidden: only the facility manager can change this facility")
	ErrMerchantTaken    = apperror.InvalidState("merchant id already linked to another facility")

	ErrNameRequired      = apperror.Validation("name is required")
	ErrInvalidHour       = apperror.Validation("hours must be between 0 and 24")
	ErrInvalidHoursOrder = apperror.Validation("close hour must be after open hour")
	ErrInvalidTimezone   = apperror.Validation("unknown timezone")
	ErrInvalidGranule    = apperror.Validation("slot granularity must be between 1 and 1440 minutes")
	ErrInvalidPolicy     = apperror.Validation("cancellation policy hours must not be negative")
	ErrInvalidDuration   = apperror.Validation("slot duration must be a positive multiple of the facility granularity")
	ErrCredentials       = apperror.Validation("merchant id and access token are required")
)

// Facility is a venue with its opening-hours configuration.
type Facility struct {
	ID                      string
	Name                    string
	ManagerID               string
	Timezone                string
	DefaultOpenHour         *int
	DefaultCloseHour        *int
	SlotGranularity         int
	Weekly                  schedule.Weekly
	CancellationPolicyHours int
	// ProviderMerchantID links incoming payment notifications to this facility.
	ProviderMerchantID *string
	// ProviderAccessToken is stored encrypted and never leaves the service layer in clear.
	ProviderAccessToken string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ScheduleConfig returns the inputs of the schedule resolver.
func (f *Facility) ScheduleConfig() schedule.Config {
	return schedule.Config{
		DefaultOpenHour:  f.DefaultOpenHour,
		DefaultCloseHour: f.DefaultCloseHour,
		Granularity:      f.SlotGranularity,
		Weekly:           f.Weekly,
	}
}

// Location returns the facility time zone, UTC when unset or unknown.
func (f *Facility) Location() *time.Location {
	if f.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today is the facility's current calendar date.
func (f *Facility) Today(now time.Time) time.Time {
	return schedule.Date(now.In(f.Location()))
}

// StartsAt is the instant a slot on date starting at minute begins, in facility time.
func (f *Facility) StartsAt(date time.Time, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, minute, 0, 0, f.Location())
}

// ManagedBy reports whether actor may administer the facility.
func (f *Facility) ManagedBy(actor auth.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID != "" && actor.UserID == f.ManagerID
}

// HasCredentials reports whether online payments can be reconciled for this facility.
func (f *Facility) HasCredentials() bool {
	return f.ProviderMerchantID != nil && f.ProviderAccessToken != ""
}

// Court is a bookable playing surface of a facility.
type Court struct {
	ID                  string
	FacilityID          string
	Name                string
	SlotDurationMinutes int
	CreatedAt           time.Time
}

// Filter defines parameters for listing facilities.
type Filter struct {
	ManagerID string
	Name      string
	Page      int
	PageSize  int
	SortOrder string
}
