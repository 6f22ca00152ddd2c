package facility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

// CredentialCipher seals provider access tokens at rest.
type CredentialCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(encoded string) (string, error)
}

// CreateFacilityRequest carries data to create a facility.
type CreateFacilityRequest struct {
	Name                    string
	ManagerID               string
	Timezone                string
	DefaultOpenHour         *int
	DefaultCloseHour        *int
	SlotGranularity         int
	Weekly                  schedule.Weekly
	CancellationPolicyHours *int
}

// UpdateScheduleRequest carries partial updates of the opening-hours configuration.
type UpdateScheduleRequest struct {
	Timezone                *string
	DefaultOpenHour         *int
	DefaultCloseHour        *int
	SlotGranularity         *int
	Weekly                  *schedule.Weekly
	CancellationPolicyHours *int
}

type CreateCourtRequest struct {
	FacilityID          string
	Name                string
	SlotDurationMinutes int
}

type UpdateCourtRequest struct {
	Name                *string
	SlotDurationMinutes *int
}

type Service interface {
	Create(ctx context.Context, req CreateFacilityRequest) (*Facility, error)
	GetByID(ctx context.Context, id string) (*Facility, error)
	List(ctx context.Context, filter Filter) ([]*Facility, int, error)
	UpdateSchedule(ctx context.Context, id string, actor auth.Actor, req UpdateScheduleRequest) (*Facility, error)
	SetCredentials(ctx context.Context, id string, actor auth.Actor, merchantID, accessToken string) error
	// ResolveMerchant finds the tenant of a payment notification and returns its
	// decrypted access token.
	ResolveMerchant(ctx context.Context, merchantID string) (*Facility, string, error)

	CreateCourt(ctx context.Context, actor auth.Actor, req CreateCourtRequest) (*Court, error)
	GetCourt(ctx context.Context, id string) (*Court, error)
	ListCourts(ctx context.Context, facilityID string) ([]*Court, error)
	UpdateCourt(ctx context.Context, id string, actor auth.Actor, req UpdateCourtRequest) (*Court, error)
	// CourtWithFacility loads a court together with the facility that owns it.
	CourtWithFacility(ctx context.Context, courtID string) (*Court, *Facility, error)
}

type service struct {
	repo   Repository
	cipher CredentialCipher
}

func NewService(repo Repository, cipher CredentialCipher) Service {
	return &service{repo: repo, cipher: cipher}
}

func validateHour(h *int) error {
	if h != nil && (*h < 0 || *h > 24) {
		return ErrInvalidHour
	}
	return nil
}

func validateHours(openHour, closeHour *int) error {
	if err := validateHour(openHour); err != nil {
		return err
	}
	if err := validateHour(closeHour); err != nil {
		return err
	}
	if openHour != nil && closeHour != nil && *closeHour <= *openHour {
		return ErrInvalidHoursOrder
	}
	return nil
}

// validateFacility checks the logical rules of the schedule configuration.
func validateFacility(f *Facility) error {
	if err := validateHours(f.DefaultOpenHour, f.DefaultCloseHour); err != nil {
		return err
	}
	for _, day := range f.Weekly {
		if day.Closed {
			continue
		}
		if err := validateHours(day.OpenHour, day.CloseHour); err != nil {
			return err
		}
	}
	if f.SlotGranularity <= 0 || f.SlotGranularity > schedule.MinutesPerDay {
		return ErrInvalidGranule
	}
	if f.CancellationPolicyHours < 0 {
		return ErrInvalidPolicy
	}
	if _, err := time.LoadLocation(f.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

func intPtr(v int) *int { return &v }

func (s *service) Create(ctx context.Context, req CreateFacilityRequest) (*Facility, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	f := &Facility{
		Name:                    strings.TrimSpace(req.Name),
		ManagerID:               req.ManagerID,
		Timezone:                req.Timezone,
		DefaultOpenHour:         req.DefaultOpenHour,
		DefaultCloseHour:        req.DefaultCloseHour,
		SlotGranularity:         req.SlotGranularity,
		Weekly:                  req.Weekly,
		CancellationPolicyHours: 24,
	}
	if f.Timezone == "" {
		f.Timezone = "UTC"
	}
	// A facility created without defaults opens 9 to 23.
	if f.DefaultOpenHour == nil && f.DefaultCloseHour == nil {
		f.DefaultOpenHour = intPtr(schedule.DefaultOpenHour)
		f.DefaultCloseHour = intPtr(schedule.DefaultCloseHour)
	}
	if f.SlotGranularity == 0 {
		f.SlotGranularity = 60
	}
	if req.CancellationPolicyHours != nil {
		f.CancellationPolicyHours = *req.CancellationPolicyHours
	}

	if err := validateFacility(f); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Facility, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Facility, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) UpdateSchedule(ctx context.Context, id string, actor auth.Actor, req UpdateScheduleRequest) (*Facility, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.ManagedBy(actor) {
		return nil, ErrForbidden
	}

	if req.Timezone != nil {
		f.Timezone = *req.Timezone
	}
	if req.DefaultOpenHour != nil {
		f.DefaultOpenHour = req.DefaultOpenHour
	}
	if req.DefaultCloseHour != nil {
		f.DefaultCloseHour = req.DefaultCloseHour
	}
	if req.Weekly != nil {
		f.Weekly = *req.Weekly
	}
	if req.CancellationPolicyHours != nil {
		f.CancellationPolicyHours = *req.CancellationPolicyHours
	}
	granularityChanged := req.SlotGranularity != nil && *req.SlotGranularity != f.SlotGranularity
	if req.SlotGranularity != nil {
		f.SlotGranularity = *req.SlotGranularity
	}

	if err := validateFacility(f); err != nil {
		return nil, err
	}

	// Existing courts must still fill whole grid steps.
	if granularityChanged {
		courts, err := s.repo.ListCourts(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range courts {
			if c.SlotDurationMinutes%f.SlotGranularity != 0 {
				return nil, ErrInvalidDuration.WithDetails(map[string]any{"court_id": c.ID})
			}
		}
	}

	if err := s.repo.UpdateSchedule(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) SetCredentials(ctx context.Context, id string, actor auth.Actor, merchantID, accessToken string) error {
	merchantID = strings.TrimSpace(merchantID)
	if merchantID == "" || accessToken == "" {
		return ErrCredentials
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !f.ManagedBy(actor) {
		return ErrForbidden
	}

	sealed, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	return s.repo.SetCredentials(ctx, f.ID, merchantID, sealed)
}

func (s *service) ResolveMerchant(ctx context.Context, merchantID string) (*Facility, string, error) {
	f, err := s.repo.GetByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, "", err
	}
	if !f.HasCredentials() {
		return nil, "", ErrMerchantNotFound
	}
	token, err := s.cipher.Decrypt(f.ProviderAccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("decrypt access token for facility %s: %w", f.ID, err)
	}
	return f, token, nil
}

func validateDuration(duration, granularity int) error {
	if duration <= 0 || duration > schedule.MinutesPerDay || granularity <= 0 || duration%granularity != 0 {
		return ErrInvalidDuration
	}
	return nil
}

func (s *service) CreateCourt(ctx context.Context, actor auth.Actor, req CreateCourtRequest) (*Court, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	f, err := s.repo.GetByID(ctx, req.FacilityID)
	if err != nil {
		return nil, err
	}
	if !f.ManagedBy(actor) {
		return nil, ErrForbidden
	}

	duration := req.SlotDurationMinutes
	if duration == 0 {
		duration = f.SlotGranularity
	}
	if err := validateDuration(duration, f.SlotGranularity); err != nil {
		return nil, err
	}

	c := &Court{
		FacilityID:          f.ID,
		Name:                strings.TrimSpace(req.Name),
		SlotDurationMinutes: duration,
	}
	if err := s.repo.CreateCourt(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetCourt(ctx context.Context, id string) (*Court, error) {
	return s.repo.GetCourt(ctx, id)
}

func (s *service) ListCourts(ctx context.Context, facilityID string) ([]*Court, error) {
	if _, err := s.repo.GetByID(ctx, facilityID); err != nil {
		return nil, err
	}
	return s.repo.ListCourts(ctx, facilityID)
}

func (s *service) UpdateCourt(ctx context.Context, id string, actor auth.Actor, req UpdateCourtRequest) (*Court, error) {
	c, f, err := s.CourtWithFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.ManagedBy(actor) {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrNameRequired
		}
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.SlotDurationMinutes != nil {
		if err := validateDuration(*req.SlotDurationMinutes, f.SlotGranularity); err != nil {
			return nil, err
		}
		c.SlotDurationMinutes = *req.SlotDurationMinutes
	}

	if err := s.repo.UpdateCourt(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) CourtWithFacility(ctx context.Context, courtID string) (*Court, *Facility, error) {
	c, err := s.repo.GetCourt(ctx, courtID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.repo.GetByID(ctx, c.FacilityID)
	if err != nil {
		return nil, nil, err
	}
	return c, f, nil
}
