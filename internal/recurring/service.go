package recurring

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type Facilities interface {
	GetByID(ctx context.Context, id string) (*facility.Facility, error)
	CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error)
}

type Occupancy interface {
	LockCourt(ctx context.Context, courtID string) error
	Collect(ctx context.Context, courtID string, date time.Time, opts occupancy.Options) ([]occupancy.Source, error)
}

// Bookings is the slice of the booking store the generator writes through.
type Bookings interface {
	Create(ctx context.Context, b *booking.Booking) error
	CreateParticipant(ctx context.Context, p *booking.Participant) error
}

type CreateRequest struct {
	CourtID     string
	UserID      string
	DayOfWeek   int
	StartMinute int
	EndMinute   int
	AnchorDate  time.Time
	Price       int64
	Type        Type
	Actor       auth.Actor
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Rule, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context, filter Filter) ([]*Rule, int, error)
	Deactivate(ctx context.Context, id string, actor auth.Actor) error
	Generate(ctx context.Context, id string, occurrences int, actor auth.Actor) (*GenerateResult, error)
}

type service struct {
	repo       Repository
	bookings   Bookings
	tx         db.Transactor
	occupancy  Occupancy
	facilities Facilities
	clock      clock.Clock
}

func NewService(repo Repository, bookings Bookings, tx db.Transactor, occ Occupancy, facilities Facilities, clk clock.Clock) Service {
	return &service{repo: repo, bookings: bookings, tx: tx, occupancy: occ, facilities: facilities, clock: clk}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Rule, error) {
	if req.CourtID == "" || req.UserID == "" || req.AnchorDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, ErrInvalidWeekday
	}
	if req.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if req.Type == "" {
		req.Type = TypeFixed
	}
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}

	rule := &Rule{
		CourtID:     req.CourtID,
		UserID:      req.UserID,
		DayOfWeek:   time.Weekday(req.DayOfWeek),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		AnchorDate:  schedule.Date(req.AnchorDate),
		Price:       req.Price,
		Type:        req.Type,
		Active:      true,
	}
	if !rule.Interval().Valid() || rule.EndMinute > schedule.MinutesPerDay {
		return nil, ErrInvalidInterval
	}

	court, fac, err := s.facilities.CourtWithFacility(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}
	if !fac.ManagedBy(req.Actor) {
		return nil, ErrForbidden
	}
	rule.FacilityID = fac.ID

	from := later(fac.Today(s.clock.Now()), rule.AnchorDate)
	first := rule.FirstOnOrAfter(from)
	if !schedule.FitsWindow(fac.ScheduleConfig(), first, rule.StartMinute, rule.EndMinute) {
		return nil, ErrOutsideHours
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.occupancy.LockCourt(ctx, court.ID); err != nil {
			return err
		}
		end := from.AddDate(0, 0, ValidationWindowDays)
		for d := first; d.Before(end); d = d.AddDate(0, 0, 7) {
			sources, err := s.occupancy.Collect(ctx, court.ID, d, occupancy.Options{})
			if err != nil {
				return err
			}
			if src, ok := occupancy.FirstConflict(rule.Interval(), sources); ok {
				details := occupancy.Describe(src)
				details["date"] = d.Format(request.DateLayout)
				return ErrOverlap.WithDetails(details)
			}
		}
		return s.repo.Create(ctx, rule)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("rule_id", rule.ID).
		Str("court_id", rule.CourtID).
		Str("weekday", rule.DayOfWeek.String()).
		Str("interval", rule.Interval().String()).
		Msg("recurring slot created")
	return rule, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Rule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Rule, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Deactivate(ctx context.Context, id string, actor auth.Actor) error {
	rule, _, err := s.managed(ctx, id, actor)
	if err != nil {
		return err
	}
	if !rule.Active {
		return nil
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *service) managed(ctx context.Context, id string, actor auth.Actor) (*Rule, *facility.Facility, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	fac, err := s.facilities.GetByID(ctx, rule.FacilityID)
	if err != nil {
		return nil, nil, err
	}
	if !fac.ManagedBy(actor) {
		return nil, nil, ErrForbidden
	}
	return rule, fac, nil
}

// Generate materializes the next occurrences of a rule as CONFIRMED bookings.
// Each occurrence commits on its own; conflicts are skipped, not fatal.
func (s *service) Generate(ctx context.Context, id string, occurrences int, actor auth.Actor) (*GenerateResult, error) {
	if occurrences < 1 || occurrences > MaxOccurrences {
		return nil, ErrInvalidOccurrence
	}
	rule, fac, err := s.managed(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return nil, ErrInactive
	}

	from := later(rule.AnchorDate, fac.Today(s.clock.Now()))
	last, err := s.repo.LastMaterializedDate(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		from = later(from, schedule.Date(*last).AddDate(0, 0, 1))
	}

	logger := log.Ctx(ctx).With().Str("rule_id", rule.ID).Logger()
	result := &GenerateResult{BookingIDs: []string{}, Skipped: []Skipped{}}
	cfg := fac.ScheduleConfig()

	date := rule.FirstOnOrAfter(from)
	for i := 0; i < occurrences; i, date = i+1, date.AddDate(0, 0, 7) {
		if !schedule.FitsWindow(cfg, date, rule.StartMinute, rule.EndMinute) {
			result.Skipped = append(result.Skipped, Skipped{Date: date, Reason: ReasonOutsideHours})
			continue
		}

		var (
			created *booking.Booking
			skip    *Skipped
		)
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.occupancy.LockCourt(ctx, rule.CourtID); err != nil {
				return err
			}
			sources, err := s.occupancy.Collect(ctx, rule.CourtID, date, occupancy.Options{ExcludeRuleID: rule.ID})
			if err != nil {
				return err
			}
			if src, ok := occupancy.FirstConflict(rule.Interval(), sources); ok {
				skip = &Skipped{Date: date, Reason: skipReason(src.Kind()), ConflictID: src.ID()}
				return nil
			}
			created, err = s.materialize(ctx, rule, date)
			return err
		})
		if err != nil {
			// Earlier occurrences stay committed; the caller sees the failure.
			logger.Error().Err(err).Time("date", date).Int("created", result.Created).Msg("recurring generation aborted")
			return result, err
		}
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Created++
		result.BookingIDs = append(result.BookingIDs, created.ID)
	}

	logger.Info().
		Int("created", result.Created).
		Int("skipped", len(result.Skipped)).
		Msg("recurring slot generated")
	return result, nil
}

func (s *service) materialize(ctx context.Context, rule *Rule, date time.Time) (*booking.Booking, error) {
	userID := rule.UserID
	ruleID := rule.ID
	b := &booking.Booking{
		CourtID:          rule.CourtID,
		FacilityID:       rule.FacilityID,
		Date:             date,
		StartMinute:      rule.StartMinute,
		EndMinute:        rule.EndMinute,
		TotalPrice:       rule.Price,
		RemainingBalance: rule.Price,
		Status:           booking.StatusConfirmed,
		UserID:           &userID,
		RecurringSlotID:  &ruleID,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	p := &booking.Participant{BookingID: b.ID, UserID: &userID, IsOwner: true}
	if err := s.bookings.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return b, nil
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
