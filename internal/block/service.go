package block

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
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

type CreateRequest struct {
	CourtID     string
	Date        time.Time
	StartMinute int
	EndMinute   int
	Reason      string
	Actor       auth.Actor
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Block, error)
	List(ctx context.Context, filter Filter) ([]*Block, error)
	Delete(ctx context.Context, id string, actor auth.Actor) error
}

type service struct {
	repo       Repository
	tx         db.Transactor
	occupancy  Occupancy
	facilities Facilities
	clock      clock.Clock
}

func NewService(repo Repository, tx db.Transactor, occ Occupancy, facilities Facilities, clk clock.Clock) Service {
	return &service{repo: repo, tx: tx, occupancy: occ, facilities: facilities, clock: clk}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Block, error) {
	if req.CourtID == "" || req.Date.IsZero() {
		return nil, ErrInvalidInput
	}
	b := &Block{
		CourtID:     req.CourtID,
		Date:        schedule.Date(req.Date),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Reason:      strings.TrimSpace(req.Reason),
		CreatedBy:   req.Actor.UserID,
	}
	if !b.Interval().Valid() || b.EndMinute > schedule.MinutesPerDay {
		return nil, ErrInvalidInterval
	}

	court, fac, err := s.facilities.CourtWithFacility(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}
	if !fac.ManagedBy(req.Actor) {
		return nil, ErrForbidden
	}
	if b.Date.Before(fac.Today(s.clock.Now())) {
		return nil, ErrDateInPast
	}
	b.FacilityID = fac.ID

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.occupancy.LockCourt(ctx, court.ID); err != nil {
			return err
		}
		sources, err := s.occupancy.Collect(ctx, court.ID, b.Date, occupancy.Options{})
		if err != nil {
			return err
		}
		if src, ok := occupancy.FirstConflict(b.Interval(), sources); ok {
			return ErrSlotUnavailable.WithDetails(occupancy.Describe(src))
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("block_id", b.ID).
		Str("court_id", b.CourtID).
		Str("interval", b.Interval().String()).
		Msg("court blocked")
	return b, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Block, error) {
	if filter.CourtID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Delete(ctx context.Context, id string, actor auth.Actor) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fac, err := s.facilities.GetByID(ctx, b.FacilityID)
	if err != nil {
		return err
	}
	if !fac.ManagedBy(actor) {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}
