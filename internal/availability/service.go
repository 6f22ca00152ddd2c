// Package availability answers the public "what can I book" query by running
// schedule resolution, grid generation and occupancy for every requested court.
package availability

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

var (
	ErrTargetRequired = apperror.Validation("court_id or facility_id is required")
	ErrDateRequired   = apperror.Validation("date is required")
	ErrForeignCourt   = apperror.Validation("court does not belong to the facility")
)

// maxParallel bounds concurrent occupancy reads per query.
const maxParallel = 8

type Facilities interface {
	GetByID(ctx context.Context, id string) (*facility.Facility, error)
	ListCourts(ctx context.Context, facilityID string) ([]*facility.Court, error)
	CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error)
}

type Occupancy interface {
	Collect(ctx context.Context, courtID string, date time.Time, opts occupancy.Options) ([]occupancy.Source, error)
}

type Query struct {
	CourtID    string
	FacilityID string
	Date       time.Time
	// CourtIDs narrows a facility query to a subset of its courts.
	CourtIDs []string
}

type CourtSlot struct {
	CourtID   string
	End       int
	Available bool
}

type Slot struct {
	Start  int
	Courts []CourtSlot
}

type Result struct {
	FacilityID string
	Date       time.Time
	Open       bool
	Window     schedule.Window
	Courts     []*facility.Court
	Slots      []Slot
}

type Service interface {
	Query(ctx context.Context, q Query) (*Result, error)
}

type service struct {
	facilities Facilities
	occupancy  Occupancy
	clock      clock.Clock
}

func NewService(facilities Facilities, occ Occupancy, clk clock.Clock) Service {
	return &service{facilities: facilities, occupancy: occ, clock: clk}
}

func (s *service) Query(ctx context.Context, q Query) (*Result, error) {
	if q.CourtID == "" && q.FacilityID == "" {
		return nil, ErrTargetRequired
	}
	if q.Date.IsZero() {
		return nil, ErrDateRequired
	}
	date := schedule.Date(q.Date)

	fac, courts, err := s.target(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &Result{FacilityID: fac.ID, Date: date, Courts: courts, Slots: []Slot{}}
	cfg := fac.ScheduleConfig()
	window, open := schedule.Resolve(cfg, date)
	if !open {
		return res, nil
	}
	res.Open, res.Window = true, window

	grid := schedule.Grid(window.Open, window.Close, cfg.Granularity)
	res.Slots = make([]Slot, len(grid))
	for i, start := range grid {
		res.Slots[i] = Slot{Start: start, Courts: make([]CourtSlot, len(courts))}
	}

	now := s.clock.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for ci, court := range courts {
		g.Go(func() error {
			sources, err := s.occupancy.Collect(gctx, court.ID, date, occupancy.Options{})
			if err != nil {
				return err
			}
			occupied := occupancy.Intervals(sources)
			for i, start := range grid {
				span := occupancy.Interval{Start: start, End: start + court.SlotDurationMinutes}
				available := span.End <= window.Close &&
					fac.StartsAt(date, start).After(now) &&
					!occupancy.Conflicts(span, occupied)
				// Each goroutine owns column ci.
				res.Slots[i].Courts[ci] = CourtSlot{CourtID: court.ID, End: span.End, Available: available}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) target(ctx context.Context, q Query) (*facility.Facility, []*facility.Court, error) {
	if q.CourtID != "" {
		court, fac, err := s.facilities.CourtWithFacility(ctx, q.CourtID)
		if err != nil {
			return nil, nil, err
		}
		if q.FacilityID != "" && q.FacilityID != fac.ID {
			return nil, nil, ErrForeignCourt
		}
		return fac, []*facility.Court{court}, nil
	}

	fac, err := s.facilities.GetByID(ctx, q.FacilityID)
	if err != nil {
		return nil, nil, err
	}
	courts, err := s.facilities.ListCourts(ctx, fac.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(q.CourtIDs) == 0 {
		return fac, courts, nil
	}

	byID := make(map[string]*facility.Court, len(courts))
	for _, c := range courts {
		byID[c.ID] = c
	}
	subset := make([]*facility.Court, 0, len(q.CourtIDs))
	seen := make(map[string]bool, len(q.CourtIDs))
	for _, id := range q.CourtIDs {
		c, ok := byID[id]
		if !ok {
			return nil, nil, ErrForeignCourt.WithDetails(map[string]any{"court_id": id})
		}
		if !seen[id] {
			seen[id] = true
			subset = append(subset, c)
		}
	}
	return fac, subset, nil
}
