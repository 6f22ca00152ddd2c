package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

type stubFacilities struct {
	facility *facility.Facility
	courts   []*facility.Court
}

func (s stubFacilities) GetByID(ctx context.Context, id string) (*facility.Facility, error) {
	if id != s.facility.ID {
		return nil, facility.ErrNotFound
	}
	return s.facility, nil
}

func (s stubFacilities) ListCourts(ctx context.Context, facilityID string) ([]*facility.Court, error) {
	return s.courts, nil
}

func (s stubFacilities) CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error) {
	for _, c := range s.courts {
		if c.ID == courtID {
			return c, s.facility, nil
		}
	}
	return nil, nil, facility.ErrCourtNotFound
}

type stubOccupancy struct {
	byCourt map[string][]occupancy.Source
	err     error
}

func (s stubOccupancy) Collect(ctx context.Context, courtID string, date time.Time, opts occupancy.Options) ([]occupancy.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byCourt[courtID], nil
}

// Tuesday 2026-03-03.
var tuesday = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func newTestService(occ stubOccupancy) Service {
	open, close := 18, 21
	fac := &facility.Facility{
		ID:               "fac-1",
		Timezone:         "UTC",
		DefaultOpenHour:  &open,
		DefaultCloseHour: &close,
		SlotGranularity:  60,
	}
	fac.Weekly[time.Sunday] = schedule.DayHours{Closed: true}
	courts := []*facility.Court{
		{ID: "court-a", FacilityID: fac.ID, SlotDurationMinutes: 60},
		{ID: "court-b", FacilityID: fac.ID, SlotDurationMinutes: 120},
	}
	clk := clock.Fixed(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	return NewService(stubFacilities{facility: fac, courts: courts}, occ, clk)
}

func availability(res *Result, court string) map[int]bool {
	out := map[int]bool{}
	for _, s := range res.Slots {
		for _, c := range s.Courts {
			if c.CourtID == court {
				out[s.Start] = c.Available
			}
		}
	}
	return out
}

func TestQueryFacility(t *testing.T) {
	svc := newTestService(stubOccupancy{byCourt: map[string][]occupancy.Source{
		"court-a": {occupancy.BookingSource{BookingID: "bk-1", Span: occupancy.Interval{Start: 19 * 60, End: 20 * 60}}},
		"court-b": {occupancy.RuleSource{RuleID: "rule-1", Span: occupancy.Interval{Start: 18 * 60, End: 19 * 60}}},
	}})

	res, err := svc.Query(context.Background(), Query{FacilityID: "fac-1", Date: tuesday})
	require.NoError(t, err)
	require.True(t, res.Open)

	var starts []int
	for _, s := range res.Slots {
		starts = append(starts, s.Start)
		assert.Len(t, s.Courts, 2)
	}
	assert.Equal(t, []int{18 * 60, 19 * 60, 20 * 60}, starts)

	assert.Equal(t, map[int]bool{18 * 60: true, 19 * 60: false, 20 * 60: true}, availability(res, "court-a"))
	// Two-hour slots: 18:00 hits the rule, 20:00 would run past close.
	assert.Equal(t, map[int]bool{18 * 60: false, 19 * 60: true, 20 * 60: false}, availability(res, "court-b"))
}

func TestQuerySingleCourtAndSubset(t *testing.T) {
	svc := newTestService(stubOccupancy{})
	ctx := context.Background()

	res, err := svc.Query(ctx, Query{CourtID: "court-b", Date: tuesday})
	require.NoError(t, err)
	require.Len(t, res.Courts, 1)
	assert.Equal(t, "fac-1", res.FacilityID)
	assert.Equal(t, 20*60, res.Slots[0].Courts[0].End)

	res, err = svc.Query(ctx, Query{FacilityID: "fac-1", Date: tuesday, CourtIDs: []string{"court-b", "court-b"}})
	require.NoError(t, err)
	require.Len(t, res.Courts, 1)
	assert.Equal(t, "court-b", res.Courts[0].ID)

	_, err = svc.Query(ctx, Query{FacilityID: "fac-1", Date: tuesday, CourtIDs: []string{"court-z"}})
	assert.ErrorIs(t, err, ErrForeignCourt)

	_, err = svc.Query(ctx, Query{CourtID: "court-a", FacilityID: "fac-other", Date: tuesday})
	assert.ErrorIs(t, err, ErrForeignCourt)
}

func TestQueryClosedDay(t *testing.T) {
	svc := newTestService(stubOccupancy{})

	res, err := svc.Query(context.Background(), Query{FacilityID: "fac-1", Date: tuesday.AddDate(0, 0, 5)})
	require.NoError(t, err)
	assert.False(t, res.Open)
	assert.Empty(t, res.Slots)
}

func TestQueryPastSlotsUnavailable(t *testing.T) {
	svc := newTestService(stubOccupancy{})

	res, err := svc.Query(context.Background(), Query{CourtID: "court-a", Date: tuesday.AddDate(0, 0, -7)})
	require.NoError(t, err)
	for _, s := range res.Slots {
		assert.False(t, s.Courts[0].Available)
	}
}

func TestQueryErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(stubOccupancy{err: errors.New("db down")})

	_, err := svc.Query(ctx, Query{Date: tuesday})
	assert.ErrorIs(t, err, ErrTargetRequired)

	_, err = svc.Query(ctx, Query{FacilityID: "fac-1"})
	assert.ErrorIs(t, err, ErrDateRequired)

	_, err = svc.Query(ctx, Query{FacilityID: "fac-1", Date: tuesday})
	assert.EqualError(t, err, "db down")
}
