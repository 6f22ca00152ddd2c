package recurring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
)

// memStore serves rules, bookings and blocks so the real aggregator can run
// against what the generator writes.
type memStore struct {
	mu           sync.Mutex
	rules        map[string]*Rule
	bookings     []booking.Booking
	participants []booking.Participant
	blocks       map[time.Time][]occupancy.BlockRecord
	now          func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		rules:  map[string]*Rule{},
		blocks: map[time.Time][]occupancy.BlockRecord{},
		now:    now,
	}
}

// Repository

func (m *memStore) Create(ctx context.Context, r *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = m.now()
	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, filter Filter) ([]*Rule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Rule
	for _, r := range m.rules {
		if filter.CourtID != "" && r.CourtID != filter.CourtID {
			continue
		}
		if filter.ActiveOnly && !r.Active {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out, len(out), nil
}

func (m *memStore) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return ErrNotFound
	}
	r.Active = false
	return nil
}

func (m *memStore) LastMaterializedDate(ctx context.Context, id string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, b := range m.bookings {
		if b.RecurringSlotID != nil && *b.RecurringSlotID == id && (last == nil || b.Date.After(*last)) {
			d := b.Date
			last = &d
		}
	}
	return last, nil
}

// Bookings

type bookingWriter struct{ *memStore }

func (w bookingWriter) Create(ctx context.Context, b *booking.Booking) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b.ID = uuid.NewString()
	b.CreatedAt = w.now()
	w.bookings = append(w.bookings, *b)
	return nil
}

func (w bookingWriter) CreateParticipant(ctx context.Context, p *booking.Participant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p.ID = uuid.NewString()
	w.participants = append(w.participants, *p)
	return nil
}

// occupancy.Repository

type occupancyReader struct{ *memStore }

func (o occupancyReader) LockCourt(ctx context.Context, courtID string) error { return nil }

func (o occupancyReader) BookingsOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.BookingRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []occupancy.BookingRecord
	for _, b := range o.bookings {
		if b.CourtID == courtID && b.Date.Equal(date) {
			out = append(out, occupancy.BookingRecord{
				ID: b.ID, Start: b.StartMinute, End: b.EndMinute, Status: string(b.Status),
				CreatedAt: b.CreatedAt, RecurringSlotID: b.RecurringSlotID,
			})
		}
	}
	return out, nil
}

func (o occupancyReader) BlocksOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.BlockRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.blocks[date], nil
}

func (o occupancyReader) RulesOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.RuleRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []occupancy.RuleRecord
	for _, r := range o.rules {
		if r.CourtID == courtID && r.Active && r.DayOfWeek == date.Weekday() && !r.AnchorDate.After(date) {
			out = append(out, occupancy.RuleRecord{ID: r.ID, Start: r.StartMinute, End: r.EndMinute})
		}
	}
	return out, nil
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubFacilities struct {
	facility *facility.Facility
	court    *facility.Court
}

func (s stubFacilities) GetByID(ctx context.Context, id string) (*facility.Facility, error) {
	if id != s.facility.ID {
		return nil, facility.ErrNotFound
	}
	return s.facility, nil
}

func (s stubFacilities) CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error) {
	if courtID != s.court.ID {
		return nil, nil, facility.ErrCourtNotFound
	}
	return s.court, s.facility, nil
}
