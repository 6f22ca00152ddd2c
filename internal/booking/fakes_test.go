package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	"github.com/nekogravitycat/court-scheduler/internal/notify"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

// memStore backs both the booking and the occupancy repositories so the
// aggregator sees exactly what the service wrote.
type memStore struct {
	mu           sync.Mutex
	bookings     map[string]Booking
	participants map[string]Participant
	blocks       []occupancy.BlockRecord
	entries      []ledger.Transaction
	createdAt    func() time.Time
	failLedger   bool
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		bookings:     map[string]Booking{},
		participants: map[string]Participant{},
		createdAt:    now,
	}
}

type snapshot struct {
	bookings     map[string]Booking
	participants map[string]Participant
	entries      []ledger.Transaction
}

func (m *memStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		bookings:     make(map[string]Booking, len(m.bookings)),
		participants: make(map[string]Participant, len(m.participants)),
		entries:      append([]ledger.Transaction(nil), m.entries...),
	}
	for k, v := range m.bookings {
		s.bookings[k] = v
	}
	for k, v := range m.participants {
		s.participants[k] = v
	}
	return s
}

func (m *memStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings, m.participants, m.entries = s.bookings, s.participants, s.entries
}

// memTx serializes transactions, which is what the court row lock achieves in
// Postgres, and rolls the store back when fn fails.
type memTx struct {
	mu    sync.Mutex
	store *memStore
}

type inTxKey struct{}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// booking.Repository

func (m *memStore) Create(ctx context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.NewString()
	b.CreatedAt = m.createdAt()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if filter.UserID != "" && !b.OwnedBy(filter.UserID) {
			continue
		}
		if filter.FacilityID != "" && b.FacilityID != filter.FacilityID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, &b)
	}
	return out, len(out), nil
}

func (m *memStore) Update(ctx context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *memStore) CancelStalePending(ctx context.Context, cutoff, now time.Time) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for id, b := range m.bookings {
		if b.Status == StatusPending && b.CreatedAt.Before(cutoff) {
			b.Status = StatusCancelled
			b.CancelledAt = &now
			m.bookings[id] = b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (m *memStore) CompletePlayed(ctx context.Context, now time.Time) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := schedule.Date(now)
	var out []*Booking
	for id, b := range m.bookings {
		if b.Status == StatusConfirmed && b.Date.Before(today) {
			b.Status = StatusCompleted
			m.bookings[id] = b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (m *memStore) CreateParticipant(ctx context.Context, p *Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[p.BookingID]; !ok {
		return ErrNotFound
	}
	p.ID = uuid.NewString()
	m.participants[p.ID] = *p
	return nil
}

func (m *memStore) GetParticipantForUpdate(ctx context.Context, id string) (*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (m *memStore) OwnerParticipant(ctx context.Context, bookingID string) (*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.BookingID == bookingID && p.IsOwner {
			return &p, nil
		}
	}
	return nil, ErrParticipantNotFound
}

func (m *memStore) ListParticipants(ctx context.Context, bookingID string) ([]*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Participant
	for _, p := range m.participants {
		if p.BookingID == bookingID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memStore) UpdateParticipantPaid(ctx context.Context, p *Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[p.ID] = *p
	return nil
}

func (m *memStore) ownerOf(bookingID string) Participant {
	p, _ := m.OwnerParticipant(context.Background(), bookingID)
	return *p
}

// occupancy.Repository

func (m *memStore) LockCourt(ctx context.Context, courtID string) error { return nil }

func (m *memStore) BookingsOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []occupancy.BookingRecord
	for _, b := range m.bookings {
		if b.CourtID == courtID && b.Date.Equal(date) {
			out = append(out, occupancy.BookingRecord{
				ID: b.ID, Start: b.StartMinute, End: b.EndMinute, Status: string(b.Status),
				CreatedAt: b.CreatedAt, RecurringSlotID: b.RecurringSlotID,
			})
		}
	}
	return out, nil
}

func (m *memStore) BlocksOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.BlockRecord, error) {
	return m.blocks, nil
}

func (m *memStore) RulesOn(ctx context.Context, courtID string, date time.Time) ([]occupancy.RuleRecord, error) {
	return nil, nil
}

// Ledger

func (m *memStore) Record(ctx context.Context, t *ledger.Transaction) error {
	if m.failLedger {
		return errors.New("ledger unavailable")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ExternalReference != nil {
		for _, e := range m.entries {
			if e.ExternalReference != nil && *e.ExternalReference == *t.ExternalReference {
				return ledger.ErrDuplicateExternal
			}
		}
	}
	t.ID = uuid.NewString()
	m.entries = append(m.entries, *t)
	return nil
}

type memFacilities struct {
	facility *facility.Facility
	court    *facility.Court
}

func (f *memFacilities) GetByID(ctx context.Context, id string) (*facility.Facility, error) {
	if id != f.facility.ID {
		return nil, facility.ErrNotFound
	}
	return f.facility, nil
}

func (f *memFacilities) CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error) {
	if courtID != f.court.ID {
		return nil, nil, facility.ErrCourtNotFound
	}
	return f.court, f.facility, nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *memNotifier) Notify(ctx context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *memNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.EventType
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// liveOn returns the bookings on court and date that still occupy the court.
func (m *memStore) liveOn(courtID string, date time.Time) []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.CourtID == courtID && b.Date.Equal(date) && b.Status != StatusCancelled {
			out = append(out, b)
		}
	}
	return out
}
