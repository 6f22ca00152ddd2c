package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/auth"
	"github.com/nekogravitycat/court-scheduler/internal/db"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	"github.com/nekogravitycat/court-scheduler/internal/notify"
	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/clock"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

// Facilities resolves courts and the facility rules that govern them.
type Facilities interface {
	GetByID(ctx context.Context, id string) (*facility.Facility, error)
	CourtWithFacility(ctx context.Context, courtID string) (*facility.Court, *facility.Facility, error)
}

// Occupancy serializes writers per court and reports what occupies a court/date.
type Occupancy interface {
	LockCourt(ctx context.Context, courtID string) error
	Collect(ctx context.Context, courtID string, date time.Time, opts occupancy.Options) ([]occupancy.Source, error)
}

// Ledger appends money movements inside the caller's transaction.
type Ledger interface {
	Record(ctx context.Context, t *ledger.Transaction) error
}

type CreateRequest struct {
	CourtID     string
	Date        time.Time
	StartHour   int
	StartMinute int
	TotalPrice  int64
	Deposit     int64
	UserID      string
	GuestName   string
	// Online bookings wait in PENDING for the payment provider; the others are
	// paid at the desk and start CONFIRMED.
	Online bool
	Actor  auth.Actor
}

type PaymentRequest struct {
	ParticipantID string
	Amount        int64
	Method        string
	Actor         auth.Actor
}

type AddParticipantRequest struct {
	UserID    string
	GuestName string
}

// OnlinePayment is an approved provider payment, as reported by the provider itself.
type OnlinePayment struct {
	FacilityID        string
	BookingID         string
	ProviderPaymentID string
	Amount            int64
	Method            string
}

// ReconcileResult says what an online payment did to its booking.
type ReconcileResult string

const (
	ResultConfirmed        ReconcileResult = "confirmed"
	ResultAlreadyProcessed ReconcileResult = "already_processed"
	ResultUnknownBooking   ReconcileResult = "unknown_booking"
	// ResultSlotLost means the pending hold expired and the slot was taken in
	// the meantime. The booking is cancelled with a refund pending.
	ResultSlotLost ReconcileResult = "slot_lost"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error)
	Cancel(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	Confirm(ctx context.Context, id string, actor auth.Actor) (*Booking, error)
	ApplyPayment(ctx context.Context, req PaymentRequest) (*Booking, *Participant, error)
	ReconcileOnlinePayment(ctx context.Context, p OnlinePayment) (ReconcileResult, error)
	SweepStale(ctx context.Context) (int, error)
	CompletePlayed(ctx context.Context) (int, error)
	ListParticipants(ctx context.Context, bookingID string, actor auth.Actor) ([]*Participant, error)
	AddParticipant(ctx context.Context, bookingID string, actor auth.Actor, req AddParticipantRequest) (*Participant, error)
}

type service struct {
	repo       Repository
	tx         db.Transactor
	occupancy  Occupancy
	facilities Facilities
	ledger     Ledger
	notifier   notify.Notifier
	clock      clock.Clock
	grace      time.Duration
}

func NewService(
	repo Repository,
	tx db.Transactor,
	occ Occupancy,
	facilities Facilities,
	ledger Ledger,
	notifier notify.Notifier,
	clk clock.Clock,
	grace time.Duration,
) Service {
	if grace <= 0 {
		grace = occupancy.DefaultPendingGrace
	}
	return &service{
		repo:       repo,
		tx:         tx,
		occupancy:  occ,
		facilities: facilities,
		ledger:     ledger,
		notifier:   notifier,
		clock:      clk,
		grace:      grace,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func validateCreate(req *CreateRequest) error {
	if req.CourtID == "" || req.Date.IsZero() {
		return ErrInvalidInput
	}
	if req.StartHour < 0 || req.StartHour > 23 || req.StartMinute < 0 || req.StartMinute > 59 {
		return ErrInvalidStart
	}
	if req.TotalPrice < 0 || req.Deposit < 0 || req.Deposit > req.TotalPrice {
		return ErrInvalidPrice
	}
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.UserID == "" && req.GuestName == "" {
		return ErrPayerRequired
	}
	return nil
}

// conflictError turns the first conflicting source into a SlotUnavailable
// that tells the caller what is in the way.
func conflictError(src occupancy.Source) error {
	return ErrSlotUnavailable.WithDetails(occupancy.Describe(src))
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	court, fac, err := s.facilities.CourtWithFacility(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}

	manager := fac.ManagedBy(req.Actor)
	if !manager {
		if !req.Online {
			return nil, ErrCashNotAllowed
		}
		if req.UserID != req.Actor.UserID {
			return nil, ErrBookForOthers
		}
	}

	now := s.clock.Now()
	date := schedule.Date(req.Date)
	if date.Before(fac.Today(now)) {
		return nil, ErrDateInPast
	}

	start := req.StartHour*60 + req.StartMinute
	if !slices.Contains(schedule.SlotsFor(fac.ScheduleConfig(), date, court.SlotDurationMinutes), start) {
		return nil, ErrOffGrid
	}
	if fac.StartsAt(date, start).Before(now) {
		return nil, ErrStartInPast
	}

	b := &Booking{
		CourtID:       court.ID,
		FacilityID:    fac.ID,
		Date:          date,
		StartMinute:   start,
		EndMinute:     start + court.SlotDurationMinutes,
		TotalPrice:    req.TotalPrice,
		DepositAmount: req.Deposit,
		Status:        StatusConfirmed,
		UserID:        strPtr(req.UserID),
		GuestName:     strPtr(req.GuestName),
	}
	if req.Online {
		b.Status = StatusPending
	} else {
		// The desk collected the deposit.
		b.PaidAmount = req.Deposit
	}
	b.RemainingBalance = b.TotalPrice - b.PaidAmount

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.occupancy.LockCourt(ctx, b.CourtID); err != nil {
			return err
		}
		sources, err := s.occupancy.Collect(ctx, b.CourtID, b.Date, occupancy.Options{})
		if err != nil {
			return err
		}
		if src, ok := occupancy.FirstConflict(b.Interval(), sources); ok {
			return conflictError(src)
		}

		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		owner := &Participant{
			BookingID:  b.ID,
			UserID:     b.UserID,
			GuestName:  b.GuestName,
			IsOwner:    true,
			AmountPaid: b.PaidAmount,
		}
		if err := s.repo.CreateParticipant(ctx, owner); err != nil {
			return err
		}

		if b.Status == StatusConfirmed && b.PaidAmount > 0 {
			return s.ledger.Record(ctx, &ledger.Transaction{
				FacilityID:    fac.ID,
				BookingID:     &b.ID,
				ParticipantID: &owner.ID,
				Amount:        b.PaidAmount,
				Direction:     ledger.Income,
				Source:        ledger.SourceBookingDeposit,
				PaymentMethod: ledger.MethodCash,
				Description:   "deposit for " + b.Date.Format(request.DateLayout) + " " + schedule.FormatMinute(b.StartMinute),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("booking_id", b.ID).
		Str("court_id", b.CourtID).
		Str("status", string(b.Status)).
		Msg("booking created")
	return b, nil
}

// authorize loads the facility of b and checks actor is its owner or manager.
func (s *service) authorize(ctx context.Context, b *Booking, actor auth.Actor) (*facility.Facility, error) {
	fac, err := s.facilities.GetByID(ctx, b.FacilityID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(actor.UserID) && !fac.ManagedBy(actor) {
		return nil, ErrPermissionDenied
	}
	return fac, nil
}

func (s *service) GetByID(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, b, actor); err != nil {
		return nil, err
	}
	return b, nil
}

// List scopes the filter to what actor may see: admins see everything,
// facility managers their facility, everyone else their own bookings.
func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error) {
	switch {
	case actor.IsAdmin():
	case filter.FacilityID != "":
		fac, err := s.facilities.GetByID(ctx, filter.FacilityID)
		if err != nil {
			return nil, 0, err
		}
		if !fac.ManagedBy(actor) {
			filter.UserID = actor.UserID
		}
	default:
		filter.UserID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Cancel(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	var b *Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		fac, err := s.authorize(ctx, b, actor)
		if err != nil {
			return err
		}
		if b.Status != StatusConfirmed {
			return ErrNotCancellable.WithDetails(map[string]any{"status": string(b.Status)})
		}

		now := s.clock.Now()
		untilStart := fac.StartsAt(b.Date, b.StartMinute).Sub(now)
		b.RefundPending = untilStart >= time.Duration(fac.CancellationPolicyHours)*time.Hour
		b.Status = StatusCancelled
		b.CancelledAt = &now
		return s.repo.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.BookingCancelled, b, actor.UserID)
	return b, nil
}

// withoutSelf drops b's own booking from its court's occupancy.
func withoutSelf(sources []occupancy.Source, bookingID string) []occupancy.Source {
	return slices.DeleteFunc(sources, func(src occupancy.Source) bool {
		return src.Kind() == occupancy.KindBooking && src.ID() == bookingID
	})
}

// recheck verifies that a pending booking still owns its slot. A hold that
// outlived the grace window may have been overtaken by another booking.
func (s *service) recheck(ctx context.Context, b *Booking) (occupancy.Source, bool, error) {
	if err := s.occupancy.LockCourt(ctx, b.CourtID); err != nil {
		return nil, false, err
	}
	sources, err := s.occupancy.Collect(ctx, b.CourtID, b.Date, occupancy.Options{})
	if err != nil {
		return nil, false, err
	}
	src, ok := occupancy.FirstConflict(b.Interval(), withoutSelf(sources, b.ID))
	return src, ok, nil
}

func (s *service) Confirm(ctx context.Context, id string, actor auth.Actor) (*Booking, error) {
	var b *Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		fac, err := s.facilities.GetByID(ctx, b.FacilityID)
		if err != nil {
			return err
		}
		if !fac.ManagedBy(actor) {
			return ErrPermissionDenied
		}
		if !CanTransition(b.Status, StatusConfirmed) {
			return ErrNotPending.WithDetails(map[string]any{"status": string(b.Status)})
		}

		src, conflict, err := s.recheck(ctx, b)
		if err != nil {
			return err
		}
		if conflict {
			return conflictError(src)
		}

		b.Status = StatusConfirmed
		return s.repo.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.BookingConfirmed, b, actor.UserID)
	return b, nil
}

func (s *service) ApplyPayment(ctx context.Context, req PaymentRequest) (*Booking, *Participant, error) {
	if req.Amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = ledger.MethodCash
	}

	var (
		b         *Booking
		p         *Participant
		completed bool
		confirmed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetParticipantForUpdate(ctx, req.ParticipantID)
		if err != nil {
			return err
		}
		b, err = s.repo.GetForUpdate(ctx, p.BookingID)
		if err != nil {
			return err
		}
		fac, err := s.facilities.GetByID(ctx, b.FacilityID)
		if err != nil {
			return err
		}
		if !fac.ManagedBy(req.Actor) {
			return ErrPermissionDenied
		}

		if b.Status == StatusCancelled {
			return ErrBookingCancelled
		}
		if req.Amount > b.RemainingBalance {
			return ErrExceedsBalance.WithDetails(map[string]any{"remaining_balance": b.RemainingBalance})
		}
		// An expired hold no longer occupies its slot and may have been overtaken.
		if b.Status == StatusPending {
			src, conflict, err := s.recheck(ctx, b)
			if err != nil {
				return err
			}
			if conflict {
				return conflictError(src)
			}
		}

		b.Pay(req.Amount)
		p.AmountPaid += req.Amount
		if b.RemainingBalance == 0 {
			switch b.Status {
			case StatusConfirmed:
				b.Status = StatusCompleted
				completed = true
			case StatusPending:
				b.Status = StatusConfirmed
				confirmed = true
			}
		}

		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		if err := s.repo.UpdateParticipantPaid(ctx, p); err != nil {
			return err
		}
		return s.ledger.Record(ctx, &ledger.Transaction{
			FacilityID:    fac.ID,
			BookingID:     &b.ID,
			ParticipantID: &p.ID,
			Amount:        req.Amount,
			Direction:     ledger.Income,
			Source:        ledger.SourcePlayerPayment,
			PaymentMethod: method,
			Description:   fmt.Sprintf("player payment for booking %s", b.ID),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	switch {
	case completed:
		s.notify(ctx, notify.BookingCompleted, b, req.Actor.UserID)
	case confirmed:
		s.notify(ctx, notify.BookingConfirmed, b, req.Actor.UserID)
	}
	return b, p, nil
}

func (s *service) ReconcileOnlinePayment(ctx context.Context, pay OnlinePayment) (ReconcileResult, error) {
	var (
		b      *Booking
		result ReconcileResult
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetForUpdate(ctx, pay.BookingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				result = ResultUnknownBooking
				return nil
			}
			return err
		}
		// The merchant account decides the tenant; a foreign booking id is unknown here.
		if b.FacilityID != pay.FacilityID {
			result = ResultUnknownBooking
			return nil
		}
		if b.Status != StatusPending {
			result = ResultAlreadyProcessed
			return nil
		}

		src, conflict, err := s.recheck(ctx, b)
		if err != nil {
			return err
		}

		paid := min(pay.Amount, b.RemainingBalance)
		b.Pay(paid)
		b.ProviderPaymentID = &pay.ProviderPaymentID
		if excess := pay.Amount - paid; excess > 0 {
			b.RefundPending = true
			log.Ctx(ctx).Warn().
				Str("booking_id", b.ID).
				Str("provider_payment_id", pay.ProviderPaymentID).
				Int64("excess", excess).
				Msg("online payment exceeds remaining balance, refund pending")
		}
		if conflict {
			now := s.clock.Now()
			b.Status = StatusCancelled
			b.CancelledAt = &now
			b.RefundPending = true
			result = ResultSlotLost
			log.Ctx(ctx).Warn().
				Str("booking_id", b.ID).
				Str("conflict_kind", string(src.Kind())).
				Str("conflict_id", src.ID()).
				Msg("paid booking lost its slot, refund pending")
		} else {
			b.Status = StatusConfirmed
			result = ResultConfirmed
		}
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}

		owner, err := s.repo.OwnerParticipant(ctx, b.ID)
		if err != nil {
			return err
		}
		owner.AmountPaid += paid
		if err := s.repo.UpdateParticipantPaid(ctx, owner); err != nil {
			return err
		}

		if paid == 0 {
			return nil
		}
		method := pay.Method
		if method == "" {
			method = ledger.MethodOnline
		}
		return s.ledger.Record(ctx, &ledger.Transaction{
			FacilityID:        b.FacilityID,
			BookingID:         &b.ID,
			ParticipantID:     &owner.ID,
			Amount:            paid,
			Direction:         ledger.Income,
			Source:            ledger.SourceOnlinePayment,
			PaymentMethod:     method,
			Description:       "online payment " + pay.ProviderPaymentID,
			ExternalReference: &pay.ProviderPaymentID,
		})
	})
	if err != nil {
		return "", err
	}

	switch result {
	case ResultConfirmed:
		s.notify(ctx, notify.BookingConfirmed, b, "")
	case ResultSlotLost:
		s.notify(ctx, notify.BookingCancelled, b, "")
	}
	return result, nil
}

func (s *service) SweepStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cancelled, err := s.repo.CancelStalePending(ctx, now.Add(-s.grace), now)
	if err != nil {
		return 0, err
	}
	for _, b := range cancelled {
		s.notify(ctx, notify.BookingCancelled, b, "")
	}
	return len(cancelled), nil
}

func (s *service) CompletePlayed(ctx context.Context) (int, error) {
	completed, err := s.repo.CompletePlayed(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, b := range completed {
		s.notify(ctx, notify.BookingCompleted, b, "")
	}
	return len(completed), nil
}

func (s *service) ListParticipants(ctx context.Context, bookingID string, actor auth.Actor) ([]*Participant, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, b, actor); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, b.ID)
}

func (s *service) AddParticipant(ctx context.Context, bookingID string, actor auth.Actor, req AddParticipantRequest) (*Participant, error) {
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.UserID == "" && req.GuestName == "" {
		return nil, ErrParticipantSeat
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, b, actor); err != nil {
		return nil, err
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return nil, ErrBookingClosed
	}

	p := &Participant{
		BookingID: b.ID,
		UserID:    strPtr(req.UserID),
		GuestName: strPtr(req.GuestName),
	}
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// notify reports a state change. Delivery failures are logged and never undo
// the committed change.
func (s *service) notify(ctx context.Context, typ notify.EventType, b *Booking, actorID string) {
	if s.notifier == nil {
		return
	}
	ev := notify.Event{
		Type:          typ,
		BookingID:     b.ID,
		CourtID:       b.CourtID,
		FacilityID:    b.FacilityID,
		Date:          b.Date.Format(request.DateLayout),
		StartMinute:   b.StartMinute,
		RefundPending: b.RefundPending,
		Actor:         actorID,
		OccurredAt:    s.clock.Now(),
	}
	if b.UserID != nil {
		ev.UserID = *b.UserID
	}
	if b.GuestName != nil {
		ev.GuestName = *b.GuestName
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("event", string(typ)).Str("booking_id", b.ID).Msg("notification failed")
	}
}
