package booking

import (
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/occupancy"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.NotFound("booking not found")
	ErrParticipantNotFound = apperror.NotFound("participant not found")
	ErrSlotUnavailable     = apperror.SlotUnavailable("time slot is not available")
	ErrPermissionDenied    = apperror.Forbidden("permission denied")
	ErrNotCancellable      = apperror.InvalidState("only confirmed bookings can be cancelled")
	ErrNotPending          = apperror.InvalidState("only pending bookings can be confirmed")
	ErrBookingCancelled    = apperror.InvalidState("booking is cancelled")
	ErrBookingClosed       = apperror.InvalidState("booking no longer accepts participants")
	ErrExceedsBalance      = apperror.AmountExceedsBalance("payment exceeds remaining balance")

	ErrInvalidInput    = apperror.Validation("invalid input parameters")
	ErrInvalidStart    = apperror.Validation("start hour must be 0-23 and start minute 0-59")
	ErrInvalidPrice    = apperror.Validation("price and deposit must not be negative, deposit must not exceed price")
	ErrPayerRequired   = apperror.Validation("a user id or guest name is required")
	ErrDateInPast      = apperror.Validation("cannot book a date in the past")
	ErrStartInPast     = apperror.Validation("cannot book a slot that already started")
	ErrOffGrid         = apperror.Validation("start time is not a bookable slot for this court and date")
	ErrInvalidAmount   = apperror.Validation("payment amount must be positive")
	ErrCashNotAllowed  = apperror.Forbidden("only facility managers can create cash bookings")
	ErrBookForOthers   = apperror.Forbidden("players can only book for themselves")
	ErrParticipantSeat = apperror.Validation("participant needs a user id or a guest name")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
// CANCELLED and COMPLETED are terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Booking is a reservation of one court slot on one date. Money is in minor
// currency units; RemainingBalance always equals TotalPrice - PaidAmount.
type Booking struct {
	ID          string
	CourtID     string
	FacilityID  string
	Date        time.Time
	StartMinute int
	EndMinute   int

	TotalPrice       int64
	DepositAmount    int64
	PaidAmount       int64
	RemainingBalance int64

	Status            Status
	UserID            *string
	GuestName         *string
	RecurringSlotID   *string
	ProviderPaymentID *string
	RefundPending     bool
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (b *Booking) Interval() occupancy.Interval {
	return occupancy.Interval{Start: b.StartMinute, End: b.EndMinute}
}

// OwnedBy reports whether userID is the paying user of the booking.
func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID != nil && *b.UserID == userID
}

// Pay moves amount from the remaining balance to the paid amount.
func (b *Booking) Pay(amount int64) {
	b.PaidAmount += amount
	b.RemainingBalance = b.TotalPrice - b.PaidAmount
}

// Participant is a player sharing a booking, with what they paid so far.
type Participant struct {
	ID         string
	BookingID  string
	UserID     *string
	GuestName  *string
	IsOwner    bool
	AmountPaid int64
	CreatedAt  time.Time
}

type Filter struct {
	CourtID    string
	FacilityID string
	UserID     string
	Date       *time.Time
	Status     Status
	Page       int
	PageSize   int
	SortOrder  string
}
