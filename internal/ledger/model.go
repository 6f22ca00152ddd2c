package ledger

import (
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

// Direction tells whether money entered or left the facility.
type Direction string

const (
	Income  Direction = "INCOME"
	Expense Direction = "EXPENSE"
)

func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

// Source names the operation that produced an entry.
type Source string

const (
	SourceBookingDeposit Source = "booking_deposit"
	SourceBookingPayment Source = "booking_payment"
	SourcePlayerPayment  Source = "player_payment"
	SourceOnlinePayment  Source = "online_payment"
	SourceManual         Source = "manual"
)

// Payment methods recorded on entries.
const (
	MethodCash   = "cash"
	MethodOnline = "online"
)

var (
	ErrInvalidAmount     = apperror.Validation("amount must be positive")
	ErrInvalidDirection  = apperror.Validation("direction must be INCOME or EXPENSE")
	ErrFacilityRequired  = apperror.Validation("facility is required")
	ErrMethodRequired    = apperror.Validation("payment method is required")
	ErrDuplicateExternal = apperror.InvalidState("external reference already recorded")
)

// Transaction is one immutable ledger entry. Amounts are in minor currency units.
type Transaction struct {
	ID                string
	FacilityID        string
	BookingID         *string
	ParticipantID     *string
	Amount            int64
	Direction         Direction
	Source            Source
	PaymentMethod     string
	Description       string
	ExternalReference *string
	CreatedAt         time.Time
}

func (t *Transaction) Validate() error {
	if t.FacilityID == "" {
		return ErrFacilityRequired
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if t.PaymentMethod == "" {
		return ErrMethodRequired
	}
	return nil
}

// Filter defines parameters for listing entries of a facility.
type Filter struct {
	FacilityID string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}
