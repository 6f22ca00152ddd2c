package http

import (
	"errors"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/ledger"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
)

type TransactionResponse struct {
	ID                string    `json:"id"`
	FacilityID        string    `json:"facility_id"`
	BookingID         *string   `json:"booking_id,omitempty"`
	ParticipantID     *string   `json:"participant_id,omitempty"`
	Amount            int64     `json:"amount"`
	Direction         string    `json:"direction"`
	Source            string    `json:"source"`
	PaymentMethod     string    `json:"payment_method"`
	Description       string    `json:"description"`
	ExternalReference *string   `json:"external_reference,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		FacilityID:        t.FacilityID,
		BookingID:         t.BookingID,
		ParticipantID:     t.ParticipantID,
		Amount:            t.Amount,
		Direction:         string(t.Direction),
		Source:            string(t.Source),
		PaymentMethod:     t.PaymentMethod,
		Description:       t.Description,
		ExternalReference: t.ExternalReference,
		CreatedAt:         t.CreatedAt,
	}
}

type ListLedgerRequest struct {
	request.ListParams
	From string `form:"from"`
	To   string `form:"to"`
}

var ErrInvalidRange = errors.New("from and to must be dates (YYYY-MM-DD) with from before to")

// Range parses the optional date bounds; to is inclusive of its whole day.
func (r *ListLedgerRequest) Range() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if r.From != "" {
		if from, err = time.Parse(request.DateLayout, r.From); err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
	}
	if r.To != "" {
		if to, err = time.Parse(request.DateLayout, r.To); err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, to, nil
}

type ManualEntryRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	Direction     string `json:"direction" binding:"required,oneof=INCOME EXPENSE"`
	PaymentMethod string `json:"payment_method"`
	Description   string `json:"description"`
}
