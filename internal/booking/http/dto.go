package http

import (
	"errors"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/court-scheduler/internal/schedule"
)

var (
	ErrInvalidDate   = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidStatus = errors.New("status must be one of PENDING, CONFIRMED, CANCELLED, COMPLETED")
)

type BookingResponse struct {
	ID                string     `json:"id"`
	CourtID           string     `json:"court_id"`
	FacilityID        string     `json:"facility_id"`
	Date              string     `json:"date"`
	StartTime         string     `json:"start_time"`
	EndTime           string     `json:"end_time"`
	TotalPrice        int64      `json:"total_price"`
	DepositAmount     int64      `json:"deposit_amount"`
	PaidAmount        int64      `json:"paid_amount"`
	RemainingBalance  int64      `json:"remaining_balance"`
	Status            string     `json:"status"`
	UserID            *string    `json:"user_id,omitempty"`
	GuestName         *string    `json:"guest_name,omitempty"`
	RecurringSlotID   *string    `json:"recurring_slot_id,omitempty"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	RefundPending     bool       `json:"refund_pending"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                b.ID,
		CourtID:           b.CourtID,
		FacilityID:        b.FacilityID,
		Date:              b.Date.Format(request.DateLayout),
		StartTime:         schedule.FormatMinute(b.StartMinute),
		EndTime:           schedule.FormatMinute(b.EndMinute),
		TotalPrice:        b.TotalPrice,
		DepositAmount:     b.DepositAmount,
		PaidAmount:        b.PaidAmount,
		RemainingBalance:  b.RemainingBalance,
		Status:            string(b.Status),
		UserID:            b.UserID,
		GuestName:         b.GuestName,
		RecurringSlotID:   b.RecurringSlotID,
		ProviderPaymentID: b.ProviderPaymentID,
		RefundPending:     b.RefundPending,
		CancelledAt:       b.CancelledAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

type ParticipantResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	UserID     *string   `json:"user_id,omitempty"`
	GuestName  *string   `json:"guest_name,omitempty"`
	IsOwner    bool      `json:"is_owner"`
	AmountPaid int64     `json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewParticipantResponse(p *booking.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:         p.ID,
		BookingID:  p.BookingID,
		UserID:     p.UserID,
		GuestName:  p.GuestName,
		IsOwner:    p.IsOwner,
		AmountPaid: p.AmountPaid,
		CreatedAt:  p.CreatedAt,
	}
}

type CreateBookingRequest struct {
	CourtID     string `json:"court_id" binding:"required,uuid"`
	Date        string `json:"date" binding:"required"`
	StartHour   int    `json:"start_hour" binding:"min=0,max=23"`
	StartMinute int    `json:"start_minute" binding:"min=0,max=59"`
	TotalPrice  int64  `json:"total_price" binding:"min=0"`
	Deposit     int64  `json:"deposit" binding:"min=0"`
	UserID      string `json:"user_id"`
	GuestName   string `json:"guest_name"`
	Online      bool   `json:"online"`

	date time.Time
}

func (r *CreateBookingRequest) Validate() error {
	d, err := time.Parse(request.DateLayout, r.Date)
	if err != nil {
		return ErrInvalidDate
	}
	r.date = d
	return nil
}

type ListBookingsRequest struct {
	request.ListParams
	CourtID    string `form:"court_id" binding:"omitempty,uuid"`
	FacilityID string `form:"facility_id" binding:"omitempty,uuid"`
	UserID     string `form:"user_id"`
	Date       string `form:"date"`
	Status     string `form:"status"`

	date *time.Time
}

func (r *ListBookingsRequest) Validate() error {
	if r.Date != "" {
		d, err := time.Parse(request.DateLayout, r.Date)
		if err != nil {
			return ErrInvalidDate
		}
		r.date = &d
	}
	if r.Status != "" && !booking.Status(r.Status).Valid() {
		return ErrInvalidStatus
	}
	return nil
}

type PaymentRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Method string `json:"method"`
}

type PaymentResponse struct {
	Booking     BookingResponse     `json:"booking"`
	Participant ParticipantResponse `json:"participant"`
}

type AddParticipantRequest struct {
	UserID    string `json:"user_id"`
	GuestName string `json:"guest_name"`
}
