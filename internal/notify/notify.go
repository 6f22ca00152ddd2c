// Package notify tells players and managers about booking lifecycle changes.
package notify

import (
	"context"
	"errors"
	"time"
)

// EventType doubles as the routing key when events are published to a broker.
type EventType string

const (
	BookingCancelled EventType = "booking.cancelled"
	BookingConfirmed EventType = "booking.confirmed"
	BookingCompleted EventType = "booking.completed"
)

// Event describes one booking state change.
type Event struct {
	Type          EventType `json:"type"`
	BookingID     string    `json:"booking_id"`
	CourtID       string    `json:"court_id"`
	FacilityID    string    `json:"facility_id"`
	UserID        string    `json:"user_id,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	Date          string    `json:"date"`
	StartMinute   int       `json:"start_minute"`
	RefundPending bool      `json:"refund_pending,omitempty"`
	// Actor is who caused the change, empty for scheduled jobs.
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
