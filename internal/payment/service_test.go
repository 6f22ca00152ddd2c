package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

const bookingID = "2b1f0c4e-7a55-4b2e-9d3c-6a1e8f0b4c21"

type stubTenants struct {
	err error
}

func (s stubTenants) ResolveMerchant(ctx context.Context, merchantID string) (*facility.Facility, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	if merchantID != "merchant-1" {
		return nil, "", facility.ErrMerchantNotFound
	}
	return &facility.Facility{ID: "fac-1"}, "tok-1", nil
}

type stubProvider struct {
	payments map[string]*Payment
	err      error
	tokens   []string
}

func (s *stubProvider) GetPayment(ctx context.Context, accessToken, paymentID string) (*Payment, error) {
	s.tokens = append(s.tokens, accessToken)
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// stubBookings confirms a pending booking once, like the real lifecycle does.
type stubBookings struct {
	pending map[string]bool
	calls   []booking.OnlinePayment
	err     error
}

func (s *stubBookings) ReconcileOnlinePayment(ctx context.Context, p booking.OnlinePayment) (booking.ReconcileResult, error) {
	s.calls = append(s.calls, p)
	if s.err != nil {
		return "", s.err
	}
	pending, ok := s.pending[p.BookingID]
	if !ok {
		return booking.ResultUnknownBooking, nil
	}
	if !pending {
		return booking.ResultAlreadyProcessed, nil
	}
	s.pending[p.BookingID] = false
	return booking.ResultConfirmed, nil
}

type fixture struct {
	svc      Service
	provider *stubProvider
	bookings *stubBookings
}

func newFixture(secret string) *fixture {
	provider := &stubProvider{payments: map[string]*Payment{
		"900": {ID: "900", Status: StatusApproved, Amount: 5000, ExternalReference: bookingID, Method: "pix"},
		"901": {ID: "901", Status: "rejected", Amount: 5000, ExternalReference: bookingID},
		"902": {ID: "902", Status: StatusApproved, Amount: 5000, ExternalReference: "not-a-booking"},
	}}
	bookings := &stubBookings{pending: map[string]bool{bookingID: true}}
	svc := NewService(NewVerifier(secret, zerolog.Nop()), stubTenants{}, provider, bookings)
	return &fixture{svc: svc, provider: provider, bookings: bookings}
}

func signed(secret, paymentID, requestID string) Notification {
	return Notification{
		Type:       "payment",
		Action:     "payment.updated",
		MerchantID: "merchant-1",
		PaymentID:  paymentID,
		RequestID:  requestID,
		Signature:  "ts=1704908010,v1=" + Sign(secret, Manifest(paymentID, requestID, "1704908010")),
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	f := newFixture("s3cret")
	ctx := context.Background()
	n := signed("s3cret", "900", "req-1")

	outcome, err := f.svc.Process(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)

	outcome, err = f.svc.Process(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, outcome)

	require.Len(t, f.bookings.calls, 2)
	assert.Equal(t, booking.OnlinePayment{
		FacilityID: "fac-1", BookingID: bookingID, ProviderPaymentID: "900", Amount: 5000, Method: "pix",
	}, f.bookings.calls[0])
	assert.Equal(t, []string{"tok-1", "tok-1"}, f.provider.tokens)
}

func TestProcessRejectsBadSignature(t *testing.T) {
	f := newFixture("s3cret")
	n := signed("wrong", "900", "req-1")

	_, err := f.svc.Process(context.Background(), n)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, f.provider.tokens)
	assert.Empty(t, f.bookings.calls)
}

func TestProcessNoOps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Notification)
		want   Outcome
	}{
		{"non payment topic", func(n *Notification) { n.Type = "merchant_order" }, OutcomeIgnored},
		{"unknown merchant", func(n *Notification) { n.MerchantID = "merchant-9" }, OutcomeUnknownTenant},
		{"payment unknown to provider", func(n *Notification) { n.PaymentID = "999" }, OutcomeIgnored},
		{"not approved", func(n *Notification) { n.PaymentID = "901" }, OutcomeNotApproved},
		{"no booking reference", func(n *Notification) { n.PaymentID = "902" }, OutcomeUnknownBooking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Unsigned mode, so mutations do not break the signature.
			f := newFixture("")
			n := signed("", "900", "")
			tt.mutate(&n)

			outcome, err := f.svc.Process(context.Background(), n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
			assert.Empty(t, f.bookings.calls)
		})
	}
}

func TestProcessFailures(t *testing.T) {
	ctx := context.Background()

	f := newFixture("")
	f.provider.err = apperror.Transient(errors.New("provider down"))
	_, err := f.svc.Process(ctx, signed("", "900", ""))
	assert.True(t, apperror.IsTransient(err))

	f = newFixture("")
	f.provider.err = ErrProviderAuth
	outcome, err := f.svc.Process(ctx, signed("", "900", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	f = newFixture("")
	f.bookings.err = errors.New("connection reset")
	_, err = f.svc.Process(ctx, signed("", "900", ""))
	assert.True(t, apperror.IsTransient(err))

	f = newFixture("")
	f.bookings.err = apperror.InvalidState("duplicate")
	outcome, err = f.svc.Process(ctx, signed("", "900", ""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	svc := NewService(NewVerifier("", zerolog.Nop()), stubTenants{err: errors.New("db down")}, &stubProvider{}, &stubBookings{})
	_, err = svc.Process(ctx, signed("", "900", ""))
	assert.True(t, apperror.IsTransient(err))
}
