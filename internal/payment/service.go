// Package payment reconciles provider webhooks with the bookings they pay for.
package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nekogravitycat/court-scheduler/internal/booking"
	"github.com/nekogravitycat/court-scheduler/internal/facility"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

// Notification is an inbound webhook, reduced to the fields used for routing.
type Notification struct {
	Type       string
	Action     string
	MerchantID string
	PaymentID  string
	RequestID  string
	Signature  string
}

// Outcome is what the webhook did. Every outcome is acknowledged to the provider.
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"
	OutcomeUnknownTenant    Outcome = "unknown_tenant"
	OutcomeNotApproved      Outcome = "not_approved"
	OutcomeUnknownBooking   Outcome = "unknown_booking"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeSlotLost         Outcome = "slot_lost"
	OutcomeRejected         Outcome = "rejected"
)

type Tenants interface {
	ResolveMerchant(ctx context.Context, merchantID string) (*facility.Facility, string, error)
}

type Bookings interface {
	ReconcileOnlinePayment(ctx context.Context, p booking.OnlinePayment) (booking.ReconcileResult, error)
}

type Service interface {
	Process(ctx context.Context, n Notification) (Outcome, error)
}

type service struct {
	verifier *Verifier
	tenants  Tenants
	provider Provider
	bookings Bookings
}

func NewService(verifier *Verifier, tenants Tenants, provider Provider, bookings Bookings) Service {
	return &service{verifier: verifier, tenants: tenants, provider: provider, bookings: bookings}
}

// Process verifies and applies one webhook. Only ErrInvalidSignature and
// transient failures come back as errors; business no-ops are outcomes.
func (s *service) Process(ctx context.Context, n Notification) (Outcome, error) {
	logger := log.Ctx(ctx).With().
		Str("payment_id", n.PaymentID).
		Str("merchant_id", n.MerchantID).
		Str("request_id", n.RequestID).
		Logger()

	if err := s.verifier.Verify(n.PaymentID, n.RequestID, n.Signature); err != nil {
		logger.Warn().Msg("payment webhook signature rejected")
		return "", err
	}
	if n.Type != "payment" || n.PaymentID == "" {
		logger.Debug().Str("type", n.Type).Msg("ignoring non-payment webhook")
		return OutcomeIgnored, nil
	}

	fac, token, err := s.tenants.ResolveMerchant(ctx, n.MerchantID)
	if err != nil {
		if errors.Is(err, facility.ErrMerchantNotFound) {
			logger.Info().Msg("webhook for unknown merchant")
			return OutcomeUnknownTenant, nil
		}
		return "", transient(err)
	}
	logger = logger.With().Str("facility_id", fac.ID).Logger()

	pay, err := s.provider.GetPayment(ctx, token, n.PaymentID)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		logger.Warn().Msg("provider does not know the payment")
		return OutcomeIgnored, nil
	case errors.Is(err, ErrProviderAuth):
		logger.Error().Err(err).Msg("facility provider credentials rejected")
		return OutcomeRejected, nil
	case err != nil:
		return "", transient(err)
	}

	if pay.Status != StatusApproved {
		logger.Info().Str("status", pay.Status).Msg("payment not approved, nothing to apply")
		return OutcomeNotApproved, nil
	}
	if uuid.Validate(pay.ExternalReference) != nil {
		logger.Warn().Str("external_reference", pay.ExternalReference).Msg("approved payment without a booking reference")
		return OutcomeUnknownBooking, nil
	}

	result, err := s.bookings.ReconcileOnlinePayment(ctx, booking.OnlinePayment{
		FacilityID:        fac.ID,
		BookingID:         pay.ExternalReference,
		ProviderPaymentID: pay.ID,
		Amount:            pay.Amount,
		Method:            pay.Method,
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Code < http.StatusInternalServerError {
			logger.Error().Err(err).Msg("payment could not be applied")
			return OutcomeRejected, nil
		}
		return "", transient(err)
	}

	logger.Info().
		Str("booking_id", pay.ExternalReference).
		Int64("amount", pay.Amount).
		Str("result", string(result)).
		Msg("payment webhook reconciled")

	switch result {
	case booking.ResultConfirmed:
		return OutcomeConfirmed, nil
	case booking.ResultAlreadyProcessed:
		return OutcomeAlreadyProcessed, nil
	case booking.ResultSlotLost:
		return OutcomeSlotLost, nil
	default:
		return OutcomeUnknownBooking, nil
	}
}

func transient(err error) error {
	if apperror.IsTransient(err) {
		return err
	}
	return apperror.Transient(err)
}
