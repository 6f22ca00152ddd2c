package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes events to the structured log. It is the default sink
// when no broker is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.logger.Info().
		Str("event", string(ev.Type)).
		Str("booking_id", ev.BookingID).
		Str("facility_id", ev.FacilityID).
		Str("user_id", ev.UserID).
		Str("date", ev.Date).
		Int("start_minute", ev.StartMinute).
		Bool("refund_pending", ev.RefundPending).
		Msg("booking notification")
	return nil
}
