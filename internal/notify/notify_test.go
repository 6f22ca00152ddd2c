package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Notify(ctx context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}

	err := Multi{failing, ok}.Notify(context.Background(), Event{Type: BookingCancelled, BookingID: "b1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	require.NoError(t, n.Notify(context.Background(), Event{Type: BookingConfirmed, BookingID: "b1", RefundPending: true}))

	assert.Contains(t, buf.String(), `"event":"booking.confirmed"`)
	assert.Contains(t, buf.String(), `"booking_id":"b1"`)
	assert.Contains(t, buf.String(), `"component":"notify"`)
}
