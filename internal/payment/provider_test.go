package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

func TestClientGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/111":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":111,"status":"approved","transaction_amount":150.5,"external_reference":"bk-1","payment_method_id":"pix"}`))
		case "/v1/payments/404":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/payments/401":
			w.WriteHeader(http.StatusUnauthorized)
		case "/v1/payments/500":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	p, err := c.GetPayment(ctx, "tok", "111")
	require.NoError(t, err)
	assert.Equal(t, &Payment{ID: "111", Status: "approved", Amount: 15050, ExternalReference: "bk-1", Method: "pix"}, p)

	_, err = c.GetPayment(ctx, "tok", "404")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = c.GetPayment(ctx, "tok", "401")
	assert.ErrorIs(t, err, ErrProviderAuth)

	_, err = c.GetPayment(ctx, "tok", "500")
	assert.True(t, apperror.IsTransient(err))

	_, err = c.GetPayment(ctx, "tok", "bad")
	require.Error(t, err)
	assert.False(t, apperror.IsTransient(err))
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.GetPayment(context.Background(), "tok", "1")
	assert.True(t, apperror.IsTransient(err))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(10), ToMinorUnits(0.1))
	assert.Equal(t, int64(0), ToMinorUnits(0))
}
