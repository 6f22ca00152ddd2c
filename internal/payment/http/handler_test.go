package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/court-scheduler/internal/payment"
	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

type stubService struct {
	got     payment.Notification
	outcome payment.Outcome
	err     error
}

func (s *stubService) Process(ctx context.Context, n payment.Notification) (payment.Outcome, error) {
	s.got = n
	return s.outcome, s.err
}

func post(svc payment.Service, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc))

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	svc := &stubService{outcome: payment.OutcomeConfirmed}
	w := post(svc, "/v1/webhooks/payments",
		`{"type":"payment","action":"payment.updated","user_id":"merchant-1","data":{"id":"900"}}`,
		map[string]string{"x-signature": "ts=1,v1=ab", "x-request-id": "req-1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payment.Notification{
		Type: "payment", Action: "payment.updated", MerchantID: "merchant-1",
		PaymentID: "900", RequestID: "req-1", Signature: "ts=1,v1=ab",
	}, svc.got)

	var body WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, WebhookResponse{Status: "processed", Outcome: "confirmed"}, body)
}

func TestWebhookQueryFallback(t *testing.T) {
	svc := &stubService{outcome: payment.OutcomeIgnored}
	w := post(svc, "/v1/webhooks/payments?type=payment&data.id=77", `{"user_id":"merchant-1"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "77", svc.got.PaymentID)
	assert.Equal(t, "payment", svc.got.Type)
}

func TestWebhookStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"bad signature", payment.ErrInvalidSignature, `{"type":"payment","data":{"id":"1"}}`, http.StatusUnauthorized},
		{"transient", apperror.Transient(errors.New("db down")), `{"type":"payment","data":{"id":"1"}}`, http.StatusServiceUnavailable},
		{"malformed body", nil, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(&stubService{err: tt.err}, "/v1/webhooks/payments", tt.body, nil)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
