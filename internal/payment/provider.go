package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var (
	ErrPaymentNotFound = errors.New("payment not found at provider")
	ErrProviderAuth    = errors.New("provider rejected the facility access token")
)

const StatusApproved = "approved"

// Payment is the provider's authoritative view of a payment.
type Payment struct {
	ID                string
	Status            string
	Amount            int64
	ExternalReference string
	Method            string
}

// Provider fetches payments on behalf of a facility.
type Provider interface {
	GetPayment(ctx context.Context, accessToken, paymentID string) (*Payment, error)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

type paymentAPIResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	ExternalReference string      `json:"external_reference"`
	PaymentMethodID   string      `json:"payment_method_id"`
	PaymentTypeID     string      `json:"payment_type_id"`
}

func (c *Client) GetPayment(ctx context.Context, accessToken, paymentID string) (*Payment, error) {
	u := fmt.Sprintf("%s/v1/payments/%s", c.BaseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperror.Transient(fmt.Errorf("fetch payment %s: %w", paymentID, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrProviderAuth
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, apperror.Transient(fmt.Errorf("payment API status=%d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment API status=%d, body=%s", resp.StatusCode, string(b))
	}

	var api paymentAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, apperror.Transient(fmt.Errorf("decode payment %s: %w", paymentID, err))
	}

	method := api.PaymentMethodID
	if method == "" {
		method = api.PaymentTypeID
	}
	id := api.ID.String()
	if id == "" {
		id = paymentID
	}
	return &Payment{
		ID:                id,
		Status:            api.Status,
		Amount:            ToMinorUnits(api.TransactionAmount),
		ExternalReference: api.ExternalReference,
		Method:            method,
	}, nil
}

// ToMinorUnits converts a decimal provider amount into integer cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
