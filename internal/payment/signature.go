package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/court-scheduler/internal/pkg/apperror"
)

var ErrInvalidSignature = apperror.InvalidSignature("invalid webhook signature")

// Signature is the parsed x-signature header: "ts=<unix>,v1=<hex hmac>".
type Signature struct {
	Timestamp string
	V1        string
}

func ParseSignature(header string) (Signature, bool) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			sig.Timestamp = strings.TrimSpace(value)
		case "v1":
			sig.V1 = strings.TrimSpace(value)
		}
	}
	return sig, sig.Timestamp != "" && sig.V1 != ""
}

// Manifest builds the signed string. The request-id segment is left out when
// the provider did not send one.
func Manifest(paymentID, requestID, ts string) string {
	var b strings.Builder
	b.WriteString("id:" + strings.ToLower(paymentID) + ";")
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func Sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks webhook signatures against the shared secret. With no
// secret configured every request passes and a warning is logged.
type Verifier struct {
	secret string
	logger zerolog.Logger
}

func NewVerifier(secret string, logger zerolog.Logger) *Verifier {
	if secret == "" {
		logger.Warn().Msg("PAYMENT_WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}
	return &Verifier{secret: secret, logger: logger}
}

func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

func (v *Verifier) Verify(paymentID, requestID, header string) error {
	if !v.Enabled() {
		v.logger.Warn().Str("payment_id", paymentID).Msg("accepting unsigned payment webhook")
		return nil
	}

	sig, ok := ParseSignature(header)
	if !ok {
		return ErrInvalidSignature
	}
	expected := Sign(v.secret, Manifest(paymentID, requestID, sig.Timestamp))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig.V1))) {
		return ErrInvalidSignature
	}
	return nil
}
