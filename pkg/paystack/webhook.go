package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// Webhook event names handled by the service.
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

// Event is the outer shape of every webhook delivery.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChargeData is the data of a charge.success event.
type ChargeData struct {
	ID        int64      `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
}

// TransferData is the data of the transfer.* events.
type TransferData struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	// Failures holds the gateway's failure description, when any.
	Failures *string `json:"failures"`
}

// FailureReason picks the most specific failure description of t.
func (t *TransferData) FailureReason() string {
	if t.Failures != nil && *t.Failures != "" {
		return *t.Failures
	}
	return t.Reason
}

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the valid signature of body.
// The comparison is constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
