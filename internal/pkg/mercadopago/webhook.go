package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types and actions we act on.
const (
	EventTypePayment = "payment"

	ActionPaymentCreated = "payment.created"
	ActionPaymentUpdated = "payment.updated"
)

// maxSignatureAge bounds how old a signed notification may be before it is
// rejected as a possible replay.
const maxSignatureAge = 5 * time.Minute

// Event is the body of a MercadoPago webhook notification.
type Event struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID                string `json:"id"`
		ExternalReference string `json:"external_reference"`
		Status            string `json:"status"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode mercadopago event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("mercadopago event missing type")
	}
	return &ev, nil
}

// VerifySignature validates the x-signature header per MercadoPago's
// documented scheme: the header carries "ts=...,v1=..." and v1 is
// HMAC-SHA256 over "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func VerifySignature(signatureHeader, requestID, dataID, secret string, now time.Time) bool {
	ts, v1, ok := splitSignatureHeader(signatureHeader)
	if !ok || secret == "" {
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.UnixMilli(tsInt))
	if age < -maxSignatureAge || age > maxSignatureAge {
		return false
	}

	received, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hmac.Equal(mac.Sum(nil), received)
}

func splitSignatureHeader(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1, ts != "" && v1 != ""
}
