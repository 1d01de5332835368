package payu

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidSignature marks webhook payloads whose signature did not verify.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Signer computes and verifies PayU signatures for one merchant account.
// Checkout-initiation signatures use the plain-MD5 scheme the live PayU
// gateway validates; confirmation webhooks are verified against HMAC-MD5
// keyed with the API key, with the legacy plain-MD5 digest accepted as a
// fallback for accounts still sending it.
type Signer struct {
	APIKey     string
	MerchantID string
}

// NewSigner builds a signer; empty credentials make every verification fail.
func NewSigner(apiKey, merchantID string) *Signer {
	return &Signer{APIKey: strings.TrimSpace(apiKey), MerchantID: strings.TrimSpace(merchantID)}
}

// CheckoutSignature computes the signature the client embeds in the checkout
// form: MD5(apiKey~merchantId~referenceCode~amount~currency).
func (s *Signer) CheckoutSignature(referenceCode, amount, currency string) string {
	payload := strings.Join([]string{s.APIKey, s.MerchantID, referenceCode, amount, currency}, "~")
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyConfirmation checks the signature of an incoming confirmation
// webhook over referenceSale, value, currency and statePol. It accepts the
// keyed HMAC-MD5 digest first and falls back to the legacy plain-MD5 form.
func (s *Signer) VerifyConfirmation(signature, referenceSale, value, currency, statePol string) bool {
	sig := strings.ToLower(strings.TrimSpace(signature))
	if sig == "" || s.APIKey == "" || s.MerchantID == "" {
		return false
	}
	received, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	message := strings.Join([]string{s.MerchantID, referenceSale, value, currency, statePol}, "~")

	mac := hmac.New(md5.New, []byte(s.APIKey))
	mac.Write([]byte(message))
	if hmac.Equal(mac.Sum(nil), received) {
		return true
	}

	legacy := md5.Sum([]byte(s.APIKey + "~" + message))
	return hmac.Equal(legacy[:], received)
}

// VerifyCancellation checks the signature of a cancellation webhook, which
// only signs the subscription reference. Same two schemes as confirmations.
func (s *Signer) VerifyCancellation(signature, referenceCode string) bool {
	sig := strings.ToLower(strings.TrimSpace(signature))
	if sig == "" || s.APIKey == "" || s.MerchantID == "" {
		return false
	}
	received, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	message := s.MerchantID + "~" + referenceCode

	mac := hmac.New(md5.New, []byte(s.APIKey))
	mac.Write([]byte(message))
	if hmac.Equal(mac.Sum(nil), received) {
		return true
	}

	legacy := md5.Sum([]byte(s.APIKey + "~" + message))
	return hmac.Equal(legacy[:], received)
}
