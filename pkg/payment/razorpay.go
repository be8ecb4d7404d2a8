// Package payment verifies gateway callback signatures. The gateway
// signs "orderRef|paymentRef" with HMAC-SHA256 over a shared secret;
// anything else about the gateway is out of scope here.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign computes the expected hex signature for an order/payment pair.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a supplied signature in constant time.
func (v *Verifier) Verify(orderRef, paymentRef, signature string) bool {
	expected := v.Sign(orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}
