package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret. This is
// the signature scheme Razorpay uses for both webhook bodies and the
// client-side checkout confirmation.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the HMAC over payload and compares it to the
// provided signature in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CheckoutPayload builds the string Razorpay signs on the client confirmation
// path: "<gateway order id>|<gateway payment id>".
func CheckoutPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
