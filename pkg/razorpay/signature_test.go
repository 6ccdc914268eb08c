package razorpay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bazaar/pkg/razorpay"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "webhook-secret"

	sig := razorpay.Sign(body, secret)
	assert.True(t, razorpay.VerifySignature(body, sig, secret))

	// Wrong secret, tampered body, or garbage signature all fail.
	assert.False(t, razorpay.VerifySignature(body, sig, "other-secret"))
	assert.False(t, razorpay.VerifySignature([]byte(`{"event":"payment.failed"}`), sig, secret))
	assert.False(t, razorpay.VerifySignature(body, "not-a-signature", secret))
	assert.False(t, razorpay.VerifySignature(body, "", secret))
}

func TestCheckoutPayload(t *testing.T) {
	payload := razorpay.CheckoutPayload("order_ABC", "pay_XYZ")
	assert.Equal(t, []byte("order_ABC|pay_XYZ"), payload)

	// The checkout confirmation verifies against this exact concatenation.
	sig := razorpay.Sign(payload, "key-secret")
	assert.True(t, razorpay.VerifySignature(payload, sig, "key-secret"))
}
