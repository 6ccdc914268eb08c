package razorpay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/pkg/razorpay"
)

func TestClient_CreateOrder(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(razorpay.Order{
			ID:       "order_SRV123",
			Amount:   49950,
			Currency: "INR",
			Receipt:  "rcpt-1",
			Status:   "created",
		})
	}))
	defer srv.Close()

	client := razorpay.NewClient(razorpay.Config{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   srv.URL,
	})

	order, err := client.CreateOrder(context.Background(), 49950, "INR", "rcpt-1")
	require.NoError(t, err)

	assert.Equal(t, "order_SRV123", order.ID)
	assert.Equal(t, int64(49950), order.Amount)
	assert.Equal(t, "/orders", gotPath)
	assert.Equal(t, "rzp_test_key", gotUser)
	assert.Equal(t, "rzp_test_secret", gotPass)
	assert.Equal(t, float64(49950), gotBody["amount"])
	// Auto-capture is always requested.
	assert.Equal(t, float64(1), gotBody["payment_capture"])
}

func TestClient_CreateOrder_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"description":"upstream down"}}`))
	}))
	defer srv.Close()

	client := razorpay.NewClient(razorpay.Config{BaseURL: srv.URL})

	order, err := client.CreateOrder(context.Background(), 100, "INR", "rcpt-2")
	assert.Nil(t, order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_CreateOrder_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := razorpay.NewClient(razorpay.Config{BaseURL: srv.URL})

	_, err := client.CreateOrder(context.Background(), 100, "INR", "rcpt-3")
	assert.Error(t, err)
}
