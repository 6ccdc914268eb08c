package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/models"
)

func TestMoney_Paise(t *testing.T) {
	cases := []struct {
		rupees string
		paise  int64
	}{
		{"0", 0},
		{"1", 100},
		{"499.50", 49950},
		{"0.01", 1},
		// Sub-paise amounts round to the nearest paise.
		{"10.005", 1001},
		{"10.004", 1000},
		{"99999.99", 9999999},
	}
	for _, tc := range cases {
		m, err := models.MoneyFromString(tc.rupees)
		require.NoError(t, err)
		assert.Equal(t, tc.paise, m.Paise(), "rupees=%s", tc.rupees)
	}
}

func TestMoney_ExactArithmetic(t *testing.T) {
	// 0.1 + 0.2 is exactly 0.3, which float64 famously gets wrong.
	a, err := models.MoneyFromString("0.1")
	require.NoError(t, err)
	b, err := models.MoneyFromString("0.2")
	require.NoError(t, err)
	want, err := models.MoneyFromString("0.3")
	require.NoError(t, err)
	assert.True(t, a.Add(b).Equal(want))

	price, err := models.MoneyFromString("499.50")
	require.NoError(t, err)
	total, err := models.MoneyFromString("1498.50")
	require.NoError(t, err)
	assert.True(t, price.MulInt(3).Equal(total))
}

func TestMoney_JSON(t *testing.T) {
	m, err := models.MoneyFromString("499.50")
	require.NoError(t, err)

	// Serialized as a bare number, not a quoted string.
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "499.5", string(data))

	// Accepts both numbers and quoted decimal strings on the way in.
	var fromNumber, fromString models.Money
	require.NoError(t, json.Unmarshal([]byte(`499.50`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`"499.50"`), &fromString))
	assert.True(t, fromNumber.Equal(m))
	assert.True(t, fromString.Equal(m))

	assert.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &fromString))
}
