package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Money is an exact-decimal monetary amount. It is stored as Decimal128 in
// MongoDB and serialized as a plain JSON number at the API boundary, so
// summed or multiplied amounts never drift the way binary floats do.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal value as Money.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromString parses a decimal string like "499.50" into Money.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return Money{Decimal: d}, nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(n int) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(int64(n)))}
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Paise converts the amount to the gateway's minor-unit integer
// representation (rupees to paise), rounded to the nearest integer.
func (m Money) Paise() int64 {
	return m.Decimal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MarshalJSON emits the amount as an unquoted JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	m.Decimal = d
	return nil
}

// MarshalBSONValue stores the amount as a Decimal128.
func (m Money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d128, err := primitive.ParseDecimal128(m.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("cannot represent %s as Decimal128: %w", m.Decimal, err)
	}
	return bson.MarshalValue(d128)
}

// UnmarshalBSONValue reads Decimal128, falling back to double for documents
// written before the Decimal128 migration.
func (m *Money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDecimal128:
		var d128 primitive.Decimal128
		if err := raw.Unmarshal(&d128); err != nil {
			return err
		}
		d, err := decimal.NewFromString(d128.String())
		if err != nil {
			return fmt.Errorf("invalid Decimal128 %s: %w", d128, err)
		}
		m.Decimal = d
		return nil
	case bson.TypeDouble:
		var f float64
		if err := raw.Unmarshal(&f); err != nil {
			return err
		}
		m.Decimal = decimal.NewFromFloat(f)
		return nil
	case bson.TypeInt32, bson.TypeInt64:
		var n int64
		if err := raw.Unmarshal(&n); err != nil {
			return err
		}
		m.Decimal = decimal.NewFromInt(n)
		return nil
	case bson.TypeNull:
		m.Decimal = decimal.Zero
		return nil
	default:
		return fmt.Errorf("cannot unmarshal BSON type %s into Money", t)
	}
}
