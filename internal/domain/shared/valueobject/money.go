package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

// INR is the only currency the store sells in
const INR Currency = "INR"

// paisePerRupee is the minor-unit factor gateways expect amounts in
var paisePerRupee = decimal.NewFromInt(100)

// Money is a value object representing a rupee amount.
// It is immutable - all operations return new Money instances
type Money struct {
	amount decimal.Decimal
}

// NewINR creates Money from a decimal rupee amount
func NewINR(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewINRFromInt creates Money from whole rupees
func NewINRFromInt(rupees int64) Money {
	return Money{amount: decimal.NewFromInt(rupees)}
}

// NewINRFromString creates Money from a string representation
func NewINRFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d}, nil
}

// MustINR parses a rupee string and panics on error. Intended for constants and tests
func MustINR(amount string) Money {
	m, err := NewINRFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// FromPaise converts a gateway minor-unit amount back to rupees
func FromPaise(paise int64) Money {
	return Money{amount: decimal.NewFromInt(paise).Div(paisePerRupee)}
}

// ZeroINR returns zero rupees
func ZeroINR() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the underlying decimal rupee amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency always reports INR
func (m Money) Currency() Currency {
	return INR
}

// Paise returns the amount in paise, rounded half away from zero
func (m Money) Paise() int64 {
	return m.amount.Mul(paisePerRupee).Round(0).IntPart()
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is greater than zero
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is less than zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of two amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m minus other
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulInt multiplies by a whole quantity
func (m Money) MulInt(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty)))}
}

// Round rounds to the given number of decimal places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

// Equals compares two amounts by value
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// GreaterThan reports whether m > other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// LessThan reports whether m < other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Min returns the smaller of two amounts
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// String returns the amount with two decimal places
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Float64 returns the amount as float64 (may lose precision)
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MarshalJSON writes the amount as a JSON number with two decimals
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.amount = decimal.Zero
		return nil
	}
	var raw json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = json.Number(s)
	} else {
		raw = json.Number(data)
	}
	amount, err := decimal.NewFromString(raw.String())
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.amount = decimal.Zero
		return nil
	case string:
		return m.scanString(v)
	case []byte:
		return m.scanString(string(v))
	case float64:
		m.amount = decimal.NewFromFloat(v)
		return nil
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) scanString(s string) error {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	return nil
}
