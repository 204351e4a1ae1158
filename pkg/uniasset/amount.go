package uniasset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// jsonPlaces bounds the precision of amounts on the wire. Sub-cent token
// prices (PEPE, BONK) need more than the usual 4 places.
const jsonPlaces = 8

// MaxAmount caps stored quantities, prices and totals so every value stays
// representable as a JSON number.
const MaxAmount = 1e15

// Amount wraps decimal.Decimal for quantities, prices and values.
// JSON marshaling outputs a float64 number (compatible with frontend),
// while internal arithmetic uses precise decimal operations.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f := a.Round(jsonPlaces).Float64()
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("amount %s exceeds float64 range", a.String())
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings. null and the
// empty string decode to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d}, nil
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) Amount {
	return Amount{a.Decimal.Mul(b.Decimal)}
}

// Div returns a / b; callers guarantee b is non-zero.
func (a Amount) Div(b Amount) Amount {
	return Amount{a.Decimal.Div(b.Decimal)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

// Round rounds to places decimal places.
func (a Amount) Round(places int32) Amount {
	return Amount{a.Decimal.Round(places)}
}

// Float64 returns the nearest float64 value.
func (a Amount) Float64() float64 {
	f, _ := a.Decimal.Float64()
	return f
}

// Equal reports whether a and b represent the same number.
func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

// exceeds reports whether a is greater than limit.
func (a Amount) exceeds(limit float64) bool {
	return a.Decimal.GreaterThan(decimal.NewFromFloat(limit))
}

func amountPtr(v Amount) *Amount {
	return &v
}

// sumAmounts adds values in order.
func sumAmounts(values []Amount) Amount {
	total := Amount{decimal.Zero}
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
