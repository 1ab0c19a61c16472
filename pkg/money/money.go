package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Scale is the number of minor-unit digits carried by Money.
const Scale = 2

var (
	ErrPrecision = errors.New("amount has more than 2 decimal places")
	ErrRange     = errors.New("amount out of range")

	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// Money is a currency-agnostic amount held as an integer count of minor units
// (cents). Zero value is 0.00.
type Money int64

// Zero is 0.00.
const Zero Money = 0

// Max and MinAmount are the largest and smallest representable amounts.
const (
	Max       Money = math.MaxInt64
	MinAmount Money = math.MinInt64
)

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromDecimal converts d to Money. It fails instead of rounding when d carries
// more precision than the minor unit.
func FromDecimal(d decimal.Decimal) (Money, error) {
	units := d.Shift(Scale)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	if units.GreaterThan(maxUnits) || units.LessThan(minUnits) {
		return 0, fmt.Errorf("%w: %s", ErrRange, d.String())
	}
	return Money(units.IntPart()), nil
}

// Parse reads a decimal string such as "1200", "12.5" or "0.01".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add does not check for overflow; amounts entering the ledger are bounded
// when a loan is created. Use CheckedAdd for unbounded inputs.
func (m Money) Add(o Money) Money { return m + o }

func (m Money) Sub(o Money) Money { return m - o }

// MulRate multiplies by a plain factor (0.01 for one percent) and rounds half
// away from zero to the minor unit. It panics with ErrRange when the product
// does not fit; callers that cannot bound their inputs use CheckedMulRate.
func (m Money) MulRate(rate decimal.Decimal) Money {
	product, err := m.CheckedMulRate(rate)
	if err != nil {
		panic(err)
	}
	return product
}

// CheckedMulRate is MulRate returning ErrRange instead of panicking.
func (m Money) CheckedMulRate(rate decimal.Decimal) (Money, error) {
	return FromDecimal(m.Decimal().Mul(rate).Round(Scale))
}

// CheckedAdd returns m+o, or ErrRange when the sum overflows.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o > 0 && m > Max-o) || (o < 0 && m < MinAmount-o) {
		return 0, fmt.Errorf("%w: %s + %s", ErrRange, m, o)
	}
	return m + o, nil
}

// MulInt multiplies by a whole number of units.
func (m Money) MulInt(n int64) Money { return m * Money(n) }

func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	default:
		return 0
	}
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }

// Cents returns the raw minor-unit count.
func (m Money) Cents() int64 { return int64(m) }

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -Scale)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// MarshalJSON encodes the amount as a fixed-point string ("112.00").
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %s: %w", raw, err)
		}
		raw = unquoted
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as a BIGINT count of minor units.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

// Scan reads a BIGINT count of minor units.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		*m = Money(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		*m = Money(n)
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	return nil
}
