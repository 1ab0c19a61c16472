package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr error
	}{
		{name: "whole units", input: "1200", want: 120000},
		{name: "two places", input: "112.05", want: 11205},
		{name: "one place", input: "0.5", want: 50},
		{name: "negative", input: "-3.10", want: -310},
		{name: "too precise", input: "1.005", wantErr: ErrPrecision},
		{name: "out of range", input: "999999999999999999999", wantErr: ErrRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("abc")
	assert.Error(t, err)
}

func TestMulRate(t *testing.T) {
	tests := []struct {
		name   string
		amount Money
		rate   string
		want   Money
	}{
		{name: "one percent", amount: MustParse("1200.00"), rate: "0.01", want: MustParse("12.00")},
		{name: "rounds half up", amount: MustParse("0.50"), rate: "0.01", want: MustParse("0.01")},
		{name: "rounds down below half", amount: MustParse("0.49"), rate: "0.01", want: Zero},
		{name: "late fee ten days", amount: MustParse("100.00"), rate: "0.20", want: MustParse("20.00")},
		{name: "zero rate", amount: MustParse("100.00"), rate: "0", want: Zero},
		{name: "negative rounds away from zero", amount: MustParse("-0.50"), rate: "0.01", want: MustParse("-0.01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.amount.MulRate(decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestCheckedArithmetic(t *testing.T) {
	half := FromCents(math.MaxInt64/2 + 1)

	_, err := half.CheckedMulRate(decimal.NewFromInt(2))
	assert.ErrorIs(t, err, ErrRange)
	assert.Panics(t, func() {
		half.MulRate(decimal.NewFromInt(2))
	})

	product, err := MustParse("1200.00").CheckedMulRate(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, MustParse("12.00"), product)

	_, err = half.CheckedAdd(half)
	assert.ErrorIs(t, err, ErrRange)
	_, err = MinAmount.CheckedAdd(FromCents(-1))
	assert.ErrorIs(t, err, ErrRange)

	sum, err := Max.CheckedAdd(FromCents(-1))
	require.NoError(t, err)
	assert.Equal(t, FromCents(math.MaxInt64-1), sum)
}

func TestArithmeticAndFormatting(t *testing.T) {
	a := MustParse("100.10")
	b := MustParse("0.90")

	assert.Equal(t, "101.00", a.Add(b).String())
	assert.Equal(t, "99.20", a.Sub(b).String())
	assert.Equal(t, "300.30", a.MulInt(3).String())
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, MustParse("101.00"), Sum(a, b))
	assert.True(t, Zero.IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, b.Sub(a).IsNegative())
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("100.1")))
}

func TestJSON(t *testing.T) {
	payload := struct {
		Amount Money `json:"amount"`
	}{Amount: MustParse("112.00")}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"112.00"}`, string(data))

	var fromString, fromNumber struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.5"}`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.5}`), &fromNumber))
	assert.Equal(t, MustParse("12.50"), fromString.Amount)
	assert.Equal(t, MustParse("12.50"), fromNumber.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"1.234"}`), &fromString))
}

func TestScanAndValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(int64(1250)))
	assert.Equal(t, MustParse("12.50"), m)

	require.NoError(t, m.Scan([]byte("99")))
	assert.Equal(t, FromCents(99), m)

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(1.5))

	v, err := MustParse("3.00").Value()
	require.NoError(t, err)
	assert.Equal(t, int64(300), v)
}
