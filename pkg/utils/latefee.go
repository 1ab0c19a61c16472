package utils

import (
	"github.com/segyhp/coop-ledger/pkg/money"

	"github.com/shopspring/decimal"
)

// FeePolicy prices lateness: Rate of the base amount per day late, accruing
// for at most CapDays days.
type FeePolicy struct {
	Rate    decimal.Decimal
	CapDays int
}

// DefaultFeePolicy is 2% per day capped at 30 days.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Rate:    decimal.RequireFromString("0.02"),
		CapDays: 30,
	}
}

// LateFee returns round(base * Rate * min(daysLate, CapDays)), or zero when
// the payment is not late.
func (p FeePolicy) LateFee(base money.Money, daysLate int) money.Money {
	if daysLate <= 0 || !base.IsPositive() {
		return money.Zero
	}
	if p.CapDays > 0 && daysLate > p.CapDays {
		daysLate = p.CapDays
	}
	return base.MulRate(p.Rate.Mul(decimal.NewFromInt(int64(daysLate))))
}
