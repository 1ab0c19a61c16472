package utils

import (
	"time"

	"github.com/segyhp/coop-ledger/pkg/money"

	"github.com/shopspring/decimal"
)

// MaxLoanTermMonths bounds schedule generation.
const MaxLoanTermMonths = 360

var hundred = decimal.NewFromInt(100)

// ScheduleTerms are the inputs of an amortization schedule.
type ScheduleTerms struct {
	Principal        money.Money
	MonthlyRate      decimal.Decimal // percent per month, 0-100
	MonthlyPrincipal money.Money
	MonthlyPenalty   money.Money
}

// ScheduleEntry is one generated month of a schedule.
type ScheduleEntry struct {
	Month          int
	OpeningBalance money.Money
	PrincipalDue   money.Money
	InterestDue    money.Money
	PenaltyDue     money.Money
	TotalDue       money.Money
	ClosingBalance money.Money
	DueDate        time.Time
}

// CalculateLoanTerm returns ceil(principal / monthlyPrincipal) clamped to
// [1, maxMonths]. Callers validate that both amounts are positive.
func CalculateLoanTerm(principal, monthlyPrincipal money.Money, maxMonths int) int {
	if maxMonths <= 0 || maxMonths > MaxLoanTermMonths {
		maxMonths = MaxLoanTermMonths
	}
	if !monthlyPrincipal.IsPositive() {
		return maxMonths
	}

	p, m := principal.Cents(), monthlyPrincipal.Cents()
	term := p / m
	if p%m != 0 {
		term++
	}

	switch {
	case term < 1:
		return 1
	case term > int64(maxMonths):
		return maxMonths
	}
	return int(term)
}

// GenerateSchedule builds the ordered installments for terms starting at
// startDate. Interest for a month is charged on the balance still open at the
// start of that month; the final installment retires whatever principal is
// left. Generation stops after maxMonths even if principal remains.
func GenerateSchedule(terms ScheduleTerms, startDate time.Time, maxMonths int) []ScheduleEntry {
	loanTerm := CalculateLoanTerm(terms.Principal, terms.MonthlyPrincipal, maxMonths)
	monthlyRate := terms.MonthlyRate.Div(hundred)

	schedule := make([]ScheduleEntry, 0, loanTerm)
	remaining := terms.Principal

	for month := 1; month <= loanTerm && remaining.IsPositive(); month++ {
		interest := remaining.MulRate(monthlyRate)
		principal := money.Min(terms.MonthlyPrincipal, remaining)

		schedule = append(schedule, ScheduleEntry{
			Month:          month,
			OpeningBalance: remaining,
			PrincipalDue:   principal,
			InterestDue:    interest,
			PenaltyDue:     terms.MonthlyPenalty,
			TotalDue:       money.Sum(principal, interest, terms.MonthlyPenalty),
			ClosingBalance: remaining.Sub(principal),
			DueDate:        AddMonths(startDate, month),
		})

		remaining = remaining.Sub(principal)
	}

	return schedule
}
