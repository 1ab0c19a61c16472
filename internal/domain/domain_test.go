package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstallment_IsOverdue(t *testing.T) {
	due := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   string
		today    time.Time
		expected bool
	}{
		{"due today is not overdue", InstallmentStatusPending, time.Date(2024, 2, 15, 23, 59, 0, 0, time.UTC), false},
		{"day after due date", InstallmentStatusPending, time.Date(2024, 2, 16, 0, 0, 1, 0, time.UTC), true},
		{"before due date", InstallmentStatusPending, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), false},
		{"paid is never overdue", InstallmentStatusPaid, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"partial past due", InstallmentStatusPartial, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"non-UTC clock reading", InstallmentStatusPending, time.Date(2024, 2, 16, 2, 0, 0, 0, time.FixedZone("WIB", 7*3600)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installment := &Installment{DueDate: due, Status: tt.status}
			assert.Equal(t, tt.expected, installment.IsOverdue(tt.today))
		})
	}
}

func TestInstallment_WithDerivedStatus(t *testing.T) {
	due := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	pending := &Installment{DueDate: due, Status: InstallmentStatusPending}
	view := pending.WithDerivedStatus(later)
	assert.Equal(t, InstallmentStatusOverdue, view.Status)
	assert.Equal(t, InstallmentStatusPending, pending.Status, "stored status must not change")

	assert.Equal(t, InstallmentStatusPending, pending.WithDerivedStatus(due).Status)

	paid := &Installment{DueDate: due, Status: InstallmentStatusPaid}
	assert.Equal(t, InstallmentStatusPaid, paid.WithDerivedStatus(later).Status)

	partial := &Installment{DueDate: due, Status: InstallmentStatusPartial}
	assert.Equal(t, InstallmentStatusPartial, partial.WithDerivedStatus(later).Status)
}

func TestLoan_AcceptsPayments(t *testing.T) {
	tests := map[string]bool{
		LoanStatusPending:   false,
		LoanStatusApproved:  false,
		LoanStatusRejected:  false,
		LoanStatusDisbursed: true,
		LoanStatusActive:    true,
		LoanStatusDefaulted: true,
		LoanStatusCompleted: false,
	}

	for status, expected := range tests {
		t.Run(status, func(t *testing.T) {
			loan := &Loan{Status: status}
			assert.Equal(t, expected, loan.AcceptsPayments())
		})
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit, total int
		expectedPages      int
	}{
		{"exact pages", 1, 10, 30, 3},
		{"partial last page", 2, 10, 31, 4},
		{"empty", 1, 10, 0, 0},
		{"zero limit", 1, 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, Pagination{Page: tt.page, Limit: tt.limit, Total: tt.total, Pages: tt.expectedPages}, p)
		})
	}
}

func TestFine_IsTerminal(t *testing.T) {
	assert.False(t, (&Fine{Status: FineStatusPending}).IsTerminal())
	assert.False(t, (&Fine{Status: FineStatusDisputed}).IsTerminal())
	assert.True(t, (&Fine{Status: FineStatusPaid}).IsTerminal())
	assert.True(t, (&Fine{Status: FineStatusWaived}).IsTerminal())
}

func TestValidators(t *testing.T) {
	for _, fineType := range []string{FineTypeLatePayment, FineTypeMissedMeeting, FineTypeViolation, FineTypeOther} {
		assert.True(t, IsValidFineType(fineType), fineType)
	}
	assert.False(t, IsValidFineType("parking"))
	assert.False(t, IsValidFineType(""))

	for _, method := range []string{PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodOnline} {
		assert.True(t, IsValidPaymentMethod(method), method)
	}
	assert.False(t, IsValidPaymentMethod("barter"))
}
