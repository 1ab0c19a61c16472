package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/pkg/money"
)

// Business logic constants
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusPartial = "partial"
	InstallmentStatusOverdue = "overdue"
)

// Installment is one scheduled monthly obligation of a loan.
type Installment struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	LoanID         uuid.UUID   `json:"loan_id" db:"loan_id"`
	MemberID       string      `json:"member_id" db:"member_id"`
	SequenceNumber int         `json:"sequence_number" db:"sequence_number"`
	OpeningBalance money.Money `json:"opening_balance" db:"opening_balance"`
	PrincipalDue   money.Money `json:"principal_due" db:"principal_due"`
	InterestDue    money.Money `json:"interest_due" db:"interest_due"`
	PenaltyDue     money.Money `json:"penalty_due" db:"penalty_due"`
	TotalDue       money.Money `json:"total_due" db:"total_due"`
	DueDate        time.Time   `json:"due_date" db:"due_date"`
	Status         string      `json:"status" db:"status"` // pending, paid, partial, overdue
	PaymentDate    *time.Time  `json:"payment_date,omitempty" db:"payment_date"`
	PaymentMethod  string      `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID  string      `json:"transaction_id,omitempty" db:"transaction_id"`
	LateFeeCharged money.Money `json:"late_fee_charged" db:"late_fee_charged"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the installment has been settled.
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// IsOverdue reports whether the installment is unpaid and its due date lies
// before the day containing today.
func (i *Installment) IsOverdue(today time.Time) bool {
	if i.IsPaid() {
		return false
	}
	y, m, d := today.UTC().Date()
	return i.DueDate.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// WithDerivedStatus returns a copy whose status reads overdue when a pending
// installment is past due. The stored status is not changed.
func (i *Installment) WithDerivedStatus(today time.Time) *Installment {
	view := *i
	if view.Status == InstallmentStatusPending && view.IsOverdue(today) {
		view.Status = InstallmentStatusOverdue
	}
	return &view
}

// OverdueInstallment joins an unpaid, past-due installment with the loan
// fields the late-fine scan needs.
type OverdueInstallment struct {
	Installment
	LoanNumber string `json:"loan_number" db:"loan_number"`
	LoanStatus string `json:"loan_status" db:"loan_status"`
}

type ScheduleResponse struct {
	LoanID   uuid.UUID      `json:"loan_id"`
	Schedule []*Installment `json:"schedule"`
}

type ApplyPaymentRequest struct {
	PaymentMethod string     `json:"payment_method" validate:"required,oneof=cash bank_transfer check online"`
	TransactionID string     `json:"transaction_id" validate:"max=100"`
	PaidOn        *time.Time `json:"paid_on,omitempty"`
}

// PaymentResult is the outcome of applying a payment to an installment.
type PaymentResult struct {
	Installment *Installment `json:"installment"`
	Loan        *Loan        `json:"loan"`
	LateFee     money.Money  `json:"late_fee"`
	DaysLate    int          `json:"days_late"`
}

// InstallmentStatistics summarises installments across all loans. Pending
// counts every unpaid installment; Overdue is the past-due subset.
type InstallmentStatistics struct {
	Total          int         `json:"total" db:"total"`
	Paid           int         `json:"paid" db:"paid"`
	Pending        int         `json:"pending" db:"pending"`
	Overdue        int         `json:"overdue" db:"overdue"`
	TotalAmount    money.Money `json:"total_amount" db:"total_amount"`
	PaidAmount     money.Money `json:"paid_amount" db:"paid_amount"`
	PendingAmount  money.Money `json:"pending_amount" db:"pending_amount"`
	ThisMonthCount int         `json:"this_month_count" db:"this_month_count"`
	ThisMonthTotal money.Money `json:"this_month_total" db:"this_month_total"`
}
