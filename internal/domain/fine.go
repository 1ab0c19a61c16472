package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/pkg/money"
)

const (
	FineTypeLatePayment   = "late_payment"
	FineTypeMissedMeeting = "missed_meeting"
	FineTypeViolation     = "violation"
	FineTypeOther         = "other"
)

const (
	FineStatusPending  = "pending"
	FineStatusPaid     = "paid"
	FineStatusWaived   = "waived"
	FineStatusDisputed = "disputed"
)

// IsValidFineType reports whether t is a known fine type.
func IsValidFineType(t string) bool {
	switch t {
	case FineTypeLatePayment, FineTypeMissedMeeting, FineTypeViolation, FineTypeOther:
		return true
	}
	return false
}

// Fine is a standalone penalty, optionally linked to a loan.
type Fine struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	FineNumber    string        `json:"fine_number" db:"fine_number"`
	MemberID      string        `json:"member_id" db:"member_id"`
	LoanID        uuid.NullUUID `json:"loan_id" db:"loan_id"`
	Type          string        `json:"type" db:"type"`
	Amount        money.Money   `json:"amount" db:"amount"`
	Description   string        `json:"description" db:"description"`
	Date          time.Time     `json:"date" db:"date"`
	DueDate       time.Time     `json:"due_date" db:"due_date"`
	Status        string        `json:"status" db:"status"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty" db:"payment_date"`
	PaymentMethod string        `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty" db:"transaction_id"`
	WaivedBy      string        `json:"waived_by,omitempty" db:"waived_by"`
	WaiveReason   string        `json:"waive_reason,omitempty" db:"waive_reason"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the fine can no longer change status.
func (f *Fine) IsTerminal() bool {
	return f.Status == FineStatusPaid || f.Status == FineStatusWaived
}

type CreateFineRequest struct {
	MemberID    string      `json:"member_id" validate:"required"`
	LoanID      *uuid.UUID  `json:"loan_id,omitempty"`
	Type        string      `json:"type" validate:"required,oneof=late_payment missed_meeting violation other"`
	Amount      money.Money `json:"amount" validate:"gt=0"`
	Description string      `json:"description" validate:"max=1000"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
}

// UpdateFineRequest changes descriptive fields of a fine that is still open.
// Amount is deliberately absent: it is fixed at creation.
type UpdateFineRequest struct {
	Type        *string    `json:"type,omitempty" validate:"omitempty,oneof=late_payment missed_meeting violation other"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type PayFineRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash bank_transfer check online"`
	TransactionID string `json:"transaction_id" validate:"max=100"`
}

type WaiveFineRequest struct {
	Reason   string `json:"reason" validate:"required,max=500"`
	WaivedBy string `json:"waived_by" validate:"required"`
}

// FineFilter narrows fine listings.
type FineFilter struct {
	Status   string
	Type     string
	MemberID string
	LoanID   *uuid.UUID
	Page     int
	Limit    int
}

type FinePage struct {
	Fines      []*Fine    `json:"fines"`
	Pagination Pagination `json:"pagination"`
}

// FineTypeTotals is the count and sum of fines of one type.
type FineTypeTotals struct {
	Type  string      `json:"type" db:"type"`
	Count int         `json:"count" db:"fine_count"`
	Total money.Money `json:"total" db:"total"`
}

// FineStatusTotals is the count and sum of fines in one status.
type FineStatusTotals struct {
	Status string      `db:"status"`
	Count  int         `db:"fine_count"`
	Total  money.Money `db:"total"`
}

type FineStatistics struct {
	TotalFines    int              `json:"total_fines"`
	PendingFines  int              `json:"pending_fines"`
	PaidFines     int              `json:"paid_fines"`
	WaivedFines   int              `json:"waived_fines"`
	DisputedFines int              `json:"disputed_fines"`
	TotalAmount   money.Money      `json:"total_amount"`
	PaidAmount    money.Money      `json:"paid_amount"`
	PendingAmount money.Money      `json:"pending_amount"`
	FinesByType   []FineTypeTotals `json:"fines_by_type"`
}

// LateFineScanResult reports one run of the late-fine scan.
// Skipped is set when another scan held the lock.
type LateFineScanResult struct {
	Scanned       int     `json:"scanned"`
	MarkedOverdue int     `json:"marked_overdue"`
	FinesCreated  []*Fine `json:"fines_created"`
	Skipped       bool    `json:"skipped,omitempty"`
}
