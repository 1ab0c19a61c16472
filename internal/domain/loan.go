package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusRejected  = "rejected"
	LoanStatusDisbursed = "disbursed"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"
)

// Payment methods accepted for installments and fines.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheck        = "check"
	PaymentMethodOnline       = "online"
)

// IsValidPaymentMethod reports whether method is one of the accepted methods.
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodOnline:
		return true
	}
	return false
}

// LoanTerms are fixed when the loan is created.
type LoanTerms struct {
	PrincipalAmount         money.Money     `json:"principal_amount" db:"principal_amount"`
	InterestRate            decimal.Decimal `json:"interest_rate" db:"interest_rate"` // percent per month
	MonthlyPrincipalPayment money.Money     `json:"monthly_principal_payment" db:"monthly_principal_payment"`
	PenaltyAmount           money.Money     `json:"penalty_amount" db:"penalty_amount"` // flat, per installment
}

// Loan is the aggregate root of the ledger. Installments are loaded separately.
type Loan struct {
	ID         uuid.UUID `json:"id" db:"id"`
	LoanNumber string    `json:"loan_number" db:"loan_number"`
	MemberID   string    `json:"member_id" db:"member_id"`
	LoanTerms
	LoanTerm            int         `json:"loan_term" db:"loan_term"`
	TotalInterestAmount money.Money `json:"total_interest_amount" db:"total_interest_amount"`
	TotalPenaltyAmount  money.Money `json:"total_penalty_amount" db:"total_penalty_amount"`
	TotalAmount         money.Money `json:"total_amount" db:"total_amount"`
	AmountPaid          money.Money `json:"amount_paid" db:"amount_paid"`
	PrincipalPaid       money.Money `json:"principal_paid" db:"principal_paid"`
	InterestPaid        money.Money `json:"interest_paid" db:"interest_paid"`
	RemainingPrincipal  money.Money `json:"remaining_principal" db:"remaining_principal"`
	PaymentCount        int         `json:"payment_count" db:"payment_count"`
	LatePaymentCount    int         `json:"late_payment_count" db:"late_payment_count"`
	Status              string      `json:"status" db:"status"`
	Purpose             string      `json:"purpose,omitempty" db:"purpose"`
	Collateral          string      `json:"collateral,omitempty" db:"collateral"`
	Guarantor           string      `json:"guarantor,omitempty" db:"guarantor"`
	RejectionReason     string      `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApplicationDate     time.Time   `json:"application_date" db:"application_date"`
	ApprovalDate        *time.Time  `json:"approval_date,omitempty" db:"approval_date"`
	DisbursementDate    *time.Time  `json:"disbursement_date,omitempty" db:"disbursement_date"`
	NextPaymentDate     *time.Time  `json:"next_payment_date,omitempty" db:"next_payment_date"`
	MaturityDate        *time.Time  `json:"maturity_date,omitempty" db:"maturity_date"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// AcceptsPayments reports whether installments of the loan may be paid.
func (l *Loan) AcceptsPayments() bool {
	switch l.Status {
	case LoanStatusDisbursed, LoanStatusActive, LoanStatusDefaulted:
		return true
	}
	return false
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	MemberID                string          `json:"member_id" validate:"required"`
	PrincipalAmount         money.Money     `json:"principal_amount" validate:"gt=0"`
	InterestRate            decimal.Decimal `json:"interest_rate"`
	MonthlyPrincipalPayment money.Money     `json:"monthly_principal_payment" validate:"gt=0"`
	PenaltyAmount           money.Money     `json:"penalty_amount" validate:"gte=0"`
	Purpose                 string          `json:"purpose" validate:"max=500"`
	Collateral              string          `json:"collateral" validate:"max=500"`
	Guarantor               string          `json:"guarantor" validate:"max=200"`
	StartDate               *time.Time      `json:"start_date,omitempty"`
}

// Terms extracts the immutable loan terms of the request.
func (r *CreateLoanRequest) Terms() LoanTerms {
	return LoanTerms{
		PrincipalAmount:         r.PrincipalAmount,
		InterestRate:            r.InterestRate,
		MonthlyPrincipalPayment: r.MonthlyPrincipalPayment,
		PenaltyAmount:           r.PenaltyAmount,
	}
}

type CreateLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type DisburseLoanRequest struct {
	DisbursementDate *time.Time `json:"disbursement_date,omitempty"`
}

type DelinquentResponse struct {
	LoanID         uuid.UUID `json:"loan_id"`
	IsDelinquent   bool      `json:"is_delinquent"`
	MissedPayments int       `json:"missed_payments"`
}

// LoanFilter narrows loan listings.
type LoanFilter struct {
	Status   string
	MemberID string
	Page     int
	Limit    int
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination fills in the page count for total rows.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type LoanPage struct {
	Loans      []*Loan    `json:"loans"`
	Pagination Pagination `json:"pagination"`
}

// LoanStatistics is a read-only projection over all loans.
type LoanStatistics struct {
	TotalLoans        int         `json:"total_loans"`
	PendingLoans      int         `json:"pending_loans"`
	ApprovedLoans     int         `json:"approved_loans"`
	RejectedLoans     int         `json:"rejected_loans"`
	DisbursedLoans    int         `json:"disbursed_loans"`
	ActiveLoans       int         `json:"active_loans"`
	CompletedLoans    int         `json:"completed_loans"`
	DefaultedLoans    int         `json:"defaulted_loans"`
	TotalDisbursed    money.Money `json:"total_disbursed"`
	TotalRecovered    money.Money `json:"total_recovered"`
	OutstandingAmount money.Money `json:"outstanding_amount"`
}

// LoanStatusTotals is one row of the per-status aggregation.
type LoanStatusTotals struct {
	Status             string      `db:"status"`
	Count              int         `db:"loan_count"`
	PrincipalAmount    money.Money `db:"principal_amount"`
	AmountPaid         money.Money `db:"amount_paid"`
	RemainingPrincipal money.Money `db:"remaining_principal"`
}
