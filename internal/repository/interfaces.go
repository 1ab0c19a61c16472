package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Sequence names used for display numbers.
const (
	SequenceLoanNumber = "loan_number"
	SequenceFineNumber = "fine_number"
)

// LoanRepository defines read access to loans and their installments
type LoanRepository interface {
	// GetByID retrieves a loan by its primary key
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByLoanNumber retrieves a loan by its display number
	GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error)

	// List returns one page of loans and the total number of matches
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, int, error)

	// ListInstallments returns a loan's installments ordered by sequence number
	ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// GetInstallment retrieves a single installment
	GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error)

	// ListOverdueInstallments returns unpaid installments due before asOf whose
	// loan is in one of loanStatuses (any status when empty), oldest first
	ListOverdueInstallments(ctx context.Context, asOf time.Time, loanStatuses []string) ([]*domain.OverdueInstallment, error)

	// StatusTotals aggregates loan counts and amounts per status
	StatusTotals(ctx context.Context) ([]domain.LoanStatusTotals, error)

	// InstallmentStatistics summarises installments; asOf bounds overdue, payments since monthStart count as this month
	InstallmentStatistics(ctx context.Context, asOf, monthStart time.Time) (*domain.InstallmentStatistics, error)
}

// FineRepository defines read access to fines
type FineRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Fine, error)

	List(ctx context.Context, filter domain.FineFilter) ([]*domain.Fine, int, error)

	// HasPending reports whether the loan has a pending fine of fineType
	HasPending(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error)

	StatusTotals(ctx context.Context) ([]domain.FineStatusTotals, error)

	TypeTotals(ctx context.Context) ([]domain.FineTypeTotals, error)
}

// Tx is a unit of work. Every mutation of the ledger happens inside one so
// that installment, loan and fine changes commit or roll back together.
type Tx interface {
	CreateLoan(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error

	// LockLoan reads a loan and holds a write lock on it until the Tx ends
	LockLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, loan *domain.Loan) error

	GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error)
	ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)
	UpdateInstallment(ctx context.Context, installment *domain.Installment) error

	// LockFine reads a fine and holds a write lock on it until the Tx ends
	LockFine(ctx context.Context, id uuid.UUID) (*domain.Fine, error)
	CreateFine(ctx context.Context, fine *domain.Fine) error
	UpdateFine(ctx context.Context, fine *domain.Fine) error
	HasPendingFine(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error)

	Commit() error
	Rollback() error
}

// Transactor opens units of work.
type Transactor interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// SequenceGenerator hands out strictly increasing numbers per name. Two
// callers never receive the same number; gaps are allowed.
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Locker takes short-lived cross-process locks. A false result with a nil
// error means another holder owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(context.Context) error, acquired bool, err error)
}
