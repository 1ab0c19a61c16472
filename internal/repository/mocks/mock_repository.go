package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	args := m.Called(ctx, loanNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Loan), args.Int(1), args.Error(2)
}

func (m *MockLoanRepository) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockLoanRepository) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockLoanRepository) ListOverdueInstallments(ctx context.Context, asOf time.Time, loanStatuses []string) ([]*domain.OverdueInstallment, error) {
	args := m.Called(ctx, asOf, loanStatuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OverdueInstallment), args.Error(1)
}

func (m *MockLoanRepository) StatusTotals(ctx context.Context) ([]domain.LoanStatusTotals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanStatusTotals), args.Error(1)
}

func (m *MockLoanRepository) InstallmentStatistics(ctx context.Context, asOf, monthStart time.Time) (*domain.InstallmentStatistics, error) {
	args := m.Called(ctx, asOf, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentStatistics), args.Error(1)
}

type MockFineRepository struct {
	mock.Mock
}

func (m *MockFineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fine), args.Error(1)
}

func (m *MockFineRepository) List(ctx context.Context, filter domain.FineFilter) ([]*domain.Fine, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Fine), args.Int(1), args.Error(2)
}

func (m *MockFineRepository) HasPending(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error) {
	args := m.Called(ctx, loanID, fineType)
	return args.Bool(0), args.Error(1)
}

func (m *MockFineRepository) StatusTotals(ctx context.Context) ([]domain.FineStatusTotals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FineStatusTotals), args.Error(1)
}

func (m *MockFineRepository) TypeTotals(ctx context.Context) ([]domain.FineTypeTotals, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FineTypeTotals), args.Error(1)
}

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) BeginTx(ctx context.Context) (repository.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Tx), args.Error(1)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) CreateLoan(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error {
	args := m.Called(ctx, loan, installments)
	return args.Error(0)
}

func (m *MockTx) LockLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockTx) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockTx) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockTx) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockTx) UpdateInstallment(ctx context.Context, installment *domain.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockTx) LockFine(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fine), args.Error(1)
}

func (m *MockTx) CreateFine(ctx context.Context, fine *domain.Fine) error {
	args := m.Called(ctx, fine)
	return args.Error(0)
}

func (m *MockTx) UpdateFine(ctx context.Context, fine *domain.Fine) error {
	args := m.Called(ctx, fine)
	return args.Error(0)
}

func (m *MockTx) HasPendingFine(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error) {
	args := m.Called(ctx, loanID, fineType)
	return args.Bool(0), args.Error(1)
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

type MockSequenceGenerator struct {
	mock.Mock
}

func (m *MockSequenceGenerator) Next(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key)
	release, _ := args.Get(0).(func(context.Context) error)
	return release, args.Bool(1), args.Error(2)
}
