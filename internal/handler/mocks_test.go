package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, id))
}

func (m *MockLoanService) GetLoanByNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanNumber))
}

func (m *MockLoanService) ListLoans(ctx context.Context, filter domain.LoanFilter) (*domain.LoanPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanPage), args.Error(1)
}

func (m *MockLoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleResponse), args.Error(1)
}

func (m *MockLoanService) Approve(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID))
}

func (m *MockLoanService) Reject(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, reason))
}

func (m *MockLoanService) Disburse(ctx context.Context, loanID uuid.UUID, disbursementDate *time.Time) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, disbursementDate))
}

func (m *MockLoanService) MarkDefaulted(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID))
}

func (m *MockLoanService) ApplyPayment(ctx context.Context, installmentID uuid.UUID, request *domain.ApplyPaymentRequest) (*domain.PaymentResult, error) {
	args := m.Called(ctx, installmentID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResult), args.Error(1)
}

func (m *MockLoanService) IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DelinquentResponse), args.Error(1)
}

func (m *MockLoanService) ListOverdueInstallments(ctx context.Context) ([]*domain.OverdueInstallment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OverdueInstallment), args.Error(1)
}

func (m *MockLoanService) Statistics(ctx context.Context) (*domain.LoanStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanStatistics), args.Error(1)
}

func (m *MockLoanService) InstallmentStatistics(ctx context.Context) (*domain.InstallmentStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentStatistics), args.Error(1)
}

func (m *MockLoanService) loan(args mock.Arguments) (*domain.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

type MockFineService struct {
	mock.Mock
}

func (m *MockFineService) Create(ctx context.Context, request *domain.CreateFineRequest) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, request))
}

func (m *MockFineService) Get(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, id))
}

func (m *MockFineService) List(ctx context.Context, filter domain.FineFilter) (*domain.FinePage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinePage), args.Error(1)
}

func (m *MockFineService) Update(ctx context.Context, id uuid.UUID, request *domain.UpdateFineRequest) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, id, request))
}

func (m *MockFineService) Pay(ctx context.Context, id uuid.UUID, request *domain.PayFineRequest) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, id, request))
}

func (m *MockFineService) Waive(ctx context.Context, id uuid.UUID, request *domain.WaiveFineRequest) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, id, request))
}

func (m *MockFineService) Dispute(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return m.fine(m.Called(ctx, id))
}

func (m *MockFineService) Statistics(ctx context.Context) (*domain.FineStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FineStatistics), args.Error(1)
}

func (m *MockFineService) fine(args mock.Arguments) (*domain.Fine, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fine), args.Error(1)
}

type MockLateFineRunner struct {
	mock.Mock
}

func (m *MockLateFineRunner) RunOnce(ctx context.Context) (*domain.LateFineScanResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LateFineScanResult), args.Error(1)
}
