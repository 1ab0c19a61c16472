package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/database"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/segyhp/coop-ledger/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var loanStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			LateFeeRate:          "0.02",
			LateFeeCapDays:       30,
			FineDueDays:          30,
			MaxLoanTermMonths:    360,
			DelinquencyThreshold: 2,
			SequenceBackend:      "database",
		},
	}
}

type fixture struct {
	clock   *testClock
	loans   *LoanService
	fines   *FineService
	scanner *LateFineScanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db") + "?_loc=UTC"
	db, err := database.Open(context.Background(), repository.DriverSQLite, dsn, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	loanRepo := repository.NewLoanRepository(db)
	fineRepo := repository.NewFineRepository(db)
	transactor := repository.NewTransactor(db)
	sequence := repository.NewSequenceGenerator(db)
	locks := NewLoanLocks()
	clock := &testClock{now: loanStart.Add(10 * time.Hour)}
	cfg := testConfig()
	logger := zap.NewNop()

	return &fixture{
		clock:   clock,
		loans:   NewLoanService(loanRepo, transactor, sequence, locks, clock, cfg, logger),
		fines:   NewFineService(fineRepo, loanRepo, transactor, sequence, clock, cfg, logger),
		scanner: NewLateFineScanner(loanRepo, fineRepo, transactor, sequence, locks, nil, clock, cfg, logger),
	}
}

// standardLoan is 1200.00 at 1% a month, repaid 100.00 a month.
func standardLoan(memberID string) *domain.CreateLoanRequest {
	start := loanStart
	return &domain.CreateLoanRequest{
		MemberID:                memberID,
		PrincipalAmount:         money.MustParse("1200.00"),
		InterestRate:            decimal.RequireFromString("1"),
		MonthlyPrincipalPayment: money.MustParse("100.00"),
		StartDate:               &start,
	}
}

// disbursedLoan creates, approves and disburses a standard loan at loanStart.
func (f *fixture) disbursedLoan(t *testing.T, memberID string) *domain.CreateLoanResponse {
	t.Helper()
	ctx := context.Background()

	f.clock.Set(loanStart.Add(10 * time.Hour))
	created, err := f.loans.CreateLoan(ctx, standardLoan(memberID))
	require.NoError(t, err)

	_, err = f.loans.Approve(ctx, created.Loan.ID)
	require.NoError(t, err)

	disbursed := loanStart
	loan, err := f.loans.Disburse(ctx, created.Loan.ID, &disbursed)
	require.NoError(t, err)

	created.Loan = loan
	return created
}

func (f *fixture) pay(t *testing.T, installment *domain.Installment, paidOn time.Time) *domain.PaymentResult {
	t.Helper()
	result, err := f.loans.ApplyPayment(context.Background(), installment.ID, &domain.ApplyPaymentRequest{
		PaymentMethod: domain.PaymentMethodCash,
		PaidOn:        &paidOn,
	})
	require.NoError(t, err)
	return result
}
