package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/money"
	"github.com/segyhp/coop-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

var (
	maxInterestRate = decimal.NewFromInt(100)
	// one minor unit per installment covers half-up rounding of interest
	roundingSlack = decimal.New(1, -money.Scale)
)

type LoanService struct {
	loanRepo   repository.LoanRepository
	transactor repository.Transactor
	sequence   repository.SequenceGenerator
	locks      *LoanLocks
	clock      utils.Clock
	config     *config.Config
	logger     *zap.Logger
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	transactor repository.Transactor,
	sequence repository.SequenceGenerator,
	locks *LoanLocks,
	clock utils.Clock,
	config *config.Config,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		loanRepo:   loanRepo,
		transactor: transactor,
		sequence:   sequence,
		locks:      locks,
		clock:      clock,
		config:     config,
		logger:     logger,
	}
}

// CreateLoan validates the terms, builds the monthly schedule and stores the
// loan with its installments in one unit of work.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if err := s.validateLoanRequest(request); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	startDate := utils.StartOfDay(now)
	if request.StartDate != nil {
		startDate = utils.StartOfDay(*request.StartDate)
	}

	terms := request.Terms()
	entries := utils.GenerateSchedule(utils.ScheduleTerms{
		Principal:        terms.PrincipalAmount,
		MonthlyRate:      terms.InterestRate,
		MonthlyPrincipal: terms.MonthlyPrincipalPayment,
		MonthlyPenalty:   terms.PenaltyAmount,
	}, startDate, s.config.Business.MaxLoanTermMonths)

	// Allocated before the unit of work opens; a rolled back loan leaves a gap.
	n, err := s.sequence.Next(ctx, repository.SequenceLoanNumber)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loan := &domain.Loan{
		ID:                 uuid.New(),
		LoanNumber:         utils.FormatDisplayNumber(utils.LoanNumberPrefix, n),
		MemberID:           request.MemberID,
		LoanTerms:          terms,
		LoanTerm:           len(entries),
		RemainingPrincipal: terms.PrincipalAmount,
		Status:             domain.LoanStatusPending,
		Purpose:            request.Purpose,
		Collateral:         request.Collateral,
		Guarantor:          request.Guarantor,
		ApplicationDate:    now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	installments := make([]*domain.Installment, 0, len(entries))
	for _, entry := range entries {
		loan.TotalInterestAmount = loan.TotalInterestAmount.Add(entry.InterestDue)
		loan.TotalPenaltyAmount = loan.TotalPenaltyAmount.Add(entry.PenaltyDue)

		installments = append(installments, &domain.Installment{
			ID:             uuid.New(),
			LoanID:         loan.ID,
			MemberID:       loan.MemberID,
			SequenceNumber: entry.Month,
			OpeningBalance: entry.OpeningBalance,
			PrincipalDue:   entry.PrincipalDue,
			InterestDue:    entry.InterestDue,
			PenaltyDue:     entry.PenaltyDue,
			TotalDue:       entry.TotalDue,
			DueDate:        entry.DueDate,
			Status:         domain.InstallmentStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	loan.TotalAmount = money.Sum(terms.PrincipalAmount, loan.TotalInterestAmount, loan.TotalPenaltyAmount)

	last := entries[len(entries)-1]
	maturity := last.DueDate
	loan.MaturityDate = &maturity
	if last.ClosingBalance.IsPositive() {
		s.logger.Warn("schedule truncated at term cap, principal remains unscheduled",
			zap.String("loan_number", loan.LoanNumber),
			zap.Int("loan_term", loan.LoanTerm),
			zap.Stringer("unscheduled_principal", last.ClosingBalance),
		)
	}

	err = inTx(ctx, s.transactor, s.logger, "create loan", func(tx repository.Tx) error {
		return storeError(tx.CreateLoan(ctx, loan, installments), nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan created",
		zap.String("loan_number", loan.LoanNumber),
		zap.String("member_id", loan.MemberID),
		zap.Stringer("principal", loan.PrincipalAmount),
		zap.Int("loan_term", loan.LoanTerm),
	)

	return &domain.CreateLoanResponse{Loan: loan, Schedule: installments}, nil
}

func (s *LoanService) validateLoanRequest(request *domain.CreateLoanRequest) error {
	switch {
	case request.MemberID == "":
		return customError.NewValidationError("member_id is required")
	case !request.PrincipalAmount.IsPositive():
		return customError.NewValidationError("principal_amount must be greater than 0")
	case !request.MonthlyPrincipalPayment.IsPositive():
		return customError.NewValidationError("monthly_principal_payment must be greater than 0")
	case request.InterestRate.IsNegative() || request.InterestRate.GreaterThan(maxInterestRate):
		return customError.NewValidationError("interest_rate must be between 0 and 100")
	case request.PenaltyAmount.IsNegative():
		return customError.NewValidationError("penalty_amount must not be negative")
	case s.exceedsLedgerRange(request):
		return customError.NewValidationError("loan amounts are too large to be tracked exactly")
	}
	return nil
}

// exceedsLedgerRange reports whether the most the loan can ever accumulate
// (every installment at the full opening principal plus interest and penalty,
// each paid with the maximum late fee) overflows Money.
func (s *LoanService) exceedsLedgerRange(request *domain.CreateLoanRequest) bool {
	term := utils.CalculateLoanTerm(request.PrincipalAmount, request.MonthlyPrincipalPayment, s.config.Business.MaxLoanTermMonths)
	policy := s.config.GetFeePolicy()

	perMonth := request.PrincipalAmount.Decimal().
		Mul(decimal.NewFromInt(1).Add(request.InterestRate.Div(maxInterestRate))).
		Add(request.PenaltyAmount.Decimal()).
		Add(roundingSlack)
	feeFactor := decimal.NewFromInt(1).Add(policy.Rate.Mul(decimal.NewFromInt(int64(policy.CapDays))))
	exposure := perMonth.Mul(decimal.NewFromInt(int64(term))).Mul(feeFactor)

	return exposure.GreaterThan(money.Max.Decimal())
}

func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, func() *customError.BusinessError { return customError.WrapLoanNotFound(id.String()) })
	}
	return loan, nil
}

func (s *LoanService) GetLoanByNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByLoanNumber(ctx, loanNumber)
	if err != nil {
		return nil, storeError(err, func() *customError.BusinessError { return customError.WrapLoanNotFound(loanNumber) })
	}
	return loan, nil
}

func (s *LoanService) ListLoans(ctx context.Context, filter domain.LoanFilter) (*domain.LoanPage, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	loans, total, err := s.loanRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.LoanPage{
		Loans:      loans,
		Pagination: domain.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// GetSchedule returns the loan's installments; pending installments past
// their due date are reported as overdue.
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	installments, err := s.loanRepo.ListInstallments(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.clock.Now()
	schedule := make([]*domain.Installment, 0, len(installments))
	for _, installment := range installments {
		schedule = append(schedule, installment.WithDerivedStatus(today))
	}

	return &domain.ScheduleResponse{LoanID: loanID, Schedule: schedule}, nil
}

// Approve moves a pending loan to approved.
func (s *LoanService) Approve(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, "approve loan", func(loan *domain.Loan, now time.Time) error {
		if loan.Status != domain.LoanStatusPending {
			return customError.NewInvalidState("loan %s is %s; only pending loans can be approved", loan.LoanNumber, loan.Status)
		}
		loan.Status = domain.LoanStatusApproved
		loan.ApprovalDate = &now
		return nil
	})
}

// Reject closes a pending loan application.
func (s *LoanService) Reject(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return s.transition(ctx, loanID, "reject loan", func(loan *domain.Loan, now time.Time) error {
		if loan.Status != domain.LoanStatusPending {
			return customError.NewInvalidState("loan %s is %s; only pending loans can be rejected", loan.LoanNumber, loan.Status)
		}
		loan.Status = domain.LoanStatusRejected
		loan.RejectionReason = reason
		return nil
	})
}

// Disburse pays out an approved loan. The first payment falls due one month
// after disbursement.
func (s *LoanService) Disburse(ctx context.Context, loanID uuid.UUID, disbursementDate *time.Time) (*domain.Loan, error) {
	return s.transition(ctx, loanID, "disburse loan", func(loan *domain.Loan, now time.Time) error {
		if loan.Status != domain.LoanStatusApproved {
			return customError.NewInvalidState("loan %s is %s; only approved loans can be disbursed", loan.LoanNumber, loan.Status)
		}
		disbursed := now
		if disbursementDate != nil {
			disbursed = disbursementDate.UTC()
		}
		next := utils.AddMonths(disbursed, 1)

		loan.Status = domain.LoanStatusDisbursed
		loan.DisbursementDate = &disbursed
		loan.NextPaymentDate = &next
		return nil
	})
}

// MarkDefaulted records that a disbursed or active loan has defaulted.
func (s *LoanService) MarkDefaulted(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, "default loan", func(loan *domain.Loan, now time.Time) error {
		if loan.Status != domain.LoanStatusDisbursed && loan.Status != domain.LoanStatusActive {
			return customError.NewInvalidState("loan %s is %s; only disbursed or active loans can default", loan.LoanNumber, loan.Status)
		}
		loan.Status = domain.LoanStatusDefaulted
		return nil
	})
}

func (s *LoanService) transition(ctx context.Context, loanID uuid.UUID, op string, mutate func(loan *domain.Loan, now time.Time) error) (*domain.Loan, error) {
	unlock := s.locks.Lock(loanID)
	defer unlock()

	var updated *domain.Loan
	err := inTx(ctx, s.transactor, s.logger, op, func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return storeError(err, func() *customError.BusinessError { return customError.WrapLoanNotFound(loanID.String()) })
		}

		now := s.clock.Now()
		if err := mutate(loan, now); err != nil {
			return err
		}
		loan.UpdatedAt = now

		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return storeError(err, nil)
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan status changed",
		zap.String("operation", op),
		zap.String("loan_number", updated.LoanNumber),
		zap.String("status", updated.Status),
	)
	return updated, nil
}

// ApplyPayment settles one installment in full and rolls the payment into the
// loan balances. The installment and the loan change together or not at all.
func (s *LoanService) ApplyPayment(ctx context.Context, installmentID uuid.UUID, request *domain.ApplyPaymentRequest) (*domain.PaymentResult, error) {
	if !domain.IsValidPaymentMethod(request.PaymentMethod) {
		return nil, customError.NewValidationError("payment_method %q is not supported", request.PaymentMethod)
	}

	notFound := func() *customError.BusinessError { return customError.WrapInstallmentNotFound(installmentID.String()) }

	// Resolve the owning loan before taking its lock.
	installment, err := s.loanRepo.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, storeError(err, notFound)
	}

	unlock := s.locks.Lock(installment.LoanID)
	defer unlock()

	now := s.clock.Now()
	paidOn := now
	if request.PaidOn != nil {
		paidOn = request.PaidOn.UTC()
	}

	var result *domain.PaymentResult
	err = inTx(ctx, s.transactor, s.logger, "apply payment", func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, installment.LoanID)
		if err != nil {
			return storeError(err, func() *customError.BusinessError { return customError.WrapLoanNotFound(installment.LoanID.String()) })
		}

		// Re-read under the loan lock; the copy above may be stale.
		installment, err := tx.GetInstallment(ctx, installmentID)
		if err != nil {
			return storeError(err, notFound)
		}

		if installment.IsPaid() {
			return customError.WrapAlreadyPaid("installment", installmentID.String())
		}
		if !loan.AcceptsPayments() {
			return customError.NewInvalidState("loan %s is %s and does not accept payments", loan.LoanNumber, loan.Status)
		}

		daysLate := utils.DaysLate(installment.DueDate, paidOn)
		lateFee := s.config.GetFeePolicy().LateFee(installment.TotalDue, daysLate)

		installment.Status = domain.InstallmentStatusPaid
		installment.PaymentDate = &paidOn
		installment.PaymentMethod = request.PaymentMethod
		installment.TransactionID = request.TransactionID
		installment.LateFeeCharged = lateFee
		installment.UpdatedAt = now

		loan.AmountPaid = money.Sum(loan.AmountPaid, installment.TotalDue, lateFee)
		loan.PrincipalPaid = loan.PrincipalPaid.Add(installment.PrincipalDue)
		loan.InterestPaid = money.Sum(loan.InterestPaid, installment.InterestDue, installment.PenaltyDue, lateFee)
		loan.RemainingPrincipal = loan.PrincipalAmount.Sub(loan.PrincipalPaid)
		loan.PaymentCount++
		if daysLate > 0 {
			loan.LatePaymentCount++
		}
		loan.UpdatedAt = now

		if loan.RemainingPrincipal.IsNegative() {
			return customError.WrapConsistencyError("payment would overpay loan "+loan.LoanNumber,
				fmt.Errorf("remaining principal %s", loan.RemainingPrincipal))
		}

		if loan.RemainingPrincipal.IsZero() {
			loan.Status = domain.LoanStatusCompleted
			loan.NextPaymentDate = nil
		} else {
			installments, err := tx.ListInstallments(ctx, loan.ID)
			if err != nil {
				return storeError(err, nil)
			}
			loan.NextPaymentDate = nextDueDate(installments, installment.ID)
		}

		if err := tx.UpdateInstallment(ctx, installment); err != nil {
			return storeError(err, notFound)
		}
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return customError.WrapConsistencyError("installment update rolled back: loan "+loan.LoanNumber+" could not be updated", err)
		}

		result = &domain.PaymentResult{
			Installment: installment,
			Loan:        loan,
			LateFee:     lateFee,
			DaysLate:    max(daysLate, 0),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment applied",
		zap.String("loan_number", result.Loan.LoanNumber),
		zap.Int("sequence_number", result.Installment.SequenceNumber),
		zap.Stringer("amount", result.Installment.TotalDue),
		zap.Stringer("late_fee", result.LateFee),
		zap.Int("days_late", result.DaysLate),
	)
	if result.Loan.Status == domain.LoanStatusCompleted {
		s.logger.Info("loan completed", zap.String("loan_number", result.Loan.LoanNumber))
	}

	return result, nil
}

// nextDueDate returns the due date of the first unpaid installment by
// sequence number, skipping the one just paid.
func nextDueDate(installments []*domain.Installment, paidID uuid.UUID) *time.Time {
	for _, installment := range installments {
		if installment.ID == paidID || installment.IsPaid() {
			continue
		}
		due := installment.DueDate
		return &due
	}
	return nil
}

// IsDelinquent reports whether the loan has at least DELINQUENCY_THRESHOLD
// consecutive overdue installments.
func (s *LoanService) IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	installments, err := s.loanRepo.ListInstallments(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.clock.Now()
	missed, consecutive, longest := 0, 0, 0
	for _, installment := range installments {
		if installment.IsPaid() {
			consecutive = 0
			continue
		}
		if !installment.IsOverdue(today) {
			break // not yet due
		}
		missed++
		consecutive++
		longest = max(longest, consecutive)
	}

	return &domain.DelinquentResponse{
		LoanID:         loanID,
		IsDelinquent:   longest >= s.config.Business.DelinquencyThreshold,
		MissedPayments: missed,
	}, nil
}

// ListOverdueInstallments returns every unpaid installment due before today.
func (s *LoanService) ListOverdueInstallments(ctx context.Context) ([]*domain.OverdueInstallment, error) {
	overdue, err := s.loanRepo.ListOverdueInstallments(ctx, utils.StartOfDay(s.clock.Now()), nil)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	for _, o := range overdue {
		if o.Status == domain.InstallmentStatusPending {
			o.Status = domain.InstallmentStatusOverdue
		}
	}
	return overdue, nil
}

// Statistics summarises loans by status.
func (s *LoanService) Statistics(ctx context.Context) (*domain.LoanStatistics, error) {
	totals, err := s.loanRepo.StatusTotals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	stats := &domain.LoanStatistics{}
	for _, t := range totals {
		stats.TotalLoans += t.Count

		switch t.Status {
		case domain.LoanStatusPending:
			stats.PendingLoans = t.Count
		case domain.LoanStatusApproved:
			stats.ApprovedLoans = t.Count
		case domain.LoanStatusRejected:
			stats.RejectedLoans = t.Count
		case domain.LoanStatusDisbursed:
			stats.DisbursedLoans = t.Count
		case domain.LoanStatusActive:
			stats.ActiveLoans = t.Count
		case domain.LoanStatusCompleted:
			stats.CompletedLoans = t.Count
		case domain.LoanStatusDefaulted:
			stats.DefaultedLoans = t.Count
		}

		switch t.Status {
		case domain.LoanStatusDisbursed, domain.LoanStatusActive:
			stats.OutstandingAmount = stats.OutstandingAmount.Add(t.RemainingPrincipal)
			fallthrough
		case domain.LoanStatusCompleted:
			stats.TotalDisbursed = stats.TotalDisbursed.Add(t.PrincipalAmount)
			stats.TotalRecovered = stats.TotalRecovered.Add(t.AmountPaid)
		}
	}
	return stats, nil
}

func (s *LoanService) InstallmentStatistics(ctx context.Context) (*domain.InstallmentStatistics, error) {
	now := s.clock.Now()
	stats, err := s.loanRepo.InstallmentStatistics(ctx, utils.StartOfDay(now), utils.StartOfMonth(now))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return stats, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultPageLimit
	case limit > maxPageLimit:
		limit = maxPageLimit
	}
	return page, limit
}
