package service

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/utils"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const lateFineScanLockKey = "late-fine-scan"

// Only loans that are being repaid accrue late fines.
var lateFineLoanStatuses = []string{domain.LoanStatusDisbursed, domain.LoanStatusActive}

// LateFineScanner marks past-due installments overdue and raises late
// payment fines for them.
type LateFineScanner struct {
	loanRepo   repository.LoanRepository
	fineRepo   repository.FineRepository
	transactor repository.Transactor
	sequence   repository.SequenceGenerator
	locks      *LoanLocks
	locker     repository.Locker
	clock      utils.Clock
	config     *config.Config
	logger     *zap.Logger
}

// NewLateFineScanner builds a scanner. locker may be nil when only one
// scheduler runs.
func NewLateFineScanner(
	loanRepo repository.LoanRepository,
	fineRepo repository.FineRepository,
	transactor repository.Transactor,
	sequence repository.SequenceGenerator,
	locks *LoanLocks,
	locker repository.Locker,
	clock utils.Clock,
	config *config.Config,
	logger *zap.Logger,
) *LateFineScanner {
	return &LateFineScanner{
		loanRepo:   loanRepo,
		fineRepo:   fineRepo,
		transactor: transactor,
		sequence:   sequence,
		locks:      locks,
		locker:     locker,
		clock:      clock,
		config:     config,
		logger:     logger,
	}
}

// RunOnce scans every unpaid installment due before today on a loan being
// repaid. A loan with a pending late_payment fine gets no further late fine,
// however many of its installments are overdue. Failures on one installment
// do not stop the scan; they are returned together with the partial result.
func (s *LateFineScanner) RunOnce(ctx context.Context) (*domain.LateFineScanResult, error) {
	result := &domain.LateFineScanResult{FinesCreated: []*domain.Fine{}}

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, lateFineScanLockKey)
		if err != nil {
			return nil, customError.WrapCacheError(err)
		}
		if !acquired {
			s.logger.Info("late fine scan already running elsewhere, skipping")
			result.Skipped = true
			return result, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release scan lock", zap.Error(err))
			}
		}()
	}

	now := s.clock.Now()
	today := utils.StartOfDay(now)

	overdue, err := s.loanRepo.ListOverdueInstallments(ctx, today, lateFineLoanStatuses)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	var errs error
	for _, installment := range overdue {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		result.Scanned++
		marked, fine, err := s.processInstallment(ctx, installment, today, now)
		if err != nil {
			s.logger.Error("late fine scan failed for installment",
				zap.String("loan_number", installment.LoanNumber),
				zap.Int("sequence_number", installment.SequenceNumber),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
			continue
		}
		if marked {
			result.MarkedOverdue++
		}
		if fine != nil {
			result.FinesCreated = append(result.FinesCreated, fine)
		}
	}

	s.logger.Info("late fine scan finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("marked_overdue", result.MarkedOverdue),
		zap.Int("fines_created", len(result.FinesCreated)),
		zap.Int("failures", len(multierr.Errors(errs))),
	)
	return result, errs
}

func (s *LateFineScanner) processInstallment(ctx context.Context, overdue *domain.OverdueInstallment, today, now time.Time) (bool, *domain.Fine, error) {
	loanID := overdue.LoanID

	unlock := s.locks.Lock(loanID)
	defer unlock()

	daysLate := utils.DaysLate(overdue.DueDate, today)
	fee := s.config.GetFeePolicy().LateFee(overdue.TotalDue, daysLate)

	// Checked and numbered before the unit of work opens, then re-checked inside it.
	var number string
	if fee.IsPositive() {
		pending, err := s.fineRepo.HasPending(ctx, loanID, domain.FineTypeLatePayment)
		if err != nil {
			return false, nil, customError.WrapDatabaseError(err)
		}
		if !pending {
			if number, err = nextFineNumber(ctx, s.sequence); err != nil {
				return false, nil, err
			}
		}
	}

	var (
		marked  bool
		created *domain.Fine
	)
	err := inTx(ctx, s.transactor, s.logger, "late fine scan", func(tx repository.Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return storeError(err, nil)
		}
		installment, err := tx.GetInstallment(ctx, overdue.ID)
		if err != nil {
			return storeError(err, nil)
		}
		if installment.IsPaid() {
			return nil // paid since the listing was read
		}

		if installment.Status == domain.InstallmentStatusPending {
			installment.Status = domain.InstallmentStatusOverdue
			installment.UpdatedAt = now
			if err := tx.UpdateInstallment(ctx, installment); err != nil {
				return storeError(err, nil)
			}
			marked = true
		}

		if number == "" {
			return nil
		}
		pending, err := tx.HasPendingFine(ctx, loanID, domain.FineTypeLatePayment)
		if err != nil || pending {
			return storeError(err, nil)
		}

		description := fmt.Sprintf("Late payment fine for loan %s installment %d (%d days late)",
			loan.LoanNumber, installment.SequenceNumber, daysLate)
		fine := newFine(number, loan.MemberID, &loan.ID, domain.FineTypeLatePayment, fee, description,
			now, now.AddDate(0, 0, s.config.Business.FineDueDays))
		if err := tx.CreateFine(ctx, fine); err != nil {
			return storeError(err, nil)
		}
		created = fine
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	if created != nil {
		s.logger.Info("late payment fine created",
			zap.String("fine_number", created.FineNumber),
			zap.String("loan_number", overdue.LoanNumber),
			zap.Int("sequence_number", overdue.SequenceNumber),
			zap.Stringer("amount", created.Amount),
		)
	}
	return marked, created, nil
}
