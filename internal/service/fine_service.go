package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/money"
	"github.com/segyhp/coop-ledger/pkg/utils"

	"go.uber.org/zap"
)

type FineService struct {
	fineRepo   repository.FineRepository
	loanRepo   repository.LoanRepository
	transactor repository.Transactor
	sequence   repository.SequenceGenerator
	clock      utils.Clock
	config     *config.Config
	logger     *zap.Logger
}

func NewFineService(
	fineRepo repository.FineRepository,
	loanRepo repository.LoanRepository,
	transactor repository.Transactor,
	sequence repository.SequenceGenerator,
	clock utils.Clock,
	config *config.Config,
	logger *zap.Logger,
) *FineService {
	return &FineService{
		fineRepo:   fineRepo,
		loanRepo:   loanRepo,
		transactor: transactor,
		sequence:   sequence,
		clock:      clock,
		config:     config,
		logger:     logger,
	}
}

// nextFineNumber allocates a display number outside any unit of work.
func nextFineNumber(ctx context.Context, sequence repository.SequenceGenerator) (string, error) {
	n, err := sequence.Next(ctx, repository.SequenceFineNumber)
	if err != nil {
		return "", customError.WrapDatabaseError(err)
	}
	return utils.FormatDisplayNumber(utils.FineNumberPrefix, n), nil
}

func newFine(number, memberID string, loanID *uuid.UUID, fineType string, amount money.Money, description string, now, dueDate time.Time) *domain.Fine {
	fine := &domain.Fine{
		ID:          uuid.New(),
		FineNumber:  number,
		MemberID:    memberID,
		Type:        fineType,
		Amount:      amount,
		Description: description,
		Date:        now,
		DueDate:     dueDate,
		Status:      domain.FineStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if loanID != nil {
		fine.LoanID = uuid.NullUUID{UUID: *loanID, Valid: true}
	}
	return fine
}

// Create records a pending fine. Without an explicit due date the fine is
// due FINE_DUE_DAYS after today.
func (s *FineService) Create(ctx context.Context, request *domain.CreateFineRequest) (*domain.Fine, error) {
	switch {
	case request.MemberID == "":
		return nil, customError.NewValidationError("member_id is required")
	case !domain.IsValidFineType(request.Type):
		return nil, customError.NewValidationError("type %q is not a known fine type", request.Type)
	case !request.Amount.IsPositive():
		return nil, customError.NewValidationError("amount must be greater than 0")
	}

	if request.LoanID != nil {
		loanID := *request.LoanID
		if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
			return nil, storeError(err, func() *customError.BusinessError { return customError.WrapLoanNotFound(loanID.String()) })
		}
	}

	now := s.clock.Now()
	dueDate := now.AddDate(0, 0, s.config.Business.FineDueDays)
	if request.DueDate != nil {
		dueDate = request.DueDate.UTC()
	}

	number, err := nextFineNumber(ctx, s.sequence)
	if err != nil {
		return nil, err
	}
	fine := newFine(number, request.MemberID, request.LoanID, request.Type, request.Amount, request.Description, now, dueDate)

	err = inTx(ctx, s.transactor, s.logger, "create fine", func(tx repository.Tx) error {
		return storeError(tx.CreateFine(ctx, fine), nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fine created",
		zap.String("fine_number", fine.FineNumber),
		zap.String("member_id", fine.MemberID),
		zap.String("type", fine.Type),
		zap.Stringer("amount", fine.Amount),
	)
	return fine, nil
}

func (s *FineService) Get(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	fine, err := s.fineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, func() *customError.BusinessError { return customError.WrapFineNotFound(id.String()) })
	}
	return fine, nil
}

func (s *FineService) List(ctx context.Context, filter domain.FineFilter) (*domain.FinePage, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	fines, total, err := s.fineRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.FinePage{
		Fines:      fines,
		Pagination: domain.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Update edits the descriptive fields of an open fine. The amount never changes.
func (s *FineService) Update(ctx context.Context, id uuid.UUID, request *domain.UpdateFineRequest) (*domain.Fine, error) {
	if request.Type != nil && !domain.IsValidFineType(*request.Type) {
		return nil, customError.NewValidationError("type %q is not a known fine type", *request.Type)
	}

	return s.mutate(ctx, id, "update fine", func(fine *domain.Fine, now time.Time) error {
		if fine.IsTerminal() {
			return customError.NewInvalidState("fine %s is %s and can no longer be edited", fine.FineNumber, fine.Status)
		}
		if request.Type != nil {
			fine.Type = *request.Type
		}
		if request.Description != nil {
			fine.Description = *request.Description
		}
		if request.DueDate != nil {
			fine.DueDate = request.DueDate.UTC()
		}
		return nil
	})
}

// Pay settles a fine. Paid and waived fines are final.
func (s *FineService) Pay(ctx context.Context, id uuid.UUID, request *domain.PayFineRequest) (*domain.Fine, error) {
	if !domain.IsValidPaymentMethod(request.PaymentMethod) {
		return nil, customError.NewValidationError("payment_method %q is not supported", request.PaymentMethod)
	}

	return s.mutate(ctx, id, "pay fine", func(fine *domain.Fine, now time.Time) error {
		switch fine.Status {
		case domain.FineStatusPaid:
			return customError.WrapAlreadyPaid("fine", fine.FineNumber)
		case domain.FineStatusWaived:
			return customError.WrapCannotPayWaived(fine.FineNumber)
		}
		fine.Status = domain.FineStatusPaid
		fine.PaymentDate = &now
		fine.PaymentMethod = request.PaymentMethod
		fine.TransactionID = request.TransactionID
		return nil
	})
}

// Waive forgives a fine that has not been paid.
func (s *FineService) Waive(ctx context.Context, id uuid.UUID, request *domain.WaiveFineRequest) (*domain.Fine, error) {
	if request.Reason == "" || request.WaivedBy == "" {
		return nil, customError.NewValidationError("reason and waived_by are required")
	}

	return s.mutate(ctx, id, "waive fine", func(fine *domain.Fine, now time.Time) error {
		switch fine.Status {
		case domain.FineStatusPaid:
			return customError.WrapCannotWaivePaid(fine.FineNumber)
		case domain.FineStatusWaived:
			return customError.WrapAlreadyWaived(fine.FineNumber)
		}
		fine.Status = domain.FineStatusWaived
		fine.WaivedBy = request.WaivedBy
		fine.WaiveReason = request.Reason
		return nil
	})
}

// Dispute flags a pending fine as contested. A disputed fine may still be
// paid or waived.
func (s *FineService) Dispute(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return s.mutate(ctx, id, "dispute fine", func(fine *domain.Fine, now time.Time) error {
		if fine.Status != domain.FineStatusPending {
			return customError.NewInvalidState("fine %s is %s; only pending fines can be disputed", fine.FineNumber, fine.Status)
		}
		fine.Status = domain.FineStatusDisputed
		return nil
	})
}

func (s *FineService) mutate(ctx context.Context, id uuid.UUID, op string, apply func(fine *domain.Fine, now time.Time) error) (*domain.Fine, error) {
	notFound := func() *customError.BusinessError { return customError.WrapFineNotFound(id.String()) }

	var updated *domain.Fine
	err := inTx(ctx, s.transactor, s.logger, op, func(tx repository.Tx) error {
		fine, err := tx.LockFine(ctx, id)
		if err != nil {
			return storeError(err, notFound)
		}

		now := s.clock.Now()
		if err := apply(fine, now); err != nil {
			return err
		}
		fine.UpdatedAt = now

		if err := tx.UpdateFine(ctx, fine); err != nil {
			return storeError(err, notFound)
		}
		updated = fine
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fine updated",
		zap.String("operation", op),
		zap.String("fine_number", updated.FineNumber),
		zap.String("status", updated.Status),
	)
	return updated, nil
}

// Statistics summarises fines by status and by type.
func (s *FineService) Statistics(ctx context.Context) (*domain.FineStatistics, error) {
	byStatus, err := s.fineRepo.StatusTotals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	byType, err := s.fineRepo.TypeTotals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	stats := &domain.FineStatistics{FinesByType: byType}
	for _, t := range byStatus {
		stats.TotalFines += t.Count
		stats.TotalAmount = stats.TotalAmount.Add(t.Total)

		switch t.Status {
		case domain.FineStatusPending:
			stats.PendingFines = t.Count
			stats.PendingAmount = t.Total
		case domain.FineStatusPaid:
			stats.PaidFines = t.Count
			stats.PaidAmount = t.Total
		case domain.FineStatusWaived:
			stats.WaivedFines = t.Count
		case domain.FineStatusDisputed:
			stats.DisputedFines = t.Count
		}
	}
	return stats, nil
}
