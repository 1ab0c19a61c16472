package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/segyhp/coop-ledger/internal/repository/mocks"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fineRequest(fineType, amount string) *domain.CreateFineRequest {
	return &domain.CreateFineRequest{
		MemberID:    "member-1",
		Type:        fineType,
		Amount:      money.MustParse(amount),
		Description: "missed the March general meeting",
	}
}

func TestFineService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fine, err := f.fines.Create(ctx, fineRequest(domain.FineTypeMissedMeeting, "15.00"))
	require.NoError(t, err)

	assert.Equal(t, "FIN0001", fine.FineNumber)
	assert.Equal(t, domain.FineStatusPending, fine.Status)
	assert.Equal(t, money.MustParse("15.00"), fine.Amount)
	assert.False(t, fine.LoanID.Valid)
	assert.WithinDuration(t, f.clock.Now().AddDate(0, 0, 30), fine.DueDate, 0)

	stored, err := f.fines.Get(ctx, fine.ID)
	require.NoError(t, err)
	assert.Equal(t, fine.FineNumber, stored.FineNumber)
	assert.Equal(t, fine.Description, stored.Description)

	created := f.disbursedLoan(t, "member-1")
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	request := fineRequest(domain.FineTypeViolation, "40.00")
	request.LoanID = &created.Loan.ID
	request.DueDate = &due

	linked, err := f.fines.Create(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, "FIN0002", linked.FineNumber)
	assert.Equal(t, uuid.NullUUID{UUID: created.Loan.ID, Valid: true}, linked.LoanID)
	assert.WithinDuration(t, due, linked.DueDate, 0)

	page, err := f.fines.List(ctx, domain.FineFilter{LoanID: &created.Loan.ID})
	require.NoError(t, err)
	require.Len(t, page.Fines, 1)
	assert.Equal(t, linked.ID, page.Fines[0].ID)
}

func TestFineService_Create_Validation(t *testing.T) {
	unknownLoan := uuid.New()

	tests := []struct {
		name    string
		request *domain.CreateFineRequest
		wantErr error
		code    string
	}{
		{
			name:    "missing member",
			request: &domain.CreateFineRequest{Type: domain.FineTypeOther, Amount: money.MustParse("1.00")},
			wantErr: customError.ErrValidation,
			code:    customError.ErrCodeValidation,
		},
		{
			name:    "unknown type",
			request: fineRequest("littering", "1.00"),
			wantErr: customError.ErrValidation,
			code:    customError.ErrCodeValidation,
		},
		{
			name:    "zero amount",
			request: fineRequest(domain.FineTypeOther, "0"),
			wantErr: customError.ErrValidation,
			code:    customError.ErrCodeValidation,
		},
		{
			name: "unknown loan",
			request: &domain.CreateFineRequest{
				MemberID: "member-1",
				LoanID:   &unknownLoan,
				Type:     domain.FineTypeLatePayment,
				Amount:   money.MustParse("5.00"),
			},
			wantErr: customError.ErrNotFound,
			code:    customError.ErrCodeLoanNotFound,
		},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fine, err := f.fines.Create(context.Background(), tt.request)

			assert.Nil(t, fine)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.code, customError.Code(err))
		})
	}
}

func TestFineService_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pay := &domain.PayFineRequest{PaymentMethod: domain.PaymentMethodCash, TransactionID: "rcpt-1"}
	waive := &domain.WaiveFineRequest{Reason: "first offence", WaivedBy: "treasurer"}

	t.Run("paid fine is final", func(t *testing.T) {
		fine, err := f.fines.Create(ctx, fineRequest(domain.FineTypeOther, "10.00"))
		require.NoError(t, err)

		paid, err := f.fines.Pay(ctx, fine.ID, pay)
		require.NoError(t, err)
		assert.Equal(t, domain.FineStatusPaid, paid.Status)
		assert.Equal(t, "rcpt-1", paid.TransactionID)
		require.NotNil(t, paid.PaymentDate)

		_, err = f.fines.Pay(ctx, fine.ID, pay)
		assert.ErrorIs(t, err, customError.ErrAlreadyPaid)
		assert.ErrorIs(t, err, customError.ErrInvalidState)

		_, err = f.fines.Waive(ctx, fine.ID, waive)
		assert.ErrorIs(t, err, customError.ErrCannotWaivePaid)
		assert.ErrorIs(t, err, customError.ErrInvalidState)

		description := "edited"
		_, err = f.fines.Update(ctx, fine.ID, &domain.UpdateFineRequest{Description: &description})
		assert.ErrorIs(t, err, customError.ErrInvalidState)
	})

	t.Run("waived fine is final", func(t *testing.T) {
		fine, err := f.fines.Create(ctx, fineRequest(domain.FineTypeOther, "10.00"))
		require.NoError(t, err)

		waived, err := f.fines.Waive(ctx, fine.ID, waive)
		require.NoError(t, err)
		assert.Equal(t, domain.FineStatusWaived, waived.Status)
		assert.Equal(t, "treasurer", waived.WaivedBy)
		assert.Equal(t, "first offence", waived.WaiveReason)

		_, err = f.fines.Waive(ctx, fine.ID, waive)
		assert.ErrorIs(t, err, customError.ErrAlreadyWaived)

		_, err = f.fines.Pay(ctx, fine.ID, pay)
		assert.ErrorIs(t, err, customError.ErrCannotPayWaived)
		assert.ErrorIs(t, err, customError.ErrInvalidState)
	})

	t.Run("disputed fine can still be paid", func(t *testing.T) {
		fine, err := f.fines.Create(ctx, fineRequest(domain.FineTypeOther, "10.00"))
		require.NoError(t, err)

		disputed, err := f.fines.Dispute(ctx, fine.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.FineStatusDisputed, disputed.Status)

		_, err = f.fines.Dispute(ctx, fine.ID)
		assert.ErrorIs(t, err, customError.ErrInvalidState)

		paid, err := f.fines.Pay(ctx, fine.ID, pay)
		require.NoError(t, err)
		assert.Equal(t, domain.FineStatusPaid, paid.Status)
	})

	t.Run("update keeps the amount", func(t *testing.T) {
		fine, err := f.fines.Create(ctx, fineRequest(domain.FineTypeOther, "10.00"))
		require.NoError(t, err)

		fineType := domain.FineTypeViolation
		description := "damaged meeting hall chairs"
		updated, err := f.fines.Update(ctx, fine.ID, &domain.UpdateFineRequest{Type: &fineType, Description: &description})
		require.NoError(t, err)
		assert.Equal(t, domain.FineTypeViolation, updated.Type)
		assert.Equal(t, description, updated.Description)
		assert.Equal(t, money.MustParse("10.00"), updated.Amount)

		bad := "littering"
		_, err = f.fines.Update(ctx, fine.ID, &domain.UpdateFineRequest{Type: &bad})
		assert.ErrorIs(t, err, customError.ErrValidation)
	})

	t.Run("request errors", func(t *testing.T) {
		_, err := f.fines.Pay(ctx, uuid.New(), pay)
		assert.Equal(t, customError.ErrCodeFineNotFound, customError.Code(err))

		_, err = f.fines.Pay(ctx, uuid.New(), &domain.PayFineRequest{PaymentMethod: "iou"})
		assert.ErrorIs(t, err, customError.ErrValidation)

		_, err = f.fines.Waive(ctx, uuid.New(), &domain.WaiveFineRequest{WaivedBy: "treasurer"})
		assert.ErrorIs(t, err, customError.ErrValidation)
	})
}

func TestFineService_Statistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fines.Create(ctx, fineRequest(domain.FineTypeLatePayment, "10.00"))
	require.NoError(t, err)

	paid, err := f.fines.Create(ctx, fineRequest(domain.FineTypeViolation, "20.00"))
	require.NoError(t, err)
	_, err = f.fines.Pay(ctx, paid.ID, &domain.PayFineRequest{PaymentMethod: domain.PaymentMethodOnline})
	require.NoError(t, err)

	waived, err := f.fines.Create(ctx, fineRequest(domain.FineTypeOther, "5.00"))
	require.NoError(t, err)
	_, err = f.fines.Waive(ctx, waived.ID, &domain.WaiveFineRequest{Reason: "hardship", WaivedBy: "chair"})
	require.NoError(t, err)

	stats, err := f.fines.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFines)
	assert.Equal(t, 1, stats.PendingFines)
	assert.Equal(t, 1, stats.PaidFines)
	assert.Equal(t, 1, stats.WaivedFines)
	assert.Equal(t, 0, stats.DisputedFines)
	assert.Equal(t, money.MustParse("35.00"), stats.TotalAmount)
	assert.Equal(t, money.MustParse("20.00"), stats.PaidAmount)
	assert.Equal(t, money.MustParse("10.00"), stats.PendingAmount)
	assert.Len(t, stats.FinesByType, 3)

	page, err := f.fines.List(ctx, domain.FineFilter{Status: domain.FineStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestFineService_Create_UnitOfWork(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(sequence *mocks.MockSequenceGenerator, transactor *mocks.MockTransactor, tx *mocks.MockTx)
		wantErr    error
		code       string
	}{
		{
			name: "commit fails",
			setupMocks: func(sequence *mocks.MockSequenceGenerator, transactor *mocks.MockTransactor, tx *mocks.MockTx) {
				sequence.On("Next", mock.Anything, repository.SequenceFineNumber).Return(int64(7), nil)
				transactor.On("BeginTx", mock.Anything).Return(tx, nil)
				tx.On("CreateFine", mock.Anything, mock.MatchedBy(func(f *domain.Fine) bool {
					return f.FineNumber == "FIN0007"
				})).Return(nil)
				tx.On("Commit").Return(errors.New("connection lost"))
				tx.On("Rollback").Return(nil)
			},
			wantErr: customError.ErrConsistency,
			code:    customError.ErrCodeConsistency,
		},
		{
			name: "insert fails",
			setupMocks: func(sequence *mocks.MockSequenceGenerator, transactor *mocks.MockTransactor, tx *mocks.MockTx) {
				sequence.On("Next", mock.Anything, repository.SequenceFineNumber).Return(int64(8), nil)
				transactor.On("BeginTx", mock.Anything).Return(tx, nil)
				tx.On("CreateFine", mock.Anything, mock.Anything).Return(errors.New("unique violation"))
				tx.On("Rollback").Return(nil)
			},
			code: customError.ErrCodeDatabaseError,
		},
		{
			name: "sequence unavailable",
			setupMocks: func(sequence *mocks.MockSequenceGenerator, transactor *mocks.MockTransactor, tx *mocks.MockTx) {
				sequence.On("Next", mock.Anything, repository.SequenceFineNumber).Return(int64(0), errors.New("redis down"))
			},
			code: customError.ErrCodeDatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sequence := &mocks.MockSequenceGenerator{}
			transactor := &mocks.MockTransactor{}
			tx := &mocks.MockTx{}
			tt.setupMocks(sequence, transactor, tx)

			svc := NewFineService(&mocks.MockFineRepository{}, &mocks.MockLoanRepository{}, transactor, sequence,
				&testClock{now: loanStart}, testConfig(), zap.NewNop())

			fine, err := svc.Create(context.Background(), fineRequest(domain.FineTypeOther, "3.00"))

			assert.Nil(t, fine)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.code, customError.Code(err))

			sequence.AssertExpectations(t)
			transactor.AssertExpectations(t)
			tx.AssertExpectations(t)
			if tt.name != "commit fails" {
				tx.AssertNotCalled(t, "Commit")
			}
		})
	}
}
