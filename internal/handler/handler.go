package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"github.com/segyhp/coop-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// LoanService is the loan ledger as seen by the HTTP layer.
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetLoanByNumber(ctx context.Context, loanNumber string) (*domain.Loan, error)
	ListLoans(ctx context.Context, filter domain.LoanFilter) (*domain.LoanPage, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error)
	Approve(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	Reject(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)
	Disburse(ctx context.Context, loanID uuid.UUID, disbursementDate *time.Time) (*domain.Loan, error)
	MarkDefaulted(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	ApplyPayment(ctx context.Context, installmentID uuid.UUID, request *domain.ApplyPaymentRequest) (*domain.PaymentResult, error)
	IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error)
	ListOverdueInstallments(ctx context.Context) ([]*domain.OverdueInstallment, error)
	Statistics(ctx context.Context) (*domain.LoanStatistics, error)
	InstallmentStatistics(ctx context.Context) (*domain.InstallmentStatistics, error)
}

// FineService is the fine ledger as seen by the HTTP layer.
type FineService interface {
	Create(ctx context.Context, request *domain.CreateFineRequest) (*domain.Fine, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Fine, error)
	List(ctx context.Context, filter domain.FineFilter) (*domain.FinePage, error)
	Update(ctx context.Context, id uuid.UUID, request *domain.UpdateFineRequest) (*domain.Fine, error)
	Pay(ctx context.Context, id uuid.UUID, request *domain.PayFineRequest) (*domain.Fine, error)
	Waive(ctx context.Context, id uuid.UUID, request *domain.WaiveFineRequest) (*domain.Fine, error)
	Dispute(ctx context.Context, id uuid.UUID) (*domain.Fine, error)
	Statistics(ctx context.Context) (*domain.FineStatistics, error)
}

// LateFineRunner triggers one late-fine scan on demand.
type LateFineRunner interface {
	RunOnce(ctx context.Context) (*domain.LateFineScanResult, error)
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			response.BadRequest(w, "Invalid JSON payload", err)
			return false
		}
	}
	if err := v.Struct(dst); err != nil {
		response.Error(w, http.StatusBadRequest, customError.ErrCodeValidation, "Validation failed", err)
		return false
	}
	return true
}

// pathID parses the named mux variable as a UUID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads the page and limit query parameters; zero means default.
func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	values := [2]int{}
	for i, key := range []string{"page", "limit"} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "Invalid "+key+" parameter", err)
			return 0, 0, false
		}
		values[i] = n
	}
	return values[0], values[1], true
}

// writeError maps service errors onto HTTP statuses: validation 400, not
// found 404, invalid state 409, anything else 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var be *customError.BusinessError
	message := "Internal server error"
	if errors.As(err, &be) {
		message = be.Message
	}
	code := customError.Code(err)

	switch {
	case errors.Is(err, customError.ErrValidation):
		response.Error(w, http.StatusBadRequest, code, message, nil)
	case errors.Is(err, customError.ErrNotFound):
		response.Error(w, http.StatusNotFound, code, message, nil)
	case errors.Is(err, customError.ErrInvalidState):
		response.Error(w, http.StatusConflict, code, message, nil)
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, code, message, nil)
	}
}
