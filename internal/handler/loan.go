package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	created, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, created)
}

// ListLoans handles GET /api/v1/loans?status=&member_id=&page=&limit=
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	loans, err := h.service.ListLoans(r.Context(), domain.LoanFilter{
		Status:   query.Get("status"),
		MemberID: query.Get("member_id"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loans)
}

// GetLoan handles GET /api/v1/loans/{id}. The id may also be a loan number
// such as LOAN0007.
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]

	var (
		loan *domain.Loan
		err  error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		loan, err = h.service.GetLoan(r.Context(), id)
	} else {
		loan, err = h.service.GetLoanByNumber(r.Context(), ref)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, schedule)
}

func (h *LoanHandler) IsDelinquent(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.service.IsDelinquent(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, report)
}

func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	loan, err := h.service.Approve(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.RejectLoanRequest
	if !decode(w, r, h.validator, &request, true) {
		return
	}

	loan, err := h.service.Reject(r.Context(), loanID, request.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.DisburseLoanRequest
	if !decode(w, r, h.validator, &request, true) {
		return
	}

	loan, err := h.service.Disburse(r.Context(), loanID, request.DisbursementDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	loan, err := h.service.MarkDefaulted(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, stats)
}

// ApplyPayment handles POST /api/v1/installments/{id}/payment
func (h *LoanHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.ApplyPaymentRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	result, err := h.service.ApplyPayment(r.Context(), installmentID, &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

func (h *LoanHandler) ListOverdueInstallments(w http.ResponseWriter, r *http.Request) {
	overdue, err := h.service.ListOverdueInstallments(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, overdue)
}

func (h *LoanHandler) InstallmentStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.InstallmentStatistics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, stats)
}
