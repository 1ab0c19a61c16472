package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/segyhp/coop-ledger/internal/domain"
	"github.com/segyhp/coop-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type FineHandler struct {
	service   FineService
	scanner   LateFineRunner
	validator *validator.Validate
	logger    *zap.Logger
}

func NewFineHandler(service FineService, scanner LateFineRunner, logger *zap.Logger) *FineHandler {
	return &FineHandler{
		service:   service,
		scanner:   scanner,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateFine handles POST /api/v1/fines
func (h *FineHandler) CreateFine(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateFineRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	fine, err := h.service.Create(r.Context(), &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, fine)
}

// ListFines handles GET /api/v1/fines?status=&type=&member_id=&loan_id=&page=&limit=
func (h *FineHandler) ListFines(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := domain.FineFilter{
		Status:   query.Get("status"),
		Type:     query.Get("type"),
		MemberID: query.Get("member_id"),
		Page:     page,
		Limit:    limit,
	}
	if raw := query.Get("loan_id"); raw != "" {
		loanID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid loan_id parameter", err)
			return
		}
		filter.LoanID = &loanID
	}

	fines, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fines)
}

func (h *FineHandler) GetFine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	fine, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fine)
}

func (h *FineHandler) UpdateFine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.UpdateFineRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	fine, err := h.service.Update(r.Context(), id, &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fine)
}

func (h *FineHandler) PayFine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.PayFineRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	fine, err := h.service.Pay(r.Context(), id, &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fine)
}

func (h *FineHandler) WaiveFine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request domain.WaiveFineRequest
	if !decode(w, r, h.validator, &request, false) {
		return
	}

	fine, err := h.service.Waive(r.Context(), id, &request)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fine)
}

func (h *FineHandler) DisputeFine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	fine, err := h.service.Dispute(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fine)
}

func (h *FineHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, stats)
}

// RunLateFineScan handles POST /api/v1/fines/late-payment-scan
func (h *FineHandler) RunLateFineScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.RunOnce(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}
