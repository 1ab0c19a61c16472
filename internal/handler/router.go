package handler

import (
	"net/http"

	"github.com/segyhp/coop-ledger/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires every endpoint. Literal paths such as /loans/statistics are
// registered before their {id} siblings so they win the match.
func NewRouter(loans *LoanHandler, fines *FineHandler, health *HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RecoveryMiddleware(logger), response.LoggingMiddleware(logger), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loans.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", loans.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/statistics", loans.Statistics).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", loans.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/schedule", loans.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/delinquent", loans.IsDelinquent).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/approve", loans.Approve).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/reject", loans.Reject).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/disburse", loans.Disburse).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/default", loans.MarkDefaulted).Methods(http.MethodPost)

	api.HandleFunc("/installments/overdue", loans.ListOverdueInstallments).Methods(http.MethodGet)
	api.HandleFunc("/installments/statistics", loans.InstallmentStatistics).Methods(http.MethodGet)
	api.HandleFunc("/installments/{id}/payment", loans.ApplyPayment).Methods(http.MethodPost)

	api.HandleFunc("/fines", fines.CreateFine).Methods(http.MethodPost)
	api.HandleFunc("/fines", fines.ListFines).Methods(http.MethodGet)
	api.HandleFunc("/fines/statistics", fines.Statistics).Methods(http.MethodGet)
	api.HandleFunc("/fines/late-payment-scan", fines.RunLateFineScan).Methods(http.MethodPost)
	api.HandleFunc("/fines/{id}", fines.GetFine).Methods(http.MethodGet)
	api.HandleFunc("/fines/{id}", fines.UpdateFine).Methods(http.MethodPut)
	api.HandleFunc("/fines/{id}/pay", fines.PayFine).Methods(http.MethodPost)
	api.HandleFunc("/fines/{id}/waive", fines.WaiveFine).Methods(http.MethodPost)
	api.HandleFunc("/fines/{id}/dispute", fines.DisputeFine).Methods(http.MethodPost)

	return router
}
