package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/segyhp/coop-ledger/internal/domain"
)

const loanColumns = `id, loan_number, member_id, principal_amount, interest_rate, monthly_principal_payment,
	penalty_amount, loan_term, total_interest_amount, total_penalty_amount, total_amount, amount_paid,
	principal_paid, interest_paid, remaining_principal, payment_count, late_payment_count, status,
	purpose, collateral, guarantor, rejection_reason, application_date, approval_date,
	disbursement_date, next_payment_date, maturity_date, created_at, updated_at`

const installmentColumns = `id, loan_id, member_id, sequence_number, opening_balance, principal_due,
	interest_due, penalty_due, total_due, due_date, status, payment_date, payment_method,
	transaction_id, late_fee_charged, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return getLoan(ctx, r.db, "id = ?", id, "")
}

func (r *loanRepository) GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	return getLoan(ctx, r.db, "loan_number = ?", loanNumber, "")
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.MemberID != "" {
		conds = append(conds, "member_id = ?")
		args = append(args, filter.MemberID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM loans"+where), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + loanColumns + " FROM loans" + where + " ORDER BY created_at DESC, loan_number DESC"
	query, args = paginate(query, args, filter.Page, filter.Limit)

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, r.db.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

func (r *loanRepository) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return listInstallments(ctx, r.db, loanID)
}

func (r *loanRepository) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	return getInstallment(ctx, r.db, id)
}

func (r *loanRepository) ListOverdueInstallments(ctx context.Context, asOf time.Time, loanStatuses []string) ([]*domain.OverdueInstallment, error) {
	query := `
		SELECT ` + prefixColumns("i", installmentColumns) + `, l.loan_number, l.status AS loan_status
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status <> ? AND i.due_date < ?`
	args := []interface{}{domain.InstallmentStatusPaid, asOf}

	if len(loanStatuses) > 0 {
		in, inArgs, err := sqlx.In(" AND l.status IN (?)", loanStatuses)
		if err != nil {
			return nil, err
		}
		query += in
		args = append(args, inArgs...)
	}
	query += " ORDER BY i.due_date, l.loan_number, i.sequence_number"

	overdue := []*domain.OverdueInstallment{}
	if err := r.db.SelectContext(ctx, &overdue, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return overdue, nil
}

func (r *loanRepository) StatusTotals(ctx context.Context) ([]domain.LoanStatusTotals, error) {
	query := `
		SELECT status,
			COUNT(*) AS loan_count,
			COALESCE(SUM(principal_amount), 0) AS principal_amount,
			COALESCE(SUM(amount_paid), 0) AS amount_paid,
			COALESCE(SUM(remaining_principal), 0) AS remaining_principal
		FROM loans
		GROUP BY status
		ORDER BY status`

	totals := []domain.LoanStatusTotals{}
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *loanRepository) InstallmentStatistics(ctx context.Context, asOf, monthStart time.Time) (*domain.InstallmentStatistics, error) {
	query := `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS paid,
			COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status <> ? AND due_date < ? THEN 1 ELSE 0 END), 0) AS overdue,
			COALESCE(SUM(total_due), 0) AS total_amount,
			COALESCE(SUM(CASE WHEN status = ? THEN total_due ELSE 0 END), 0) AS paid_amount,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_due ELSE 0 END), 0) AS pending_amount,
			COALESCE(SUM(CASE WHEN payment_date >= ? THEN 1 ELSE 0 END), 0) AS this_month_count,
			COALESCE(SUM(CASE WHEN payment_date >= ? THEN total_due + late_fee_charged ELSE 0 END), 0) AS this_month_total
		FROM installments`

	paid := domain.InstallmentStatusPaid

	var stats domain.InstallmentStatistics
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(query),
		paid,
		paid,
		paid, asOf,
		paid,
		paid,
		monthStart,
		monthStart,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func getLoan(ctx context.Context, q sqlx.ExtContext, cond string, arg interface{}, lock string) (*domain.Loan, error) {
	query := q.Rebind("SELECT " + loanColumns + " FROM loans WHERE " + cond + lock)

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, q, &loan, query, arg); err != nil {
		return nil, notFound(err)
	}
	return &loan, nil
}

func insertLoan(ctx context.Context, q sqlx.ExtContext, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :loan_number, :member_id, :principal_amount, :interest_rate, :monthly_principal_payment,
			:penalty_amount, :loan_term, :total_interest_amount, :total_penalty_amount, :total_amount, :amount_paid,
			:principal_paid, :interest_paid, :remaining_principal, :payment_count, :late_payment_count, :status,
			:purpose, :collateral, :guarantor, :rejection_reason, :application_date, :approval_date,
			:disbursement_date, :next_payment_date, :maturity_date, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, q, query, loan)
	return err
}

func updateLoan(ctx context.Context, q sqlx.ExtContext, loan *domain.Loan) error {
	query := `
		UPDATE loans SET
			amount_paid = :amount_paid,
			principal_paid = :principal_paid,
			interest_paid = :interest_paid,
			remaining_principal = :remaining_principal,
			payment_count = :payment_count,
			late_payment_count = :late_payment_count,
			status = :status,
			rejection_reason = :rejection_reason,
			approval_date = :approval_date,
			disbursement_date = :disbursement_date,
			next_payment_date = :next_payment_date,
			maturity_date = :maturity_date,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, q, query, loan)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func insertInstallment(ctx context.Context, q sqlx.ExtContext, installment *domain.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES (:id, :loan_id, :member_id, :sequence_number, :opening_balance, :principal_due,
			:interest_due, :penalty_due, :total_due, :due_date, :status, :payment_date, :payment_method,
			:transaction_id, :late_fee_charged, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, q, query, installment)
	return err
}

func updateInstallment(ctx context.Context, q sqlx.ExtContext, installment *domain.Installment) error {
	query := `
		UPDATE installments SET
			status = :status,
			payment_date = :payment_date,
			payment_method = :payment_method,
			transaction_id = :transaction_id,
			late_fee_charged = :late_fee_charged,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, q, query, installment)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func getInstallment(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*domain.Installment, error) {
	query := q.Rebind("SELECT " + installmentColumns + " FROM installments WHERE id = ?")

	var installment domain.Installment
	if err := sqlx.GetContext(ctx, q, &installment, query, id); err != nil {
		return nil, notFound(err)
	}
	return &installment, nil
}

func listInstallments(ctx context.Context, q sqlx.ExtContext, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := q.Rebind("SELECT " + installmentColumns + " FROM installments WHERE loan_id = ? ORDER BY sequence_number")

	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, q, &installments, query, loanID); err != nil {
		return nil, err
	}
	return installments, nil
}

func paginate(query string, args []interface{}, page, limit int) (string, []interface{}) {
	if limit <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	return query + " LIMIT ? OFFSET ?", append(args, limit, (page-1)*limit)
}

func prefixColumns(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
