package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/segyhp/coop-ledger/internal/domain"
)

const fineColumns = `id, fine_number, member_id, loan_id, type, amount, description, date, due_date,
	status, payment_date, payment_method, transaction_id, waived_by, waive_reason, created_at, updated_at`

type fineRepository struct {
	db *sqlx.DB
}

func NewFineRepository(db *sqlx.DB) FineRepository {
	return &fineRepository{db: db}
}

func (r *fineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return getFine(ctx, r.db, id, "")
}

func (r *fineRepository) List(ctx context.Context, filter domain.FineFilter) ([]*domain.Fine, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.MemberID != "" {
		conds = append(conds, "member_id = ?")
		args = append(args, filter.MemberID)
	}
	if filter.LoanID != nil {
		conds = append(conds, "loan_id = ?")
		args = append(args, *filter.LoanID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM fines"+where), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + fineColumns + " FROM fines" + where + " ORDER BY date DESC, fine_number DESC"
	query, args = paginate(query, args, filter.Page, filter.Limit)

	fines := []*domain.Fine{}
	if err := r.db.SelectContext(ctx, &fines, r.db.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return fines, total, nil
}

func (r *fineRepository) HasPending(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error) {
	return hasPendingFine(ctx, r.db, loanID, fineType)
}

func (r *fineRepository) StatusTotals(ctx context.Context) ([]domain.FineStatusTotals, error) {
	query := `
		SELECT status, COUNT(*) AS fine_count, COALESCE(SUM(amount), 0) AS total
		FROM fines
		GROUP BY status
		ORDER BY status`

	totals := []domain.FineStatusTotals{}
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *fineRepository) TypeTotals(ctx context.Context) ([]domain.FineTypeTotals, error) {
	query := `
		SELECT type, COUNT(*) AS fine_count, COALESCE(SUM(amount), 0) AS total
		FROM fines
		GROUP BY type
		ORDER BY type`

	totals := []domain.FineTypeTotals{}
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}

func getFine(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, lock string) (*domain.Fine, error) {
	query := q.Rebind("SELECT " + fineColumns + " FROM fines WHERE id = ?" + lock)

	var fine domain.Fine
	if err := sqlx.GetContext(ctx, q, &fine, query, id); err != nil {
		return nil, notFound(err)
	}
	return &fine, nil
}

func insertFine(ctx context.Context, q sqlx.ExtContext, fine *domain.Fine) error {
	query := `
		INSERT INTO fines (` + fineColumns + `)
		VALUES (:id, :fine_number, :member_id, :loan_id, :type, :amount, :description, :date, :due_date,
			:status, :payment_date, :payment_method, :transaction_id, :waived_by, :waive_reason, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, q, query, fine)
	return err
}

func updateFine(ctx context.Context, q sqlx.ExtContext, fine *domain.Fine) error {
	query := `
		UPDATE fines SET
			type = :type,
			description = :description,
			due_date = :due_date,
			status = :status,
			payment_date = :payment_date,
			payment_method = :payment_method,
			transaction_id = :transaction_id,
			waived_by = :waived_by,
			waive_reason = :waive_reason,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, q, query, fine)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func hasPendingFine(ctx context.Context, q sqlx.ExtContext, loanID uuid.UUID, fineType string) (bool, error) {
	query := q.Rebind("SELECT COUNT(*) FROM fines WHERE loan_id = ? AND type = ? AND status = ?")

	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, loanID, fineType, domain.FineStatusPending); err != nil {
		return false, err
	}
	return n > 0, nil
}
