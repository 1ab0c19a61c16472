package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/segyhp/coop-ledger/internal/domain"
)

type transactor struct {
	db *sqlx.DB
}

// NewTransactor opens units of work on db.
func NewTransactor(db *sqlx.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) CreateLoan(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error {
	if err := insertLoan(ctx, t.tx, loan); err != nil {
		return err
	}
	for _, installment := range installments {
		if err := insertInstallment(ctx, t.tx, installment); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) LockLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return getLoan(ctx, t.tx, "id = ?", id, forUpdate(t.tx))
}

func (t *sqlTx) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	return updateLoan(ctx, t.tx, loan)
}

func (t *sqlTx) GetInstallment(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	return getInstallment(ctx, t.tx, id)
}

func (t *sqlTx) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return listInstallments(ctx, t.tx, loanID)
}

func (t *sqlTx) UpdateInstallment(ctx context.Context, installment *domain.Installment) error {
	return updateInstallment(ctx, t.tx, installment)
}

func (t *sqlTx) LockFine(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return getFine(ctx, t.tx, id, forUpdate(t.tx))
}

func (t *sqlTx) CreateFine(ctx context.Context, fine *domain.Fine) error {
	return insertFine(ctx, t.tx, fine)
}

func (t *sqlTx) UpdateFine(ctx context.Context, fine *domain.Fine) error {
	return updateFine(ctx, t.tx, fine)
}

func (t *sqlTx) HasPendingFine(ctx context.Context, loanID uuid.UUID, fineType string) (bool, error) {
	return hasPendingFine(ctx, t.tx, loanID, fineType)
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
