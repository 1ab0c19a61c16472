package service

import (
	"context"
	"errors"

	"github.com/segyhp/coop-ledger/internal/repository"
	customError "github.com/segyhp/coop-ledger/pkg/errors"
	"go.uber.org/zap"
)

// inTx runs fn inside one unit of work. Any error from fn rolls the work
// back; a failed commit is a consistency error because the caller cannot
// know which writes survived.
func inTx(ctx context.Context, transactor repository.Transactor, logger *zap.Logger, op string, fn func(tx repository.Tx) error) error {
	tx, err := transactor.BeginTx(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		logger.Error("transaction aborted", zap.String("operation", op), zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("commit failed", zap.String("operation", op), zap.Error(err))
		return customError.WrapConsistencyError(op+" could not be committed", err)
	}
	return nil
}

// storeError maps repository failures onto the business error taxonomy.
// Errors that already are business errors pass through unchanged.
func storeError(err error, notFound func() *customError.BusinessError) error {
	var be *customError.BusinessError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &be):
		return err
	case errors.Is(err, repository.ErrNotFound) && notFound != nil:
		return notFound()
	default:
		return customError.WrapDatabaseError(err)
	}
}
