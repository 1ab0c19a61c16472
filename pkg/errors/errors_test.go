package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidStateFamily(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "invalid state", err: NewInvalidState("loan %s is not pending", "LOAN0001"), sentinel: ErrInvalidState},
		{name: "already paid", err: WrapAlreadyPaid("Installment", "1"), sentinel: ErrAlreadyPaid},
		{name: "already waived", err: WrapAlreadyWaived("FIN0001"), sentinel: ErrAlreadyWaived},
		{name: "cannot pay waived", err: WrapCannotPayWaived("FIN0001"), sentinel: ErrCannotPayWaived},
		{name: "cannot waive paid", err: WrapCannotWaivePaid("FIN0001"), sentinel: ErrCannotWaivePaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.ErrorIs(t, wrapped, ErrInvalidState)
			assert.NotErrorIs(t, wrapped, ErrNotFound)
		})
	}
}

func TestOtherKinds(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("principal must be > 0"), ErrValidation)
	assert.NotErrorIs(t, NewValidationError("x"), ErrInvalidState)
	assert.ErrorIs(t, WrapLoanNotFound("abc"), ErrNotFound)
	assert.ErrorIs(t, WrapFineNotFound("abc"), ErrNotFound)
	assert.ErrorIs(t, WrapInstallmentNotFound("abc"), ErrNotFound)

	cause := errors.New("commit failed")
	err := WrapConsistencyError("payment aborted", cause)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Contains(t, err.Error(), "commit failed")
	assert.Equal(t, ErrCodeConsistency, Code(err))

	assert.Equal(t, ErrCodeDatabaseError, Code(fmt.Errorf("ctx: %w", WrapDatabaseError(cause))))
	assert.Equal(t, "", Code(cause))
}
