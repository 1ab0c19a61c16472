package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyPaid     = errors.New("already paid")
	ErrAlreadyWaived   = errors.New("already waived")
	ErrCannotPayWaived = errors.New("cannot pay a waived fine")
	ErrCannotWaivePaid = errors.New("cannot waive a paid fine")
	ErrConsistency     = errors.New("ledger consistency violated")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is lets the invalid-state specialisations match ErrInvalidState as well as
// their own sentinel.
func (e *BusinessError) Is(target error) bool {
	return target == ErrInvalidState && IsInvalidStateCode(e.Code)
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeLoanNotFound    = "LOAN_NOT_FOUND"
	ErrCodeInstallNotFound = "INSTALLMENT_NOT_FOUND"
	ErrCodeFineNotFound    = "FINE_NOT_FOUND"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeAlreadyPaid     = "ALREADY_PAID"
	ErrCodeAlreadyWaived   = "ALREADY_WAIVED"
	ErrCodeCannotPayWaived = "CANNOT_PAY_WAIVED"
	ErrCodeCannotWaivePaid = "CANNOT_WAIVE_PAID"
	ErrCodeConsistency     = "CONSISTENCY_ERROR"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeCacheError      = "CACHE_ERROR"
)

// IsInvalidStateCode reports whether code belongs to the invalid-state family.
func IsInvalidStateCode(code string) bool {
	switch code {
	case ErrCodeInvalidState, ErrCodeAlreadyPaid, ErrCodeAlreadyWaived, ErrCodeCannotPayWaived, ErrCodeCannotWaivePaid:
		return true
	}
	return false
}

// Code extracts the business code from err, or "" when err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func NewValidationError(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrNotFound,
	)
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallNotFound,
		fmt.Sprintf("Installment with ID %s not found", installmentID),
		ErrNotFound,
	)
}

func WrapFineNotFound(fineID string) *BusinessError {
	return NewBusinessError(
		ErrCodeFineNotFound,
		fmt.Sprintf("Fine with ID %s not found", fineID),
		ErrNotFound,
	)
}

func NewInvalidState(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(ErrCodeInvalidState, fmt.Sprintf(format, args...), ErrInvalidState)
}

func WrapAlreadyPaid(kind, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyPaid,
		fmt.Sprintf("%s %s is already paid", kind, id),
		ErrAlreadyPaid,
	)
}

func WrapAlreadyWaived(fineNumber string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyWaived,
		fmt.Sprintf("Fine %s is already waived", fineNumber),
		ErrAlreadyWaived,
	)
}

func WrapCannotPayWaived(fineNumber string) *BusinessError {
	return NewBusinessError(
		ErrCodeCannotPayWaived,
		fmt.Sprintf("Fine %s was waived and cannot be paid", fineNumber),
		ErrCannotPayWaived,
	)
}

func WrapCannotWaivePaid(fineNumber string) *BusinessError {
	return NewBusinessError(
		ErrCodeCannotWaivePaid,
		fmt.Sprintf("Fine %s is paid and cannot be waived", fineNumber),
		ErrCannotWaivePaid,
	)
}

func WrapConsistencyError(message string, err error) *BusinessError {
	return NewBusinessError(ErrCodeConsistency, message, fmt.Errorf("%w: %v", ErrConsistency, err))
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
