package alt

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the ledger service.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrContentNotFound      = errors.New("content not found")
	ErrTokenNotFound        = errors.New("recharge token not found")
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrUnauthenticated      = errors.New("caller identity required")
	ErrUnauthorized         = errors.New("admin role required")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrBelowMinimum         = errors.New("amount below platform minimum")
	ErrInvalidState         = errors.New("state transition not permitted")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidAccountState  = errors.New("invalid account status")
	ErrInvalidTxType        = errors.New("invalid transaction type")
	ErrInvalidPayoutMethod  = errors.New("invalid payout method")
	ErrInvalidMetadataJSON  = errors.New("invalid metadata json")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
