package rental

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the rental core.
var (
	ErrBookingConflict           = errors.New("booking conflict")
	ErrInvalidTransition         = errors.New("invalid state transition")
	ErrPolicyDenied              = errors.New("cancellation denied by policy")
	ErrForbidden                 = errors.New("actor not allowed")
	ErrRefundAfterPayout         = errors.New("refund blocked: host already paid out")
	ErrInsufficientBalance       = errors.New("insufficient host balance")
	ErrInsufficientEligibleFunds = errors.New("insufficient eligible funds")
	ErrListingInactive           = errors.New("listing inactive")
	ErrPayoutCancelled           = errors.New("payout cancelled")
	ErrStaleState                = errors.New("state changed concurrently")

	ErrBookingNotFound       = errors.New("booking not found")
	ErrPaymentIntentNotFound = errors.New("payment intent not found")
	ErrPayoutNotFound        = errors.New("payout not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrEntryNotFound         = errors.New("ledger entry not found")

	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidListingID       = errors.New("invalid listing id")
	ErrInvalidBookingID       = errors.New("invalid booking id")
	ErrInvalidPaymentIntentID = errors.New("invalid payment intent id")
	ErrInvalidEntryID         = errors.New("invalid entry id")
	ErrInvalidPayoutID        = errors.New("invalid payout id")
	ErrInvalidAmountCents     = errors.New("invalid amount cents")
	ErrInvalidCommissionRate  = errors.New("invalid commission rate")
	ErrInvalidBookingWindow   = errors.New("invalid booking window")
	ErrInvalidBookingStatus   = errors.New("invalid booking status")
	ErrInvalidPaymentStatus   = errors.New("invalid payment status")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
)

// TransitionError reports an illegal lifecycle change, naming the entity,
// the state it was found in, and the attempted action.
type TransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

// Error returns the formatted error message.
func (transitionError *TransitionError) Error() string {
	return fmt.Sprintf("%s in state %q cannot %s", transitionError.Entity, transitionError.Current, transitionError.Attempted)
}

// Unwrap matches the ErrInvalidTransition sentinel.
func (transitionError *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func newTransitionError(entity string, current fmt.Stringer, attempted string) error {
	return &TransitionError{Entity: entity, Current: current.String(), Attempted: attempted}
}

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
