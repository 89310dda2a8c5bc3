/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context, and the API
  layer maps them to HTTP statuses through the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - Bad input, rejected before any store call
  2. Approval errors - Transition preconditions not met
  3. Fund errors - Withdrawal above the remaining balance
  4. Store errors - Missing records, persistence failures

USAGE:
  if errors.Is(err, generic.ErrSelfApproval) {
      // offer no Approve button
  }

SEE ALSO:
  - approval.go: Raises ApprovalError
  - ledger.go: Raises InsufficientFundError
  - api/handlers.go: Maps errors to status codes
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrNotPending is returned when approving a record that is not pending.
	ErrNotPending = errors.New("record is not pending")

	// ErrNoCreator is returned when approving a record nobody created.
	ErrNoCreator = errors.New("record has no creator")

	// ErrSelfApproval is returned when the creator tries to approve.
	ErrSelfApproval = errors.New("cannot approve your own entry")

	// ErrApproverRequired is returned when no approver id is given.
	ErrApproverRequired = errors.New("approver required")

	// ErrInsufficientFund is returned when a withdrawal exceeds the balance.
	ErrInsufficientFund = errors.New("insufficient fund balance")

	// ErrConflict is returned when a unique value already exists.
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a field validation error.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ApprovalError records which record and actor failed which precondition.
type ApprovalError struct {
	RecordID   string
	ApproverID string
	Err        error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("approve %s by %q: %v", e.RecordID, e.ApproverID, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

// InsufficientFundError provides details about a fund shortage.
type InsufficientFundError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundError) Error() string {
	return fmt.Sprintf("insufficient fund balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundError) Unwrap() error {
	return ErrInsufficientFund
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInsufficientFund) ||
		errors.Is(err, ErrApproverRequired)
}

// IsConflict returns true when the request clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNoCreator) ||
		errors.Is(err, ErrSelfApproval) ||
		errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
