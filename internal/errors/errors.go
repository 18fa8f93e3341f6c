package errors

import (
	"errors"
	"fmt"
)

// Domain errors for wallet ledger operations
var (
	ErrWalletNotFound        = errors.New("user wallet not found")
	ErrSystemAccountNotFound = errors.New("system account not found")
)

// UnbalancedEntriesError reports entries that violate the double-entry
// rule. Carries the observed sum for diagnostics.
type UnbalancedEntriesError struct {
	Sum int64
}

func (e *UnbalancedEntriesError) Error() string {
	return fmt.Sprintf("transaction entries do not sum to zero, sum: %d", e.Sum)
}

func NewUnbalancedEntries(sum int64) error {
	return &UnbalancedEntriesError{Sum: sum}
}

// DuplicateReferenceError means a transaction with this reference id was
// already committed. Callers should treat it as "already processed".
type DuplicateReferenceError struct {
	ReferenceID string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("transaction with reference id '%s' already exists", e.ReferenceID)
}

func NewDuplicateReference(referenceID string) error {
	return &DuplicateReferenceError{ReferenceID: referenceID}
}

type AccountNotFoundError struct {
	AccountID int64
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %d not found", e.AccountID)
}

func NewAccountNotFound(accountID int64) error {
	return &AccountNotFoundError{AccountID: accountID}
}

type InsufficientFundsError struct {
	AccountID int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %d", e.AccountID)
}

func NewInsufficientFunds(accountID int64) error {
	return &InsufficientFundsError{AccountID: accountID}
}

// LedgerError wraps a store failure during one step of a ledger operation.
// These are the transient, retryable failures; the unit of work was rolled
// back and left no durable effect.
type LedgerError struct {
	Operation string
	Cause     error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error during '%s': %v", e.Operation, e.Cause)
}

func (e *LedgerError) Unwrap() error {
	return e.Cause
}

func NewLedgerError(operation string, cause error) error {
	return &LedgerError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsUnbalanced(err error) bool {
	var target *UnbalancedEntriesError
	return errors.As(err, &target)
}

func IsDuplicateReference(err error) bool {
	var target *DuplicateReferenceError
	return errors.As(err, &target)
}

func IsAccountNotFound(err error) bool {
	var target *AccountNotFoundError
	return errors.As(err, &target)
}

func IsInsufficientFunds(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

// IsRetryable reports whether the failure came from the store rather than
// the request itself.
func IsRetryable(err error) bool {
	var target *LedgerError
	return errors.As(err, &target)
}
