package service

import "errors"

// Expected, recoverable request outcomes. These are returned to the caller
// for user-facing messaging and are never logged as faults. Anything else
// coming out of a service is an infrastructure failure wrapped with
// context; such operations fail closed with no partial effect and are safe
// to retry.
var (
	// ErrInsufficientBalance is returned when a debit would exceed the
	// spendable balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimum is returned when an amount is under the configured
	// minimum for the operation.
	ErrBelowMinimum = errors.New("amount below minimum")

	// ErrDuplicateReference is returned when a deposit reuses an external
	// payment reference.
	ErrDuplicateReference = errors.New("payment reference already used")

	// ErrNotFoundOrAlreadyResolved is returned when an approval targets a
	// request that does not exist or has already left the pending state.
	// Two concurrent approvals of the same request produce exactly one
	// success and one of these.
	ErrNotFoundOrAlreadyResolved = errors.New("request not found or already resolved")

	// ErrUnmetWagering is returned when a withdrawal is requested before
	// outstanding promotional credit has been wagered at least once.
	ErrUnmetWagering = errors.New("bonus balance must be wagered before withdrawal")
)
