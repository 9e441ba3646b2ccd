package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of these, so
// callers can match on either the specific error or its class.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("illegal state transition")
)

var (
	ErrInvalidAmount     = fmt.Errorf("amount must be greater than zero: %w", ErrValidation)
	ErrAmountPrecision   = fmt.Errorf("amount must have at most two decimal places: %w", ErrValidation)
	ErrInvalidRate       = fmt.Errorf("rate must not be negative: %w", ErrValidation)
	ErrInvalidTerm       = fmt.Errorf("term must be between 1 and %d months: %w", MaxTermMonths, ErrValidation)
	ErrInvalidDays       = fmt.Errorf("days must be between 1 and %d: %w", MaxProjectionDays, ErrValidation)
	ErrInsufficientFunds = fmt.Errorf("insufficient funds: %w", ErrValidation)
	ErrInvalidRequest    = fmt.Errorf("invalid request: %w", ErrValidation)

	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrInvestmentNotFound  = fmt.Errorf("investment %w", ErrNotFound)
	ErrLoanNotFound        = fmt.Errorf("loan %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	ErrWalletExists    = fmt.Errorf("wallet already exists for owner: %w", ErrConflict)
	ErrVersionConflict = fmt.Errorf("optimistic lock conflict: %w", ErrConflict)

	ErrInvestmentRedeemed = fmt.Errorf("investment already redeemed: %w", ErrState)
	ErrLoanNotApprovable  = fmt.Errorf("loan is not pending approval: %w", ErrState)
	ErrLoanNotRejectable  = fmt.Errorf("only pending or queued loans can be rejected: %w", ErrState)
	ErrLoanNotDeletable   = fmt.Errorf("only pending, queued or rejected loans can be deleted: %w", ErrState)
	ErrLoanNotPayable     = fmt.Errorf("loan is not active: %w", ErrState)

	ErrAccrualInProgress = errors.New("accrual run already in progress")
)
