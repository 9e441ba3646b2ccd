package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrForbidden        = &AppError{http.StatusForbidden, "FORBIDDEN", "Operation requires the admin role"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount      = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrAmountPrecision    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must have at most two decimal places"}
	ErrInvalidRate        = &AppError{http.StatusBadRequest, "INVALID_RATE", "Rate must not be negative"}
	ErrInvalidTerm        = &AppError{http.StatusBadRequest, "INVALID_TERM", "Term must be between 1 and 600 months"}
	ErrInvalidDays        = &AppError{http.StatusBadRequest, "INVALID_DAYS", "Days must be between 1 and 36500"}
	ErrInsufficientFunds  = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrWalletExists       = &AppError{http.StatusConflict, "WALLET_ALREADY_EXISTS", "Wallet already exists for this owner"}
	ErrVersionConflict    = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrInvestmentRedeemed = &AppError{http.StatusConflict, "INVESTMENT_REDEEMED", "Investment is already redeemed"}
	ErrLoanNotApprovable  = &AppError{http.StatusConflict, "LOAN_NOT_APPROVABLE", "Loan is not pending approval"}
	ErrLoanNotRejectable  = &AppError{http.StatusConflict, "LOAN_NOT_REJECTABLE", "Only pending or queued loans can be rejected"}
	ErrLoanNotDeletable   = &AppError{http.StatusConflict, "LOAN_NOT_DELETABLE", "Only pending, queued or rejected loans without payments can be deleted"}
	ErrLoanNotPayable     = &AppError{http.StatusConflict, "LOAN_NOT_PAYABLE", "Loan is not active"}
	ErrIllegalState       = &AppError{http.StatusConflict, "ILLEGAL_STATE", "Operation not allowed in the current state"}
	ErrAccrualInProgress  = &AppError{http.StatusConflict, "ACCRUAL_IN_PROGRESS", "An accrual run is already in progress"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
