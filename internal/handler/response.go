package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// specificErrors is checked in order before falling back to the error class.
var specificErrors = []struct {
	err    error
	appErr *AppError
}{
	{domain.ErrInsufficientFunds, ErrInsufficientFunds},
	{domain.ErrAmountPrecision, ErrAmountPrecision},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrInvalidRate, ErrInvalidRate},
	{domain.ErrInvalidTerm, ErrInvalidTerm},
	{domain.ErrInvalidDays, ErrInvalidDays},
	{domain.ErrInvalidRequest, ErrInvalidRequest},
	{domain.ErrWalletExists, ErrWalletExists},
	{domain.ErrVersionConflict, ErrVersionConflict},
	{domain.ErrInvestmentRedeemed, ErrInvestmentRedeemed},
	{domain.ErrLoanNotApprovable, ErrLoanNotApprovable},
	{domain.ErrLoanNotRejectable, ErrLoanNotRejectable},
	{domain.ErrLoanNotDeletable, ErrLoanNotDeletable},
	{domain.ErrLoanNotPayable, ErrLoanNotPayable},
	{domain.ErrAccrualInProgress, ErrAccrualInProgress},
}

func RespondDomainError(w http.ResponseWriter, err error) {
	RespondAppError(w, appErrorFor(err), nil)
}

func appErrorFor(err error) *AppError {
	for _, m := range specificErrors {
		if errors.Is(err, m.err) {
			return m.appErr
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrValidation):
		return ErrValidationFailed
	case errors.Is(err, domain.ErrConflict):
		return ErrVersionConflict
	case errors.Is(err, domain.ErrState):
		return ErrIllegalState
	default:
		slog.Error("unhandled domain error", "error", err)
		return ErrInternalError
	}
}

func decodeJSON(r *http.Request, dst any) *AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidRequest
	}
	return nil
}
