package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/repository"
	"github.com/josh-kwaku/capital-pool/internal/service/lending"
)

type loanService interface {
	RequestLoan(ctx context.Context, req lending.LoanRequest) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, id uuid.UUID, overrides lending.ApprovalOverrides) (*domain.Loan, error)
	RejectLoan(ctx context.Context, id uuid.UUID, reason string) (*domain.Loan, error)
	PayLoan(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*lending.PaymentResult, error)
	DeleteLoan(ctx context.Context, id uuid.UUID) error
	GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	ListLoans(ctx context.Context, f repository.LoanFilter) ([]domain.Loan, error)
}

type LoanHandler struct {
	loans loanService
}

func NewLoanHandler(loans loanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

type requestLoanRequest struct {
	Amount     decimal.Decimal  `json:"amount"`
	AnnualRate *decimal.Decimal `json:"annual_rate"`
	TermMonths *int             `json:"term_months"`
}

func (r requestLoanRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	errs = append(errs, validateTerms(r.AnnualRate, r.TermMonths)...)
	return errs
}

type approveLoanRequest struct {
	AnnualRate *decimal.Decimal `json:"annual_rate"`
	TermMonths *int             `json:"term_months"`
}

func (r approveLoanRequest) Validate() []FieldError {
	return validateTerms(r.AnnualRate, r.TermMonths)
}

var termMessage = fmt.Sprintf("must be between 1 and %d", domain.MaxTermMonths)

func validateTerms(rate *decimal.Decimal, term *int) []FieldError {
	var errs []FieldError
	if rate != nil && rate.IsNegative() {
		errs = append(errs, FieldError{Field: "annual_rate", Message: "must not be negative"})
	}
	if term != nil && domain.ValidateTerm(*term) != nil {
		errs = append(errs, FieldError{Field: "term_months", Message: termMessage})
	}
	return errs
}

type rejectLoanRequest struct {
	Reason string `json:"reason"`
}

func (r rejectLoanRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Reason) == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "required"})
	}
	return errs
}

type loanDTO struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"owner_id"`
	Principal         string     `json:"principal"`
	AnnualRate        string     `json:"annual_rate"`
	TermMonths        int        `json:"term_months"`
	PaidAmount        string     `json:"paid_amount"`
	AccruedInterest   string     `json:"accrued_interest"`
	TotalWithInterest string     `json:"total_with_interest"`
	RemainingBalance  string     `json:"remaining_balance"`
	Status            string     `json:"status"`
	QueuePosition     *int64     `json:"queue_position"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	LastAccrualAt     time.Time  `json:"last_accrual_at"`
}

func toLoanDTO(l *domain.Loan) loanDTO {
	return loanDTO{
		ID:                l.ID,
		OwnerID:           l.OwnerID,
		Principal:         money(l.Principal),
		AnnualRate:        l.AnnualRate.String(),
		TermMonths:        l.TermMonths,
		PaidAmount:        money(l.PaidAmount),
		AccruedInterest:   money(l.AccruedInterest),
		TotalWithInterest: money(l.TotalWithInterest()),
		RemainingBalance:  money(decimal.Max(l.RemainingBalance(), decimal.Zero)),
		Status:            string(l.Status),
		QueuePosition:     l.QueuePosition,
		RejectionReason:   l.RejectionReason,
		CreatedAt:         l.CreatedAt,
		ApprovedAt:        l.ApprovedAt,
		PaidAt:            l.PaidAt,
		LastAccrualAt:     l.LastAccrualAt,
	}
}

type paymentDTO struct {
	Loan          loanDTO `json:"loan"`
	InterestPaid  string  `json:"interest_paid"`
	PrincipalPaid string  `json:"principal_paid"`
	TotalOwed     string  `json:"total_owed"`
	Settled       bool    `json:"settled"`
}

// Create requests a loan for the caller.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req requestLoanRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	loan, err := h.loans.RequestLoan(r.Context(), lending.LoanRequest{
		OwnerID:    claims.UserID,
		Amount:     req.Amount,
		AnnualRate: req.AnnualRate,
		TermMonths: req.TermMonths,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to request loan", "error", err)
		RespondDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if loan.Status == domain.LoanStatusQueued {
		status = http.StatusAccepted
	}
	RespondSuccess(w, status, toLoanDTO(loan))
}

func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, fields, appErr := ownerScope(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	f := repository.LoanFilter{OwnerID: owner}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.LoanStatus(raw)
		if !status.IsValid() {
			fields = append(fields, FieldError{Field: "status", Message: "unknown loan status"})
		}
		f.Status = &status
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	loans, err := h.loans.ListLoans(r.Context(), f)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list loans", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]loanDTO, len(loans))
	for i := range loans {
		dtos[i] = toLoanDTO(&loans[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(loan))
}

func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req approveLoanRequest
	if r.ContentLength != 0 {
		if appErr := decodeJSON(r, &req); appErr != nil {
			RespondAppError(w, appErr, nil)
			return
		}
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	loan, err := h.loans.ApproveLoan(r.Context(), id, lending.ApprovalOverrides{
		AnnualRate: req.AnnualRate,
		TermMonths: req.TermMonths,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to approve loan", "loan_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanDTO(loan))
}

func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req rejectLoanRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	loan, err := h.loans.RejectLoan(r.Context(), id, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to reject loan", "loan_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanDTO(loan))
}

func (h *LoanHandler) Pay(w http.ResponseWriter, r *http.Request) {
	loan, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req amountRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.loans.PayLoan(r.Context(), loan.ID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to pay loan", "loan_id", loan.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, paymentDTO{
		Loan:          toLoanDTO(res.Loan),
		InterestPaid:  money(res.Allocation.InterestPaid),
		PrincipalPaid: money(res.Allocation.PrincipalPaid),
		TotalOwed:     money(res.Allocation.TotalOwed),
		Settled:       res.Allocation.Settled,
	})
}

func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	loan, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.loans.DeleteLoan(r.Context(), loan.ID); err != nil {
		logging.FromContext(r.Context()).Error("failed to delete loan", "loan_id", loan.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LoanHandler) owned(r *http.Request) (*domain.Loan, *AppError) {
	id, appErr := pathID(r)
	if appErr != nil {
		return nil, appErr
	}
	loan, err := h.loans.GetLoan(r.Context(), id)
	if err != nil {
		return nil, appErrorFor(err)
	}
	if appErr := authorize(r, loan.OwnerID); appErr != nil {
		return nil, appErr
	}
	return loan, nil
}
