package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/logging"
)

type investmentService interface {
	CreateInvestment(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, annualRate *decimal.Decimal) (*domain.Investment, error)
	RedeemInvestment(ctx context.Context, id uuid.UUID) (*domain.Investment, error)
	CancelInvestment(ctx context.Context, id uuid.UUID) error
	GetInvestment(ctx context.Context, id uuid.UUID) (*domain.Investment, error)
	ListInvestments(ctx context.Context, ownerID *uuid.UUID) ([]domain.Investment, error)
	ProjectInvestment(ctx context.Context, id uuid.UUID, days int) (*finance.InvestmentPreview, error)
}

type InvestmentHandler struct {
	investments investmentService
}

func NewInvestmentHandler(investments investmentService) *InvestmentHandler {
	return &InvestmentHandler{investments: investments}
}

type createInvestmentRequest struct {
	Amount     decimal.Decimal  `json:"amount"`
	AnnualRate *decimal.Decimal `json:"annual_rate"`
}

func (r createInvestmentRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.AnnualRate != nil && r.AnnualRate.IsNegative() {
		errs = append(errs, FieldError{Field: "annual_rate", Message: "must not be negative"})
	}
	return errs
}

type investmentDTO struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Principal     string     `json:"principal"`
	AccruedYield  string     `json:"accrued_yield"`
	AnnualRate    string     `json:"annual_rate"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
	LastAccrualAt time.Time  `json:"last_accrual_at"`
}

func toInvestmentDTO(i *domain.Investment) investmentDTO {
	return investmentDTO{
		ID:            i.ID,
		OwnerID:       i.OwnerID,
		Principal:     money(i.Principal),
		AccruedYield:  money(i.AccruedYield),
		AnnualRate:    i.AnnualRate.String(),
		Status:        string(i.Status),
		CreatedAt:     i.CreatedAt,
		RedeemedAt:    i.RedeemedAt,
		LastAccrualAt: i.LastAccrualAt,
	}
}

type investmentPreviewDTO struct {
	Principal      string `json:"principal"`
	ProjectedYield string `json:"projected_yield"`
	ProjectedTotal string `json:"projected_total"`
	MonthlyRate    string `json:"monthly_rate"`
	APY            string `json:"apy"`
}

func toInvestmentPreviewDTO(p *finance.InvestmentPreview) investmentPreviewDTO {
	return investmentPreviewDTO{
		Principal:      money(p.Principal),
		ProjectedYield: money(p.ProjectedYield),
		ProjectedTotal: money(p.ProjectedTotal),
		MonthlyRate:    p.MonthlyRate.StringFixed(finance.RatePlaces),
		APY:            p.APY.StringFixed(finance.RatePlaces),
	}
}

// Create invests from the caller's own wallet.
func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createInvestmentRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	inv, err := h.investments.CreateInvestment(r.Context(), claims.UserID, req.Amount, req.AnnualRate)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create investment", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toInvestmentDTO(inv))
}

func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, fields, appErr := ownerScope(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	invs, err := h.investments.ListInvestments(r.Context(), owner)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list investments", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]investmentDTO, len(invs))
	for i := range invs {
		dtos[i] = toInvestmentDTO(&invs[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *InvestmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	RespondSuccess(w, http.StatusOK, toInvestmentDTO(inv))
}

func (h *InvestmentHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	inv, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	redeemed, err := h.investments.RedeemInvestment(r.Context(), inv.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to redeem investment", "investment_id", inv.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvestmentDTO(redeemed))
}

func (h *InvestmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	inv, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.investments.CancelInvestment(r.Context(), inv.ID); err != nil {
		logging.FromContext(r.Context()).Error("failed to cancel investment", "investment_id", inv.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvestmentHandler) Projection(w http.ResponseWriter, r *http.Request) {
	inv, appErr := h.owned(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	days, fe := queryInt(r, "days", 365)
	if fe != nil {
		RespondValidationError(w, []FieldError{*fe})
		return
	}

	preview, err := h.investments.ProjectInvestment(r.Context(), inv.ID, days)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvestmentPreviewDTO(preview))
}

func (h *InvestmentHandler) owned(r *http.Request) (*domain.Investment, *AppError) {
	id, appErr := pathID(r)
	if appErr != nil {
		return nil, appErr
	}
	inv, err := h.investments.GetInvestment(r.Context(), id)
	if err != nil {
		return nil, appErrorFor(err)
	}
	if appErr := authorize(r, inv.OwnerID); appErr != nil {
		return nil, appErr
	}
	return inv, nil
}
