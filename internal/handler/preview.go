package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
)

const dateLayout = "2006-01-02"

// PreviewHandler serves the rate calculator. It reads no stored state.
type PreviewHandler struct {
	clock clock.Clock
}

func NewPreviewHandler(clk clock.Clock) *PreviewHandler {
	return &PreviewHandler{clock: clk}
}

type investmentPreviewRequest struct {
	Principal   decimal.Decimal `json:"principal"`
	AnnualRate  decimal.Decimal `json:"annual_rate"`
	Days        int             `json:"days"`
	Interest    string          `json:"interest"`
	Compounding string          `json:"compounding"`
}

func (r investmentPreviewRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Principal.IsPositive() {
		errs = append(errs, FieldError{Field: "principal", Message: "must be greater than 0"})
	}
	if r.AnnualRate.IsNegative() {
		errs = append(errs, FieldError{Field: "annual_rate", Message: "must not be negative"})
	}
	if domain.ValidateDays(r.Days) != nil {
		errs = append(errs, FieldError{Field: "days", Message: fmt.Sprintf("must be between 1 and %d", domain.MaxProjectionDays)})
	}
	switch finance.InterestType(r.Interest) {
	case "", finance.InterestSimple, finance.InterestCompound:
	default:
		errs = append(errs, FieldError{Field: "interest", Message: "must be simple or compound"})
	}
	if r.Compounding != "" && !finance.Compounding(r.Compounding).IsValid() {
		errs = append(errs, FieldError{Field: "compounding", Message: "must be daily, monthly, semiannual or annual"})
	}
	return errs
}

type loanPreviewRequest struct {
	Principal        decimal.Decimal `json:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	TermMonths       int             `json:"term_months"`
	System           string          `json:"system"`
	FirstInstallment string          `json:"first_installment"`
}

func (r loanPreviewRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Principal.IsPositive() {
		errs = append(errs, FieldError{Field: "principal", Message: "must be greater than 0"})
	}
	if r.AnnualRate.IsNegative() {
		errs = append(errs, FieldError{Field: "annual_rate", Message: "must not be negative"})
	}
	if domain.ValidateTerm(r.TermMonths) != nil {
		errs = append(errs, FieldError{Field: "term_months", Message: termMessage})
	}
	if r.System != "" && !finance.AmortizationSystem(r.System).IsValid() {
		errs = append(errs, FieldError{Field: "system", Message: "must be constant_installment or constant_amortization"})
	}
	if r.FirstInstallment != "" {
		if _, err := time.Parse(dateLayout, r.FirstInstallment); err != nil {
			errs = append(errs, FieldError{Field: "first_installment", Message: "must be a YYYY-MM-DD date"})
		}
	}
	return errs
}

type installmentDTO struct {
	Number       int    `json:"number"`
	DueDate      string `json:"due_date"`
	Payment      string `json:"payment"`
	Interest     string `json:"interest"`
	Amortization string `json:"amortization"`
	Balance      string `json:"balance"`
}

type loanPreviewDTO struct {
	Principal     string           `json:"principal"`
	MonthlyRate   string           `json:"monthly_rate"`
	TotalPaid     string           `json:"total_paid"`
	TotalInterest string           `json:"total_interest"`
	Installments  []installmentDTO `json:"installments"`
}

func toLoanPreviewDTO(p *finance.LoanPreview) loanPreviewDTO {
	dto := loanPreviewDTO{
		Principal:     money(p.Principal),
		MonthlyRate:   p.MonthlyRate.StringFixed(finance.RatePlaces),
		TotalPaid:     money(p.TotalPaid),
		TotalInterest: money(p.TotalInterest),
		Installments:  make([]installmentDTO, len(p.Installments)),
	}
	for i, in := range p.Installments {
		dto.Installments[i] = installmentDTO{
			Number:       in.Number,
			DueDate:      in.DueDate.Format(dateLayout),
			Payment:      money(in.Payment),
			Interest:     money(in.Interest),
			Amortization: money(in.Amortization),
			Balance:      money(in.Balance),
		}
	}
	return dto
}

func (h *PreviewHandler) Investment(w http.ResponseWriter, r *http.Request) {
	var req investmentPreviewRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	preview, err := finance.PreviewInvestment(finance.InvestmentPreviewRequest{
		Principal:   req.Principal,
		AnnualRate:  req.AnnualRate,
		Days:        req.Days,
		Interest:    finance.InterestType(req.Interest),
		Compounding: finance.Compounding(req.Compounding),
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvestmentPreviewDTO(preview))
}

// Loan previews an amortization schedule. Without first_installment the
// schedule starts one month from today.
func (h *PreviewHandler) Loan(w http.ResponseWriter, r *http.Request) {
	var req loanPreviewRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	first := h.clock.Now().AddDate(0, 1, 0)
	if req.FirstInstallment != "" {
		first, _ = time.Parse(dateLayout, req.FirstInstallment)
	}

	preview, err := finance.PreviewLoan(finance.LoanPreviewRequest{
		Principal:        req.Principal,
		AnnualRate:       req.AnnualRate,
		TermMonths:       req.TermMonths,
		System:           finance.AmortizationSystem(req.System),
		FirstInstallment: first,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanPreviewDTO(preview))
}
