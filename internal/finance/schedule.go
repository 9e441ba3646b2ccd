package finance

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

type AmortizationSystem string

const (
	// ConstantInstallment is the French/Price system: every installment is the
	// same and the amortized share grows over time.
	ConstantInstallment AmortizationSystem = "constant_installment"
	// ConstantAmortization is the SAC system: principal is repaid in equal
	// parts and the installment shrinks with the balance.
	ConstantAmortization AmortizationSystem = "constant_amortization"
)

func (s AmortizationSystem) IsValid() bool {
	return s == ConstantInstallment || s == ConstantAmortization
}

type LoanPreviewRequest struct {
	Principal        decimal.Decimal
	AnnualRate       decimal.Decimal
	TermMonths       int
	System           AmortizationSystem
	FirstInstallment time.Time
}

type Installment struct {
	Number       int
	DueDate      time.Time
	Payment      decimal.Decimal
	Interest     decimal.Decimal
	Amortization decimal.Decimal
	Balance      decimal.Decimal
}

type LoanPreview struct {
	Principal     decimal.Decimal
	MonthlyRate   decimal.Decimal
	TotalPaid     decimal.Decimal
	TotalInterest decimal.Decimal
	Installments  []Installment
}

// PreviewLoan builds the amortization schedule. System defaults to
// ConstantInstallment.
func PreviewLoan(req LoanPreviewRequest) (*LoanPreview, error) {
	if !req.Principal.IsPositive() {
		return nil, fmt.Errorf("PreviewLoan: %w", domain.ErrInvalidAmount)
	}
	if req.AnnualRate.IsNegative() {
		return nil, fmt.Errorf("PreviewLoan: %w", domain.ErrInvalidRate)
	}
	if err := domain.ValidateTerm(req.TermMonths); err != nil {
		return nil, fmt.Errorf("PreviewLoan: %w", err)
	}
	if req.FirstInstallment.IsZero() {
		return nil, fmt.Errorf("PreviewLoan: first installment date required: %w", domain.ErrInvalidRequest)
	}
	if req.System == "" {
		req.System = ConstantInstallment
	}

	monthly, err := MonthlyRate(req.AnnualRate)
	if err != nil {
		return nil, fmt.Errorf("PreviewLoan: %w", err)
	}

	var installments []Installment
	switch req.System {
	case ConstantInstallment:
		installments, err = constantInstallmentSchedule(req.Principal, monthly, req.TermMonths, req.FirstInstallment)
		if err != nil {
			return nil, fmt.Errorf("PreviewLoan: %w", err)
		}
	case ConstantAmortization:
		installments = constantAmortizationSchedule(req.Principal, monthly, req.TermMonths, req.FirstInstallment)
	default:
		return nil, fmt.Errorf("PreviewLoan: unknown system %q: %w", req.System, domain.ErrInvalidRequest)
	}

	totalPaid, totalInterest := decimal.Zero, decimal.Zero
	for _, inst := range installments {
		totalPaid = totalPaid.Add(inst.Payment)
		totalInterest = totalInterest.Add(inst.Interest)
	}

	return &LoanPreview{
		Principal:     RoundMoney(req.Principal),
		MonthlyRate:   RoundRate(monthly),
		TotalPaid:     RoundMoney(totalPaid),
		TotalInterest: RoundMoney(totalInterest),
		Installments:  installments,
	}, nil
}

func constantInstallmentSchedule(principal, monthly decimal.Decimal, n int, first time.Time) ([]Installment, error) {
	var payment decimal.Decimal
	if monthly.IsZero() {
		payment = div(principal, decimal.NewFromInt(int64(n)))
	} else {
		grown, err := pow(one.Add(monthly), decimal.NewFromInt(int64(n)))
		if err != nil {
			return nil, err
		}
		payment = round(principal.Mul(div(monthly.Mul(grown), grown.Sub(one))))
	}

	out := make([]Installment, 0, n)
	balance := principal
	for i := 1; i <= n; i++ {
		interest := round(balance.Mul(monthly))
		amortization := payment.Sub(interest)
		balance = snapBalance(balance.Sub(amortization))
		out = append(out, Installment{
			Number:       i,
			DueDate:      dueDate(first, i-1),
			Payment:      RoundMoney(payment),
			Interest:     RoundMoney(interest),
			Amortization: RoundMoney(amortization),
			Balance:      RoundMoney(balance),
		})
	}
	return out, nil
}

func constantAmortizationSchedule(principal, monthly decimal.Decimal, n int, first time.Time) []Installment {
	amortization := div(principal, decimal.NewFromInt(int64(n)))

	out := make([]Installment, 0, n)
	balance := principal
	for i := 1; i <= n; i++ {
		interest := round(balance.Mul(monthly))
		payment := amortization.Add(interest)
		balance = snapBalance(balance.Sub(amortization))
		out = append(out, Installment{
			Number:       i,
			DueDate:      dueDate(first, i-1),
			Payment:      RoundMoney(payment),
			Interest:     RoundMoney(interest),
			Amortization: RoundMoney(amortization),
			Balance:      RoundMoney(balance),
		})
	}
	return out
}

// snapBalance zeroes a balance that is below half a minor unit, including the
// small negatives left by the final installment.
func snapBalance(b decimal.Decimal) decimal.Decimal {
	if b.LessThan(halfMinorUnit) {
		return decimal.Zero
	}
	return b
}

// dueDate adds months to first, clamping the day to 28 so no month overflows.
func dueDate(first time.Time, months int) time.Time {
	day := min(first.Day(), 28)
	return time.Date(first.Year(), first.Month()+time.Month(months), day, 0, 0, 0, 0, time.UTC)
}

// WriteTable renders the schedule as an aligned text table.
func (p *LoanPreview) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "#\tdue\tpayment\tinterest\tamortization\tbalance\t\n")
	for _, inst := range p.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			inst.Number,
			inst.DueDate.Format(time.DateOnly),
			inst.Payment.StringFixed(MoneyPlaces),
			inst.Interest.StringFixed(MoneyPlaces),
			inst.Amortization.StringFixed(MoneyPlaces),
			inst.Balance.StringFixed(MoneyPlaces),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("WriteTable: %w", err)
	}
	_, err := fmt.Fprintf(w, "principal %s  monthly rate %s  total paid %s  total interest %s\n",
		p.Principal.StringFixed(MoneyPlaces),
		p.MonthlyRate.StringFixed(RatePlaces),
		p.TotalPaid.StringFixed(MoneyPlaces),
		p.TotalInterest.StringFixed(MoneyPlaces),
	)
	if err != nil {
		return fmt.Errorf("WriteTable: %w", err)
	}
	return nil
}
