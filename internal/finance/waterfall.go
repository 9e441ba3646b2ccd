package finance

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

// Allocation is the outcome of applying one payment to a loan.
type Allocation struct {
	InterestPaid    decimal.Decimal
	PrincipalPaid   decimal.Decimal
	AccruedInterest decimal.Decimal
	PaidAmount      decimal.Decimal
	TotalOwed       decimal.Decimal
	Settled         bool
}

// AllocatePayment runs the interest-first waterfall: the payment clears accrued
// interest before anything counts toward principal. The loan is settled once
// the paid amount reaches principal*(1+rate) plus whatever interest is still
// accrued, and the paid amount is then clamped to that total.
func AllocatePayment(loan *domain.Loan, payment decimal.Decimal) Allocation {
	interestPaid := decimal.Min(payment, loan.AccruedInterest)
	if interestPaid.IsNegative() {
		interestPaid = decimal.Zero
	}
	principalPaid := payment.Sub(interestPaid)

	a := Allocation{
		InterestPaid:    interestPaid,
		PrincipalPaid:   principalPaid,
		AccruedInterest: loan.AccruedInterest.Sub(interestPaid),
		PaidAmount:      loan.PaidAmount.Add(principalPaid),
	}
	a.TotalOwed = RoundMoney(loan.Principal.Mul(one.Add(loan.AnnualRate)).Add(a.AccruedInterest))

	if a.PaidAmount.GreaterThanOrEqual(a.TotalOwed) {
		a.Settled = true
		a.PaidAmount = a.TotalOwed
	}
	return a
}
