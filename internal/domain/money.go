package domain

import "github.com/shopspring/decimal"

const (
	MaxTermMonths     = 600
	MaxProjectionDays = 36500
)

// ValidateAmount checks a caller-supplied money amount: strictly positive and
// no finer than one cent.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// ValidateRate accepts any non-negative annual rate.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}

// ValidateTerm accepts a loan term of 1 to MaxTermMonths months.
func ValidateTerm(months int) error {
	if months < 1 || months > MaxTermMonths {
		return ErrInvalidTerm
	}
	return nil
}

func ValidateDays(days int) error {
	if days < 1 || days > MaxProjectionDays {
		return ErrInvalidDays
	}
	return nil
}
