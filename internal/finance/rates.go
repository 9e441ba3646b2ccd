// Package finance holds the pure money maths of the pool: effective-rate
// conversion, investment and loan previews, daily accrual and the payment
// waterfall. All arithmetic is decimal; nothing here touches storage.
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MoneyPlaces int32 = 2
	RatePlaces  int32 = 4

	// precision is the number of fractional digits kept for intermediate
	// quotients and fractional powers.
	precision int32 = 28
)

var (
	one           = decimal.NewFromInt(1)
	daysPerYear   = decimal.NewFromInt(365)
	halfMinorUnit = decimal.RequireFromString("0.005")
)

// RoundMoney rounds half-to-even to the currency scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// RoundRate rounds half-to-even to the rate scale.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(RatePlaces)
}

func div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, precision)
}

// round trims an intermediate to precision fractional digits.
func round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(precision)
}

// maxExponent bounds integer powers. Callers cap periods well below it.
const maxExponent = 1 << 20

func pow(base, exp decimal.Decimal) (decimal.Decimal, error) {
	if exp.Abs().GreaterThan(decimal.NewFromInt(maxExponent)) {
		return decimal.Zero, fmt.Errorf("pow: exponent %s out of range", exp)
	}
	if exp.IsInteger() {
		return powInt(base, exp.IntPart())
	}
	out, err := base.PowWithPrecision(exp, precision)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pow: %w", err)
	}
	return round(out), nil
}

// powInt raises base to n by squaring, rounding every product to precision.
func powInt(base decimal.Decimal, n int64) (decimal.Decimal, error) {
	negative := n < 0
	if negative {
		if base.IsZero() {
			return decimal.Zero, fmt.Errorf("pow: zero to a negative power")
		}
		n = -n
	}
	out, sq := one, round(base)
	for n > 0 {
		if n&1 == 1 {
			out = round(out.Mul(sq))
		}
		n >>= 1
		if n > 0 {
			sq = round(sq.Mul(sq))
		}
	}
	if negative {
		return div(one, out), nil
	}
	return out, nil
}

// EffectiveRate converts a nominal annual rate to the compounded rate for one
// of periodsPerYear equal periods: (1+r)^(1/n) - 1.
func EffectiveRate(annual decimal.Decimal, periodsPerYear int64) (decimal.Decimal, error) {
	if periodsPerYear <= 0 {
		return decimal.Zero, fmt.Errorf("EffectiveRate: periods per year must be positive, got %d", periodsPerYear)
	}
	if periodsPerYear == 1 || annual.IsZero() {
		return annual, nil
	}
	grown, err := pow(one.Add(annual), div(one, decimal.NewFromInt(periodsPerYear)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("EffectiveRate: %w", err)
	}
	return grown.Sub(one), nil
}

func MonthlyRate(annual decimal.Decimal) (decimal.Decimal, error) {
	return EffectiveRate(annual, 12)
}

func DailyRate(annual decimal.Decimal) (decimal.Decimal, error) {
	return EffectiveRate(annual, 365)
}

func SemiannualRate(annual decimal.Decimal) (decimal.Decimal, error) {
	return EffectiveRate(annual, 2)
}
