package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// ElapsedDays counts the whole days between last and now. A checkpoint in the
// future yields zero.
func ElapsedDays(last, now time.Time) int {
	if !now.After(last) {
		return 0
	}
	return int(now.Sub(last) / day)
}

// AdvanceCheckpoint moves last forward by whole days only, so the fractional
// remainder of the period carries into the next run.
func AdvanceCheckpoint(last time.Time, days int) time.Time {
	return last.Add(time.Duration(days) * day)
}

// SimpleInterest is amount * rate * days / 365 rounded to the currency scale.
func SimpleInterest(amount, annualRate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	raw := amount.Mul(annualRate).Mul(decimal.NewFromInt(int64(days)))
	return RoundMoney(div(raw, daysPerYear))
}
