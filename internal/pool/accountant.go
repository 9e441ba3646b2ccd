// Package pool derives the pool-wide figures and makes the admission and
// queue-promotion decisions. It works on values already read under the pool
// lock and never touches storage itself.
package pool

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
)

var DefaultThreshold = decimal.RequireFromString("0.80")

type Accountant struct {
	threshold decimal.Decimal
}

func NewAccountant(threshold decimal.Decimal) (*Accountant, error) {
	if !threshold.IsPositive() || threshold.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("NewAccountant: threshold must be in (0, 1], got %s", threshold)
	}
	return &Accountant{threshold: threshold}, nil
}

func (a *Accountant) Threshold() decimal.Decimal {
	return a.threshold
}

// Capacity is the most principal that may be committed: invested * threshold.
func (a *Accountant) Capacity(t domain.PoolTotals) decimal.Decimal {
	return t.Invested.Mul(a.threshold)
}

// Fits reports whether committing amount on top of t stays within capacity.
// An empty pool admits nothing.
func (a *Accountant) Fits(t domain.PoolTotals, amount decimal.Decimal) bool {
	if !t.Invested.IsPositive() {
		return false
	}
	return t.Committed.Add(amount).LessThanOrEqual(a.Capacity(t))
}

func (a *Accountant) Utilization(t domain.PoolTotals) decimal.Decimal {
	if !t.Invested.IsPositive() {
		return decimal.Zero
	}
	return t.Committed.DivRound(t.Invested, 28)
}

func (a *Accountant) Available(t domain.PoolTotals) decimal.Decimal {
	return decimal.Max(a.Capacity(t).Sub(t.Committed), decimal.Zero)
}

func (a *Accountant) Status(t domain.PoolTotals, activeInvestors, queuedLoans int) domain.PoolStatus {
	return domain.PoolStatus{
		Invested:        finance.RoundMoney(t.Invested),
		Committed:       finance.RoundMoney(t.Committed),
		Available:       finance.RoundMoney(a.Available(t)),
		Utilization:     finance.RoundRate(a.Utilization(t)),
		Threshold:       a.threshold,
		ActiveInvestors: activeInvestors,
		QueuedLoans:     queuedLoans,
	}
}

// PlanPromotions walks the queue in FIFO order, by position then creation
// time, and returns the loans that fit one after another. The walk stops at
// the first loan that does not fit, so a later loan never overtakes an earlier
// blocked one.
func (a *Accountant) PlanPromotions(t domain.PoolTotals, queued []*domain.Loan) []*domain.Loan {
	if !t.Invested.IsPositive() || len(queued) == 0 {
		return nil
	}

	ordered := slices.Clone(queued)
	slices.SortStableFunc(ordered, compareQueueOrder)

	running := t
	var promote []*domain.Loan
	for _, loan := range ordered {
		if !a.Fits(running, loan.Principal) {
			break
		}
		promote = append(promote, loan)
		running.Committed = running.Committed.Add(loan.Principal)
	}
	return promote
}

func compareQueueOrder(x, y *domain.Loan) int {
	if c := cmp.Compare(queuePosition(x), queuePosition(y)); c != 0 {
		return c
	}
	return x.CreatedAt.Compare(y.CreatedAt)
}

func queuePosition(l *domain.Loan) int64 {
	if l.QueuePosition == nil {
		return 0
	}
	return *l.QueuePosition
}

// NextQueuePosition returns one past the highest position currently held, or
// 1 for an empty queue.
func NextQueuePosition(maxPosition *int64) int64 {
	if maxPosition == nil {
		return 1
	}
	return *maxPosition + 1
}
