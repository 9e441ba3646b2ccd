package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolTotals is a point-in-time read of the pool aggregates.
type PoolTotals struct {
	Invested  decimal.Decimal
	Committed decimal.Decimal
}

type PoolStatus struct {
	Invested        decimal.Decimal
	Committed       decimal.Decimal
	Available       decimal.Decimal
	Utilization     decimal.Decimal
	Threshold       decimal.Decimal
	ActiveInvestors int
	QueuedLoans     int
}

// CapacityChanged is published after a commit that may have changed invested
// or committed capital.
type CapacityChanged struct {
	Reason string
	At     time.Time
}
