package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentStatusActive   InvestmentStatus = "active"
	InvestmentStatusRedeemed InvestmentStatus = "redeemed"
)

type Investment struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Principal     decimal.Decimal
	AccruedYield  decimal.Decimal
	AnnualRate    decimal.Decimal
	Status        InvestmentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	RedeemedAt    *time.Time
	LastAccrualAt time.Time
}

// RedemptionValue is what the owner receives on redemption.
func (i *Investment) RedemptionValue() decimal.Decimal {
	return i.Principal.Add(i.AccruedYield)
}
