package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanDebit reports whether amount can leave the wallet without overdrawing it.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// Credit adds amount and bumps the version the next write must match.
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.Balance = w.Balance.Add(amount)
	w.Version++
}

// Debit removes amount, refusing to take the balance below zero.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if !w.CanDebit(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	w.Version++
	return nil
}
