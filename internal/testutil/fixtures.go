package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func SeedWallet(t *testing.T, db *sql.DB, balance string) *domain.Wallet {
	t.Helper()

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Balance:   Dec(balance),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Exec(
		`INSERT INTO wallets (id, owner_id, balance, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.OwnerID, w.Balance, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return w
}

// SeedInvestment inserts an active investment directly, bypassing the wallet
// debit, so tests can set up pool capital and accumulators precisely.
func SeedInvestment(t *testing.T, db *sql.DB, ownerID uuid.UUID, principal, accruedYield, rate string, checkpoint time.Time) *domain.Investment {
	t.Helper()

	inv := &domain.Investment{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Principal:     Dec(principal),
		AccruedYield:  Dec(accruedYield),
		AnnualRate:    Dec(rate),
		Status:        domain.InvestmentStatusActive,
		CreatedAt:     checkpoint,
		UpdatedAt:     checkpoint,
		LastAccrualAt: checkpoint,
	}
	_, err := db.Exec(
		`INSERT INTO investments (id, owner_id, principal, accrued_yield, annual_rate, status, created_at, updated_at, last_accrual_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.OwnerID, inv.Principal, inv.AccruedYield, inv.AnnualRate, inv.Status,
		inv.CreatedAt, inv.UpdatedAt, inv.LastAccrualAt,
	)
	if err != nil {
		t.Fatalf("seed investment: %v", err)
	}
	return inv
}

type LoanSeed struct {
	OwnerID         uuid.UUID
	Principal       string
	Rate            string
	PaidAmount      string
	AccruedInterest string
	Status          domain.LoanStatus
	QueuePosition   *int64
	CreatedAt       time.Time
}

func SeedLoan(t *testing.T, db *sql.DB, s LoanSeed) *domain.Loan {
	t.Helper()

	if s.Rate == "" {
		s.Rate = "0"
	}
	if s.PaidAmount == "" {
		s.PaidAmount = "0"
	}
	if s.AccruedInterest == "" {
		s.AccruedInterest = "0"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	l := &domain.Loan{
		ID:              uuid.New(),
		OwnerID:         s.OwnerID,
		Principal:       Dec(s.Principal),
		AnnualRate:      Dec(s.Rate),
		TermMonths:      12,
		PaidAmount:      Dec(s.PaidAmount),
		AccruedInterest: Dec(s.AccruedInterest),
		Status:          s.Status,
		QueuePosition:   s.QueuePosition,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.CreatedAt,
		LastAccrualAt:   s.CreatedAt,
	}
	_, err := db.Exec(
		`INSERT INTO loans (id, owner_id, principal, annual_rate, term_months, paid_amount, accrued_interest,
			status, queue_position, created_at, updated_at, last_accrual_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.OwnerID, l.Principal, l.AnnualRate, l.TermMonths, l.PaidAmount, l.AccruedInterest,
		l.Status, l.QueuePosition, l.CreatedAt, l.UpdatedAt, l.LastAccrualAt,
	)
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return l
}

func WalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	if err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance); err != nil {
		t.Fatalf("get wallet balance %s: %v", walletID, err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, walletID uuid.UUID, kind domain.TransactionKind) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_transactions WHERE wallet_id = $1 AND kind = $2`, walletID, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count %s transactions for wallet %s: %v", kind, walletID, err)
	}
	return count
}

func LoanStatus(t *testing.T, db *sql.DB, loanID uuid.UUID) (domain.LoanStatus, *int64) {
	t.Helper()

	var status domain.LoanStatus
	var position sql.NullInt64
	err := db.QueryRow(`SELECT status, queue_position FROM loans WHERE id = $1`, loanID).Scan(&status, &position)
	if err != nil {
		t.Fatalf("get loan status %s: %v", loanID, err)
	}
	if !position.Valid {
		return status, nil
	}
	return status, &position.Int64
}

func Position(p int64) *int64 {
	return &p
}
