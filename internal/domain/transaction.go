package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindDeposit                TransactionKind = "deposit"
	TransactionKindWithdrawal             TransactionKind = "withdrawal"
	TransactionKindInvestment             TransactionKind = "investment"
	TransactionKindInvestmentRedemption   TransactionKind = "investment_redemption"
	TransactionKindInvestmentCancellation TransactionKind = "investment_cancellation"
	TransactionKindLoanDisbursement       TransactionKind = "loan_disbursement"
	TransactionKindLoanPayment            TransactionKind = "loan_payment"
	TransactionKindYieldAccrual           TransactionKind = "yield_accrual"
	TransactionKindInterestAccrual        TransactionKind = "interest_accrual"
)

// MovesBalance separates cash movements from accrual bookkeeping. Accruals grow
// an accumulator on the investment or loan and never touch the wallet; the cash
// only moves at redemption or payment.
func (k TransactionKind) MovesBalance() bool {
	switch k {
	case TransactionKindYieldAccrual, TransactionKindInterestAccrual:
		return false
	}
	return true
}

// LedgerTransaction is append-only. Note is the only field that may change
// after insert.
type LedgerTransaction struct {
	ID           uuid.UUID
	WalletID     uuid.UUID
	Kind         TransactionKind
	Amount       decimal.Decimal
	MovesBalance bool
	InvestmentID *uuid.UUID
	LoanID       *uuid.UUID
	Note         *string
	CreatedAt    time.Time
}

func NewLedgerTransaction(walletID uuid.UUID, kind TransactionKind, amount decimal.Decimal, at time.Time) *LedgerTransaction {
	return &LedgerTransaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         kind,
		Amount:       amount,
		MovesBalance: kind.MovesBalance(),
		CreatedAt:    at,
	}
}

func (t *LedgerTransaction) ForInvestment(id uuid.UUID) *LedgerTransaction {
	t.InvestmentID = &id
	return t
}

func (t *LedgerTransaction) ForLoan(id uuid.UUID) *LedgerTransaction {
	t.LoanID = &id
	return t
}

func (t *LedgerTransaction) WithNote(note string) *LedgerTransaction {
	t.Note = &note
	return t
}
