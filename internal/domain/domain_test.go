package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"0.01", nil},
		{"100", nil},
		{"12.50", nil},
		{"0", ErrInvalidAmount},
		{"-5", ErrInvalidAmount},
		{"1.001", ErrAmountPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.in))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateTermAndDays(t *testing.T) {
	for _, months := range []int{1, 12, MaxTermMonths} {
		assert.NoError(t, ValidateTerm(months), "term %d", months)
	}
	for _, months := range []int{0, -1, MaxTermMonths + 1, 20000} {
		assert.ErrorIs(t, ValidateTerm(months), ErrInvalidTerm, "term %d", months)
	}
	for _, days := range []int{1, 365, MaxProjectionDays} {
		assert.NoError(t, ValidateDays(days), "days %d", days)
	}
	for _, days := range []int{0, MaxProjectionDays + 1} {
		assert.ErrorIs(t, ValidateDays(days), ErrInvalidDays, "days %d", days)
	}
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, ErrLoanNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrWalletExists, ErrConflict)
	assert.ErrorIs(t, ErrInvestmentRedeemed, ErrState)
	assert.ErrorIs(t, ErrInsufficientFunds, ErrValidation)
	assert.NotErrorIs(t, ErrAccrualInProgress, ErrState)
}

func TestLoanStatusTransitions(t *testing.T) {
	tests := []struct {
		status    LoanStatus
		approve   bool
		reject    bool
		delete    bool
		pay       bool
		committed bool
	}{
		{LoanStatusPending, true, true, true, true, true},
		{LoanStatusQueued, false, true, true, false, false},
		{LoanStatusActive, false, false, false, true, true},
		{LoanStatusPaid, false, false, false, false, false},
		{LoanStatusRejected, false, false, true, false, false},
		{LoanStatusReevaluation, true, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.approve, tt.status.Approvable(), "approvable")
			assert.Equal(t, tt.reject, tt.status.Rejectable(), "rejectable")
			assert.Equal(t, tt.delete, tt.status.Deletable(), "deletable")
			assert.Equal(t, tt.pay, tt.status.Payable(), "payable")
			assert.Equal(t, tt.committed, tt.status.Committed(), "committed")
		})
	}
}

func TestLoanBalances(t *testing.T) {
	l := Loan{
		Principal:       decimal.RequireFromString("1000"),
		AnnualRate:      decimal.RequireFromString("0.10"),
		PaidAmount:      decimal.RequireFromString("200"),
		AccruedInterest: decimal.RequireFromString("15"),
	}

	assert.Equal(t, "1100.00", l.TotalWithInterest().StringFixed(2))
	assert.Equal(t, "885.00", l.RemainingBalance().StringFixed(2))
}

func TestTransactionKind_MovesBalance(t *testing.T) {
	assert.False(t, TransactionKindYieldAccrual.MovesBalance())
	assert.False(t, TransactionKindInterestAccrual.MovesBalance())
	assert.True(t, TransactionKindLoanPayment.MovesBalance())
	assert.True(t, TransactionKindDeposit.MovesBalance())
}

func TestWallet_DebitCredit(t *testing.T) {
	w := Wallet{Balance: decimal.RequireFromString("100"), Version: 3}

	assert.ErrorIs(t, w.Debit(decimal.RequireFromString("100.01")), ErrInsufficientFunds)
	assert.Equal(t, int64(3), w.Version, "failed debit leaves the wallet untouched")

	assert.NoError(t, w.Debit(decimal.RequireFromString("100")))
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(4), w.Version)

	w.Credit(decimal.RequireFromString("42.50"))
	assert.Equal(t, "42.50", w.Balance.StringFixed(2))
	assert.Equal(t, int64(5), w.Version)
}
