package lending

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
)

type PaymentResult struct {
	Loan       *domain.Loan
	Allocation finance.Allocation
}

// PayLoan debits the borrower's wallet and applies the payment interest first.
// The full amount leaves the wallet even when it exceeds what is owed; only
// the recorded paid amount is clamped.
func (s *Service) PayLoan(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*PaymentResult, error) {
	log := logging.FromContext(ctx)

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}
	if !loan.Status.Payable() {
		return nil, fmt.Errorf("PayLoan: status %s: %w", loan.Status, domain.ErrLoanNotPayable)
	}

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, tx, loan.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}
	if err := wallet.Debit(amount); err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	now := s.clock.Now()
	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, wallet.Version, now); err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	alloc := finance.AllocatePayment(loan, amount)
	loan.AccruedInterest = alloc.AccruedInterest
	loan.PaidAmount = alloc.PaidAmount
	loan.UpdatedAt = now
	if alloc.Settled {
		loan.Status = domain.LoanStatusPaid
		loan.PaidAt = &now
	}
	if err := s.loans.Update(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	entry := domain.NewLedgerTransaction(wallet.ID, domain.TransactionKindLoanPayment, amount, now).ForLoan(loan.ID)
	if err := s.recordLedger(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("PayLoan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PayLoan: commit: %w", err)
	}

	metrics.RecordTransaction(domain.TransactionKindLoanPayment)
	log.Info("loan payment applied",
		"loan_id", loan.ID,
		"wallet_id", wallet.ID,
		"amount", amount,
		"interest_paid", alloc.InterestPaid,
		"principal_paid", alloc.PrincipalPaid,
		"status", loan.Status,
	)
	if alloc.Settled {
		metrics.RecordLoan("paid")
	}
	s.capacityChanged(ctx, "loan payment")
	return &PaymentResult{Loan: loan, Allocation: alloc}, nil
}
