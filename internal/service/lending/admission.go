package lending

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
	"github.com/josh-kwaku/capital-pool/internal/pool"
	"github.com/josh-kwaku/capital-pool/internal/repository"
)

type LoanRequest struct {
	OwnerID    uuid.UUID
	Amount     decimal.Decimal
	AnnualRate *decimal.Decimal
	TermMonths *int
}

// ApprovalOverrides replace the requested terms when the loan is activated.
type ApprovalOverrides struct {
	AnnualRate *decimal.Decimal
	TermMonths *int
}

func (o ApprovalOverrides) validate() error {
	if o.AnnualRate != nil {
		if err := domain.ValidateRate(*o.AnnualRate); err != nil {
			return err
		}
	}
	if o.TermMonths != nil {
		if err := domain.ValidateTerm(*o.TermMonths); err != nil {
			return err
		}
	}
	return nil
}

// RequestLoan admits the loan as pending when it fits under the threshold and
// queues it at the back of the FIFO otherwise.
func (s *Service) RequestLoan(ctx context.Context, req LoanRequest) (*domain.Loan, error) {
	log := logging.FromContext(ctx)

	rate := s.config.DefaultLoanRate
	if req.AnnualRate != nil {
		rate = *req.AnnualRate
	}
	term := s.config.DefaultLoanTermMonths
	if req.TermMonths != nil {
		term = *req.TermMonths
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}
	if err := domain.ValidateRate(rate); err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}
	if err := domain.ValidateTerm(term); err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}
	if _, err := s.wallets.GetByOwner(ctx, req.OwnerID); err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}
	defer tx.Rollback()

	totals, err := s.pool.Totals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}

	now := s.clock.Now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		OwnerID:         req.OwnerID,
		Principal:       req.Amount,
		AnnualRate:      rate,
		TermMonths:      term,
		PaidAmount:      decimal.Zero,
		AccruedInterest: decimal.Zero,
		Status:          domain.LoanStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastAccrualAt:   now,
	}
	if !s.accountant.Fits(totals, req.Amount) {
		position, err := s.nextQueuePosition(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("RequestLoan: %w", err)
		}
		loan.Status = domain.LoanStatusQueued
		loan.QueuePosition = &position
	}

	if err := s.loans.Create(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("RequestLoan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RequestLoan: commit: %w", err)
	}

	if loan.Status == domain.LoanStatusQueued {
		metrics.RecordLoan("queued")
		log.Info("loan queued",
			"loan_id", loan.ID,
			"owner_id", loan.OwnerID,
			"amount", loan.Principal,
			"queue_position", *loan.QueuePosition,
			"invested", totals.Invested,
			"committed", totals.Committed,
		)
	} else {
		metrics.RecordLoan("admitted")
		log.Info("loan admitted", "loan_id", loan.ID, "owner_id", loan.OwnerID, "amount", loan.Principal)
	}
	s.refreshGauges(ctx)
	return loan, nil
}

func (s *Service) nextQueuePosition(ctx context.Context, tx *sql.Tx) (int64, error) {
	highest, err := s.loans.MaxQueuePosition(ctx, tx)
	if err != nil {
		return 0, err
	}
	return pool.NextQueuePosition(highest), nil
}

// ApproveLoan activates a pending loan and disburses its principal to the
// borrower. A queued loan is returned unchanged: queued loans only move
// through promotion. If the pool has shifted so the loan no longer fits, it
// is demoted to the back of the queue instead of failing.
func (s *Service) ApproveLoan(ctx context.Context, id uuid.UUID, overrides ApprovalOverrides) (*domain.Loan, error) {
	log := logging.FromContext(ctx)

	if err := overrides.validate(); err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}
	if loan.Status == domain.LoanStatusQueued {
		log.Info("approval ignored for queued loan", "loan_id", loan.ID, "queue_position", loan.QueuePosition)
		return loan, nil
	}
	if !loan.Status.Approvable() {
		return nil, fmt.Errorf("ApproveLoan: status %s: %w", loan.Status, domain.ErrLoanNotApprovable)
	}

	totals, err := s.pool.Totals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}
	if loan.Status.Committed() {
		totals.Committed = totals.Committed.Sub(loan.Principal)
	}

	now := s.clock.Now()
	if !s.accountant.Fits(totals, loan.Principal) {
		return s.demote(ctx, tx, loan, totals, now)
	}

	wallet, err := s.wallets.GetByOwnerForUpdate(ctx, tx, loan.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}
	wallet.Credit(loan.Principal)
	if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance, wallet.Version, now); err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}

	if overrides.AnnualRate != nil {
		loan.AnnualRate = *overrides.AnnualRate
	}
	if overrides.TermMonths != nil {
		loan.TermMonths = *overrides.TermMonths
	}
	loan.Status = domain.LoanStatusActive
	loan.QueuePosition = nil
	loan.ApprovedAt = &now
	loan.UpdatedAt = now
	if err := s.loans.Update(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}

	entry := domain.NewLedgerTransaction(wallet.ID, domain.TransactionKindLoanDisbursement, loan.Principal, now).ForLoan(loan.ID)
	if err := s.recordLedger(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("ApproveLoan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApproveLoan: commit: %w", err)
	}

	metrics.RecordLoan("approved")
	metrics.RecordTransaction(domain.TransactionKindLoanDisbursement)
	log.Info("loan approved",
		"loan_id", loan.ID,
		"wallet_id", wallet.ID,
		"amount", loan.Principal,
		"annual_rate", loan.AnnualRate,
		"term_months", loan.TermMonths,
	)
	s.refreshGauges(ctx)
	return loan, nil
}

func (s *Service) demote(ctx context.Context, tx *sql.Tx, loan *domain.Loan, totals domain.PoolTotals, now time.Time) (*domain.Loan, error) {
	position, err := s.nextQueuePosition(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("demote: %w", err)
	}
	loan.Status = domain.LoanStatusQueued
	loan.QueuePosition = &position
	loan.UpdatedAt = now
	if err := s.loans.Update(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("demote: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("demote: commit: %w", err)
	}

	metrics.RecordLoan("demoted")
	logging.FromContext(ctx).Warn("loan no longer fits, demoted to queue",
		"loan_id", loan.ID,
		"amount", loan.Principal,
		"queue_position", position,
		"invested", totals.Invested,
		"committed", totals.Committed,
	)
	s.capacityChanged(ctx, "loan demoted")
	return loan, nil
}

// RejectLoan closes a pending or queued loan with a reason.
func (s *Service) RejectLoan(ctx context.Context, id uuid.UUID, reason string) (*domain.Loan, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("RejectLoan: reason required: %w", domain.ErrInvalidRequest)
	}

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("RejectLoan: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("RejectLoan: %w", err)
	}
	if !loan.Status.Rejectable() {
		return nil, fmt.Errorf("RejectLoan: status %s: %w", loan.Status, domain.ErrLoanNotRejectable)
	}

	now := s.clock.Now()
	loan.Status = domain.LoanStatusRejected
	loan.QueuePosition = nil
	loan.RejectionReason = &reason
	loan.UpdatedAt = now
	if err := s.loans.Update(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("RejectLoan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RejectLoan: commit: %w", err)
	}

	metrics.RecordLoan("rejected")
	logging.FromContext(ctx).Info("loan rejected", "loan_id", loan.ID, "reason", reason)
	s.capacityChanged(ctx, "loan rejected")
	return loan, nil
}

// DeleteLoan removes a loan that never became active. A loan that has already
// received payments keeps its row so the payments stay attributable.
func (s *Service) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}
	if !loan.Status.Deletable() || loan.PaidAmount.IsPositive() {
		return fmt.Errorf("DeleteLoan: status %s: %w", loan.Status, domain.ErrLoanNotDeletable)
	}
	if err := s.loans.Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteLoan: commit: %w", err)
	}

	metrics.RecordLoan("deleted")
	logging.FromContext(ctx).Info("loan deleted", "loan_id", id, "status", loan.Status)
	s.capacityChanged(ctx, "loan deleted")
	return nil
}

func (s *Service) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetLoan: %w", err)
	}
	return loan, nil
}

func (s *Service) ListLoans(ctx context.Context, f repository.LoanFilter) ([]domain.Loan, error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, fmt.Errorf("ListLoans: unknown status %q: %w", *f.Status, domain.ErrInvalidRequest)
	}
	loans, err := s.loans.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListLoans: %w", err)
	}
	return loans, nil
}
