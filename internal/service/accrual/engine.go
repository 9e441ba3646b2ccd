// Package accrual advances daily interest on loans and yield on investments.
// It moves no cash: accruals grow accumulators that are realized at redemption
// or payment, and each advance is recorded as a non-balance ledger entry.
package accrual

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
	"github.com/josh-kwaku/capital-pool/internal/repository"
)

type investmentRepo interface {
	ListActiveForUpdate(ctx context.Context, tx *sql.Tx) ([]domain.Investment, error)
	UpdateAccrual(ctx context.Context, tx *sql.Tx, id uuid.UUID, accruedYield decimal.Decimal, checkpoint, at time.Time) error
}

type loanRepo interface {
	ListAccruableForUpdate(ctx context.Context, tx *sql.Tx) ([]domain.Loan, error)
	UpdateAccrual(ctx context.Context, tx *sql.Tx, id uuid.UUID, accruedInterest decimal.Decimal, checkpoint, at time.Time) error
}

type walletRepo interface {
	LookupByOwner(ctx context.Context, q repository.Querier, ownerID uuid.UUID) (*domain.Wallet, error)
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error
}

// Locks names the advisory lock ids the engine takes: the accrual lease, then
// the pool lock.
type Locks struct {
	Lease int64
	Pool  int64
}

// Report summarises one batch.
type Report struct {
	Investments int
	Loans       int
	Yield       decimal.Decimal
	Interest    decimal.Decimal
	Committed   bool
}

func (r Report) changed() bool {
	return r.Investments > 0 || r.Loans > 0
}

type Engine struct {
	investments investmentRepo
	loans       loanRepo
	wallets     walletRepo
	ledger      ledgerRepo
	db          *sql.DB
	clock       clock.Clock
	locks       Locks
}

func NewEngine(
	investments investmentRepo,
	loans loanRepo,
	wallets walletRepo,
	ledger ledgerRepo,
	db *sql.DB,
	clk clock.Clock,
	locks Locks,
) *Engine {
	return &Engine{
		investments: investments,
		loans:       loans,
		wallets:     wallets,
		ledger:      ledger,
		db:          db,
		clock:       clk,
		locks:       locks,
	}
}

// Process runs one accrual batch as of the clock's now. Checkpoints advance by
// whole days so the sub-day remainder carries into the next run, which makes a
// second run with the same now a no-op. The batch is all or nothing. If
// another worker holds the lease, Process returns ErrAccrualInProgress without
// reading anything.
func (e *Engine) Process(ctx context.Context) (Report, error) {
	started := time.Now()
	report, err := e.process(ctx)
	metrics.AccrualDuration.Observe(time.Since(started).Seconds())

	switch {
	case errors.Is(err, domain.ErrAccrualInProgress):
		metrics.AccrualRuns.WithLabelValues("busy").Inc()
	case err != nil:
		metrics.AccrualRuns.WithLabelValues("failed").Inc()
	case report.Committed:
		metrics.AccrualRuns.WithLabelValues("committed").Inc()
	default:
		metrics.AccrualRuns.WithLabelValues("noop").Inc()
	}
	return report, err
}

func (e *Engine) process(ctx context.Context) (Report, error) {
	log := logging.FromContext(ctx)
	report := Report{Yield: decimal.Zero, Interest: decimal.Zero}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("Process: begin tx: %w", err)
	}
	defer tx.Rollback()

	granted, err := repository.TryLock(ctx, tx, e.locks.Lease)
	if err != nil {
		return report, fmt.Errorf("Process: %w", err)
	}
	if !granted {
		log.Warn("accrual lease held elsewhere, skipping run")
		return report, fmt.Errorf("Process: %w", domain.ErrAccrualInProgress)
	}
	if err := repository.LockPool(ctx, tx, e.locks.Pool); err != nil {
		return report, fmt.Errorf("Process: %w", err)
	}

	now := e.clock.Now()
	wallets := map[uuid.UUID]uuid.UUID{}

	investments, err := e.investments.ListActiveForUpdate(ctx, tx)
	if err != nil {
		return report, fmt.Errorf("Process: %w", err)
	}
	for i := range investments {
		yield, err := e.accrueInvestment(ctx, tx, &investments[i], now, wallets)
		if err != nil {
			return report, fmt.Errorf("Process: investment %s: %w", investments[i].ID, err)
		}
		if yield != nil {
			report.Investments++
			report.Yield = report.Yield.Add(*yield)
		}
	}

	loans, err := e.loans.ListAccruableForUpdate(ctx, tx)
	if err != nil {
		return report, fmt.Errorf("Process: %w", err)
	}
	for i := range loans {
		interest, err := e.accrueLoan(ctx, tx, &loans[i], now, wallets)
		if err != nil {
			return report, fmt.Errorf("Process: loan %s: %w", loans[i].ID, err)
		}
		if interest != nil {
			report.Loans++
			report.Interest = report.Interest.Add(*interest)
		}
	}

	if !report.changed() {
		log.Info("accrual run found nothing due", "investments", len(investments), "loans", len(loans))
		return report, nil
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("Process: commit: %w", err)
	}
	report.Committed = true

	metrics.AccrualAdvanced.WithLabelValues("investment").Add(float64(report.Investments))
	metrics.AccrualAdvanced.WithLabelValues("loan").Add(float64(report.Loans))
	log.Info("accrual run committed",
		"investments", report.Investments,
		"loans", report.Loans,
		"yield", report.Yield,
		"interest", report.Interest,
	)
	return report, nil
}

// accrueInvestment returns the yield added, or nil when the investment was
// left untouched.
func (e *Engine) accrueInvestment(ctx context.Context, tx *sql.Tx, inv *domain.Investment, now time.Time, wallets map[uuid.UUID]uuid.UUID) (*decimal.Decimal, error) {
	days := finance.ElapsedDays(inv.LastAccrualAt, now)
	if days <= 0 {
		return nil, nil
	}
	yield := finance.SimpleInterest(inv.Principal, inv.AnnualRate, days)
	if !yield.IsPositive() {
		return nil, nil
	}

	checkpoint := finance.AdvanceCheckpoint(inv.LastAccrualAt, days)
	if err := e.investments.UpdateAccrual(ctx, tx, inv.ID, inv.AccruedYield.Add(yield), checkpoint, now); err != nil {
		return nil, err
	}

	walletID, err := e.walletFor(ctx, tx, inv.OwnerID, wallets)
	if err != nil {
		return nil, err
	}
	entry := domain.NewLedgerTransaction(walletID, domain.TransactionKindYieldAccrual, yield, now).ForInvestment(inv.ID)
	if err := e.ledger.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &yield, nil
}

// accrueLoan returns the interest added, or nil when the loan was left
// untouched. A loan with nothing outstanding only has its checkpoint moved.
func (e *Engine) accrueLoan(ctx context.Context, tx *sql.Tx, loan *domain.Loan, now time.Time, wallets map[uuid.UUID]uuid.UUID) (*decimal.Decimal, error) {
	days := finance.ElapsedDays(loan.LastAccrualAt, now)
	if days <= 0 {
		return nil, nil
	}
	checkpoint := finance.AdvanceCheckpoint(loan.LastAccrualAt, days)

	outstanding := loan.RemainingBalance()
	if !outstanding.IsPositive() {
		if err := e.loans.UpdateAccrual(ctx, tx, loan.ID, loan.AccruedInterest, checkpoint, now); err != nil {
			return nil, err
		}
		zero := decimal.Zero
		return &zero, nil
	}

	interest := finance.SimpleInterest(outstanding, loan.AnnualRate, days)
	if !interest.IsPositive() {
		return nil, nil
	}
	if err := e.loans.UpdateAccrual(ctx, tx, loan.ID, loan.AccruedInterest.Add(interest), checkpoint, now); err != nil {
		return nil, err
	}

	walletID, err := e.walletFor(ctx, tx, loan.OwnerID, wallets)
	if err != nil {
		return nil, err
	}
	entry := domain.NewLedgerTransaction(walletID, domain.TransactionKindInterestAccrual, interest, now).ForLoan(loan.ID)
	if err := e.ledger.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &interest, nil
}

func (e *Engine) walletFor(ctx context.Context, tx *sql.Tx, ownerID uuid.UUID, cache map[uuid.UUID]uuid.UUID) (uuid.UUID, error) {
	if id, ok := cache[ownerID]; ok {
		return id, nil
	}
	w, err := e.wallets.LookupByOwner(ctx, tx, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	cache[ownerID] = w.ID
	return w.ID, nil
}
