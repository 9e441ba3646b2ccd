// Package lending runs the pool's money-moving operations: loan admission and
// approval, the FIFO queue, the payment waterfall and investment lifecycle.
// Every operation that reads pool totals or changes committed or invested
// capital holds the pool advisory lock from its first read to its commit.
package lending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/config"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
	"github.com/josh-kwaku/capital-pool/internal/pool"
	"github.com/josh-kwaku/capital-pool/internal/repository"
)

type walletRepo interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx *sql.Tx, ownerID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64, at time.Time) error
}

type investmentRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error)
	List(ctx context.Context, ownerID *uuid.UUID) ([]domain.Investment, error)
	Create(ctx context.Context, tx *sql.Tx, inv *domain.Investment) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Investment, error)
	MarkRedeemed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type loanRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	List(ctx context.Context, f repository.LoanFilter) ([]domain.Loan, error)
	Create(ctx context.Context, tx *sql.Tx, l *domain.Loan) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error)
	Update(ctx context.Context, tx *sql.Tx, l *domain.Loan) error
	Promote(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	ListQueued(ctx context.Context, q repository.Querier) ([]domain.Loan, error)
	MaxQueuePosition(ctx context.Context, tx *sql.Tx) (*int64, error)
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error
}

type poolRepo interface {
	Totals(ctx context.Context, q repository.Querier) (domain.PoolTotals, error)
	CountActiveInvestors(ctx context.Context, q repository.Querier) (int, error)
	CountQueued(ctx context.Context, q repository.Querier) (int, error)
}

type capacityPublisher interface {
	PublishCapacity(ctx context.Context, evt domain.CapacityChanged)
}

type Service struct {
	wallets     walletRepo
	investments investmentRepo
	loans       loanRepo
	ledger      ledgerRepo
	pool        poolRepo
	accountant  *pool.Accountant
	events      capacityPublisher
	db          *sql.DB
	clock       clock.Clock
	config      *config.Config
}

func NewService(
	wallets walletRepo,
	investments investmentRepo,
	loans loanRepo,
	ledger ledgerRepo,
	poolStore poolRepo,
	accountant *pool.Accountant,
	events capacityPublisher,
	db *sql.DB,
	clk clock.Clock,
	cfg *config.Config,
) *Service {
	return &Service{
		wallets:     wallets,
		investments: investments,
		loans:       loans,
		ledger:      ledger,
		pool:        poolStore,
		accountant:  accountant,
		events:      events,
		db:          db,
		clock:       clk,
		config:      cfg,
	}
}

// beginPoolTx opens a transaction and blocks until it holds the pool lock.
func (s *Service) beginPoolTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	if err := repository.LockPool(ctx, tx, s.config.PoolLockKey); err != nil {
		tx.Rollback()
		return nil, err
	}
	return tx, nil
}

func (s *Service) capacityChanged(ctx context.Context, reason string) {
	s.events.PublishCapacity(ctx, domain.CapacityChanged{Reason: reason, At: s.clock.Now()})
}

// PoolStatus reads a consistent snapshot of the pool figures.
func (s *Service) PoolStatus(ctx context.Context) (*domain.PoolStatus, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("PoolStatus: begin tx: %w", err)
	}
	defer tx.Rollback()

	status, err := s.readStatus(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("PoolStatus: %w", err)
	}
	return status, nil
}

func (s *Service) readStatus(ctx context.Context, q repository.Querier) (*domain.PoolStatus, error) {
	totals, err := s.pool.Totals(ctx, q)
	if err != nil {
		return nil, err
	}
	investors, err := s.pool.CountActiveInvestors(ctx, q)
	if err != nil {
		return nil, err
	}
	queued, err := s.pool.CountQueued(ctx, q)
	if err != nil {
		return nil, err
	}
	status := s.accountant.Status(totals, investors, queued)
	return &status, nil
}

// refreshGauges is best effort; a failed read only leaves the gauges stale.
func (s *Service) refreshGauges(ctx context.Context) {
	status, err := s.PoolStatus(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("pool gauges not refreshed", "error", err)
		return
	}
	metrics.ObservePool(*status)
}

func (s *Service) recordLedger(ctx context.Context, tx *sql.Tx, entry *domain.LedgerTransaction) error {
	if err := s.ledger.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("record %s: %w", entry.Kind, err)
	}
	return nil
}
