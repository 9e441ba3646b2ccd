// Package app wires the ledger database, repositories and services shared by
// the api and poolctl binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/config"
	"github.com/josh-kwaku/capital-pool/internal/events"
	"github.com/josh-kwaku/capital-pool/internal/pool"
	"github.com/josh-kwaku/capital-pool/internal/repository"
	"github.com/josh-kwaku/capital-pool/internal/service"
	"github.com/josh-kwaku/capital-pool/internal/service/accrual"
	"github.com/josh-kwaku/capital-pool/internal/service/lending"
)

type App struct {
	DB          *sql.DB
	Clock       clock.Clock
	Wallets     *service.WalletService
	Lending     *lending.Service
	Accrual     *accrual.Engine
	Idempotency *repository.IdempotencyRepository
}

// New connects to the database and subscribes queue reconciliation to
// capacity changes.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	accountant, err := pool.NewAccountant(cfg.PoolThreshold)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	clk := clock.System{}
	wallets := repository.NewWalletRepository(db)
	investments := repository.NewInvestmentRepository(db)
	loans := repository.NewLoanRepository(db)
	ledger := repository.NewTransactionRepository(db)
	poolStore := repository.NewPoolRepository(db)

	bus := events.NewBus()
	lendingSvc := lending.NewService(wallets, investments, loans, ledger, poolStore, accountant, bus, db, clk, cfg)
	bus.SubscribeCapacity(lendingSvc.HandleCapacityChanged)

	return &App{
		DB:          db,
		Clock:       clk,
		Wallets:     service.NewWalletService(wallets, ledger, db, clk),
		Lending:     lendingSvc,
		Accrual:     accrual.NewEngine(investments, loans, wallets, ledger, db, clk, accrual.Locks{Lease: cfg.AccrualLockKey, Pool: cfg.PoolLockKey}),
		Idempotency: repository.NewIdempotencyRepository(db),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
