package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
)

type walletRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	Create(ctx context.Context, tx *sql.Tx, w *domain.Wallet) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64, at time.Time) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, int, error)
	UpdateNote(ctx context.Context, id uuid.UUID, note *string) (*domain.LedgerTransaction, error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	maxNoteLength   = 500
)

type WalletService struct {
	wallets walletRepo
	txs     transactionRepo
	db      *sql.DB
	clock   clock.Clock
}

func NewWalletService(wallets walletRepo, txs transactionRepo, db *sql.DB, clk clock.Clock) *WalletService {
	return &WalletService{wallets: wallets, txs: txs, db: db, clock: clk}
}

// CreateWallet opens the owner's single wallet. A positive opening balance is
// recorded as a deposit.
func (s *WalletService) CreateWallet(ctx context.Context, ownerID uuid.UUID, initialBalance decimal.Decimal) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("CreateWallet: %w", domain.ErrInvalidAmount)
	}
	if initialBalance.IsPositive() {
		if err := domain.ValidateAmount(initialBalance); err != nil {
			return nil, fmt.Errorf("CreateWallet: %w", err)
		}
	}

	now := s.clock.Now()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   initialBalance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateWallet: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.wallets.Create(ctx, tx, w); err != nil {
		return nil, fmt.Errorf("CreateWallet: %w", err)
	}
	if initialBalance.IsPositive() {
		entry := domain.NewLedgerTransaction(w.ID, domain.TransactionKindDeposit, initialBalance, now).
			WithNote("opening balance")
		if err := s.txs.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("CreateWallet: record deposit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateWallet: commit: %w", err)
	}

	if initialBalance.IsPositive() {
		metrics.RecordTransaction(domain.TransactionKindDeposit)
	}
	log.Info("wallet created", "wallet_id", w.ID, "owner_id", ownerID, "balance", w.Balance)
	return w, nil
}

func (s *WalletService) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return w, nil
}

func (s *WalletService) GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GetWalletByOwner: %w", err)
	}
	return w, nil
}

func (s *WalletService) Deposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := s.move(ctx, walletID, amount, domain.TransactionKindDeposit)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return w, nil
}

func (s *WalletService) Withdraw(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	w, err := s.move(ctx, walletID, amount, domain.TransactionKindWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return w, nil
}

func (s *WalletService) move(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, kind domain.TransactionKind) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("move: begin tx: %w", err)
	}
	defer tx.Rollback()

	w, err := s.wallets.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}

	if kind == domain.TransactionKindWithdrawal {
		if err := w.Debit(amount); err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
	} else {
		w.Credit(amount)
	}

	now := s.clock.Now()
	if err := s.wallets.UpdateBalance(ctx, tx, w.ID, w.Balance, w.Version, now); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	if err := s.txs.Create(ctx, tx, domain.NewLedgerTransaction(w.ID, kind, amount, now)); err != nil {
		return nil, fmt.Errorf("move: record %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("move: commit: %w", err)
	}
	w.UpdatedAt = now

	metrics.RecordTransaction(kind)
	log.Info("wallet balance changed", "wallet_id", w.ID, "kind", kind, "amount", amount, "balance", w.Balance)
	return w, nil
}

// ListTransactions pages through a wallet's ledger, newest first.
func (s *WalletService) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, int, error) {
	if _, err := s.wallets.GetByID(ctx, walletID); err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)

	txs, total, err := s.txs.ListByWallet(ctx, walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, total, nil
}

func (s *WalletService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	t, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// AnnotateTransaction sets or, with a blank note, clears a transaction's note.
func (s *WalletService) AnnotateTransaction(ctx context.Context, id uuid.UUID, note string) (*domain.LedgerTransaction, error) {
	note = strings.TrimSpace(note)
	if len(note) > maxNoteLength {
		return nil, fmt.Errorf("AnnotateTransaction: note longer than %d characters: %w", maxNoteLength, domain.ErrInvalidRequest)
	}

	var value *string
	if note != "" {
		value = &note
	}
	t, err := s.txs.UpdateNote(ctx, id, value)
	if err != nil {
		return nil, fmt.Errorf("AnnotateTransaction: %w", err)
	}

	logging.FromContext(ctx).Info("transaction annotated", "transaction_id", id, "wallet_id", t.WalletID)
	return t, nil
}
