package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

const transactionColumns = `id, wallet_id, kind, amount, moves_balance, investment_id, loan_id, note, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.WalletID, t.Kind, t.Amount, t.MovesBalance, t.InvestmentID, t.LoanID, t.Note, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// ListByWallet returns one page, newest first, and the wallet's total count.
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_transactions WHERE wallet_id = $1`, walletID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: %w", err)
	}
	defer rows.Close()

	var txs []domain.LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByWallet: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByWallet: rows: %w", err)
	}
	return txs, total, nil
}

// ListByLoan returns a loan's history oldest first.
func (r *TransactionRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions
		WHERE loan_id = $1 ORDER BY created_at, id`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByLoan: %w", err)
	}
	defer rows.Close()

	var txs []domain.LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByLoan: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByLoan: rows: %w", err)
	}
	return txs, nil
}

// UpdateNote is the only mutation allowed on a written transaction.
func (r *TransactionRepository) UpdateNote(ctx context.Context, id uuid.UUID, note *string) (*domain.LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE ledger_transactions SET note = $1 WHERE id = $2 RETURNING `+transactionColumns,
		note, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("UpdateNote: %w", domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("UpdateNote: %w", err)
	}
	return t, nil
}

func scanTransaction(s scanner) (*domain.LedgerTransaction, error) {
	var t domain.LedgerTransaction
	err := s.Scan(&t.ID, &t.WalletID, &t.Kind, &t.Amount, &t.MovesBalance, &t.InvestmentID, &t.LoanID, &t.Note, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
