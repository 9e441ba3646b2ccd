package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

const investmentColumns = `id, owner_id, principal, accrued_yield, annual_rate, status,
	created_at, updated_at, redeemed_at, last_accrual_at`

type InvestmentRepository struct {
	db *sql.DB
}

func NewInvestmentRepository(db *sql.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id,
	)
	inv, err := scanInvestment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrInvestmentNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// List returns investments newest first, optionally restricted to one owner.
func (r *InvestmentRepository) List(ctx context.Context, ownerID *uuid.UUID) ([]domain.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments
		WHERE ($1::uuid IS NULL OR owner_id = $1)
		ORDER BY created_at DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	investments, err := collectInvestments(rows)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return investments, nil
}

func (r *InvestmentRepository) Create(ctx context.Context, tx *sql.Tx, inv *domain.Investment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO investments (
			id, owner_id, principal, accrued_yield, annual_rate, status,
			created_at, updated_at, last_accrual_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.OwnerID, inv.Principal, inv.AccruedYield, inv.AnnualRate, inv.Status,
		inv.CreatedAt, inv.UpdatedAt, inv.LastAccrualAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvestmentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Investment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1 FOR UPDATE`, id,
	)
	inv, err := scanInvestment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrInvestmentNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

// ListActiveForUpdate locks every active investment in id order.
func (r *InvestmentRepository) ListActiveForUpdate(ctx context.Context, tx *sql.Tx) ([]domain.Investment, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments
		WHERE status = $1 ORDER BY id FOR UPDATE`, domain.InvestmentStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActiveForUpdate: %w", err)
	}
	defer rows.Close()

	investments, err := collectInvestments(rows)
	if err != nil {
		return nil, fmt.Errorf("ListActiveForUpdate: %w", err)
	}
	return investments, nil
}

func (r *InvestmentRepository) MarkRedeemed(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE investments SET status = $1, redeemed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`,
		domain.InvestmentStatusRedeemed, at, id, domain.InvestmentStatusActive,
	)
	if err != nil {
		return fmt.Errorf("MarkRedeemed: %w", err)
	}
	if err := expectOneRow(res, domain.ErrInvestmentRedeemed); err != nil {
		return fmt.Errorf("MarkRedeemed: %w", err)
	}
	return nil
}

func (r *InvestmentRepository) UpdateAccrual(ctx context.Context, tx *sql.Tx, id uuid.UUID, accruedYield decimal.Decimal, checkpoint, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE investments SET accrued_yield = $1, last_accrual_at = $2, updated_at = $3 WHERE id = $4`,
		accruedYield, checkpoint, at, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateAccrual: %w", err)
	}
	if err := expectOneRow(res, domain.ErrInvestmentNotFound); err != nil {
		return fmt.Errorf("UpdateAccrual: %w", err)
	}
	return nil
}

func (r *InvestmentRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM investments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := expectOneRow(res, domain.ErrInvestmentNotFound); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func collectInvestments(rows *sql.Rows) ([]domain.Investment, error) {
	var investments []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		investments = append(investments, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return investments, nil
}

func scanInvestment(s scanner) (*domain.Investment, error) {
	var inv domain.Investment
	err := s.Scan(
		&inv.ID, &inv.OwnerID, &inv.Principal, &inv.AccruedYield, &inv.AnnualRate, &inv.Status,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.RedeemedAt, &inv.LastAccrualAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
