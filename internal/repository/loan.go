package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

const loanColumns = `id, owner_id, principal, annual_rate, term_months, paid_amount, accrued_interest,
	status, queue_position, rejection_reason, created_at, updated_at, approved_at, paid_at, last_accrual_at`

type LoanFilter struct {
	OwnerID *uuid.UUID
	Status  *domain.LoanStatus
}

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrLoanNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) List(ctx context.Context, f LoanFilter) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		WHERE ($1::uuid IS NULL OR owner_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`, f.OwnerID, f.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	loans, err := collectLoans(rows)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return loans, nil
}

func (r *LoanRepository) Create(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO loans (
			id, owner_id, principal, annual_rate, term_months, paid_amount, accrued_interest,
			status, queue_position, created_at, updated_at, last_accrual_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.OwnerID, l.Principal, l.AnnualRate, l.TermMonths, l.PaidAmount, l.AccruedInterest,
		l.Status, l.QueuePosition, l.CreatedAt, l.UpdatedAt, l.LastAccrualAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrLoanNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

// Update persists every mutable column of the loan.
func (r *LoanRepository) Update(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET
			annual_rate = $1, term_months = $2, paid_amount = $3, accrued_interest = $4,
			status = $5, queue_position = $6, rejection_reason = $7,
			updated_at = $8, approved_at = $9, paid_at = $10, last_accrual_at = $11
		WHERE id = $12`,
		l.AnnualRate, l.TermMonths, l.PaidAmount, l.AccruedInterest,
		l.Status, l.QueuePosition, l.RejectionReason,
		l.UpdatedAt, l.ApprovedAt, l.PaidAt, l.LastAccrualAt,
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if err := expectOneRow(res, domain.ErrLoanNotFound); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

// Promote moves queued loans to pending in one statement and clears their
// queue positions.
func (r *LoanRepository) Promote(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = $1, queue_position = NULL, updated_at = $2
		WHERE id = ANY($3::uuid[]) AND status = $4`,
		domain.LoanStatusPending, at, pq.Array(uuidStrings(ids)), domain.LoanStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("Promote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Promote: rows affected: %w", err)
	}
	if int(n) != len(ids) {
		return fmt.Errorf("Promote: promoted %d of %d loans: %w", n, len(ids), domain.ErrVersionConflict)
	}
	return nil
}

func (r *LoanRepository) UpdateAccrual(ctx context.Context, tx *sql.Tx, id uuid.UUID, accruedInterest decimal.Decimal, checkpoint, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET accrued_interest = $1, last_accrual_at = $2, updated_at = $3 WHERE id = $4`,
		accruedInterest, checkpoint, at, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateAccrual: %w", err)
	}
	if err := expectOneRow(res, domain.ErrLoanNotFound); err != nil {
		return fmt.Errorf("UpdateAccrual: %w", err)
	}
	return nil
}

func (r *LoanRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := expectOneRow(res, domain.ErrLoanNotFound); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// ListQueued returns the queue in replay order.
func (r *LoanRepository) ListQueued(ctx context.Context, q Querier) ([]domain.Loan, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		WHERE status = $1 ORDER BY queue_position ASC, created_at ASC`, domain.LoanStatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("ListQueued: %w", err)
	}
	defer rows.Close()

	loans, err := collectLoans(rows)
	if err != nil {
		return nil, fmt.Errorf("ListQueued: %w", err)
	}
	return loans, nil
}

// MaxQueuePosition is nil when no loan is queued.
func (r *LoanRepository) MaxQueuePosition(ctx context.Context, tx *sql.Tx) (*int64, error) {
	var highest sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(queue_position) FROM loans WHERE status = $1`, domain.LoanStatusQueued,
	).Scan(&highest)
	if err != nil {
		return nil, fmt.Errorf("MaxQueuePosition: %w", err)
	}
	if !highest.Valid {
		return nil, nil
	}
	return &highest.Int64, nil
}

// ListAccruableForUpdate locks every loan that accrues interest, in id order.
func (r *LoanRepository) ListAccruableForUpdate(ctx context.Context, tx *sql.Tx) ([]domain.Loan, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		WHERE status = ANY($1) ORDER BY id FOR UPDATE`, pq.Array(committedStatuses()),
	)
	if err != nil {
		return nil, fmt.Errorf("ListAccruableForUpdate: %w", err)
	}
	defer rows.Close()

	loans, err := collectLoans(rows)
	if err != nil {
		return nil, fmt.Errorf("ListAccruableForUpdate: %w", err)
	}
	return loans, nil
}

func committedStatuses() []string {
	out := make([]string, len(domain.CommittedLoanStatuses))
	for i, s := range domain.CommittedLoanStatuses {
		out[i] = string(s)
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func collectLoans(rows *sql.Rows) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return loans, nil
}

func scanLoan(s scanner) (*domain.Loan, error) {
	var l domain.Loan
	err := s.Scan(
		&l.ID, &l.OwnerID, &l.Principal, &l.AnnualRate, &l.TermMonths, &l.PaidAmount, &l.AccruedInterest,
		&l.Status, &l.QueuePosition, &l.RejectionReason, &l.CreatedAt, &l.UpdatedAt,
		&l.ApprovedAt, &l.PaidAt, &l.LastAccrualAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
