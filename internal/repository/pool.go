package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

// PoolRepository reads the aggregates the accountant works from. Callers that
// act on the figures pass a transaction already holding the pool lock.
type PoolRepository struct {
	db *sql.DB
}

func NewPoolRepository(db *sql.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) DB() *sql.DB {
	return r.db
}

func (r *PoolRepository) Totals(ctx context.Context, q Querier) (domain.PoolTotals, error) {
	var t domain.PoolTotals
	err := q.QueryRowContext(ctx,
		`SELECT
			(SELECT COALESCE(SUM(principal), 0) FROM investments WHERE status = $1),
			(SELECT COALESCE(SUM(principal), 0) FROM loans WHERE status = ANY($2))`,
		domain.InvestmentStatusActive, pq.Array(committedStatuses()),
	).Scan(&t.Invested, &t.Committed)
	if err != nil {
		return domain.PoolTotals{}, fmt.Errorf("Totals: %w", err)
	}
	return t, nil
}

func (r *PoolRepository) CountActiveInvestors(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT owner_id) FROM investments WHERE status = $1`,
		domain.InvestmentStatusActive,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountActiveInvestors: %w", err)
	}
	return n, nil
}

func (r *PoolRepository) CountQueued(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE status = $1`, domain.LoanStatusQueued,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountQueued: %w", err)
	}
	return n, nil
}
