package lending

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/metrics"
)

// ReconcileQueue promotes queued loans to pending, in FIFO order, for as long
// as each fits under the threshold. It stops at the first loan that does not
// fit. Running it without a capacity change promotes nothing.
func (s *Service) ReconcileQueue(ctx context.Context) ([]*domain.Loan, error) {
	log := logging.FromContext(ctx)

	tx, err := s.beginPoolTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReconcileQueue: %w", err)
	}
	defer tx.Rollback()

	totals, err := s.pool.Totals(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("ReconcileQueue: %w", err)
	}
	queued, err := s.loans.ListQueued(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("ReconcileQueue: %w", err)
	}

	candidates := make([]*domain.Loan, len(queued))
	for i := range queued {
		candidates[i] = &queued[i]
	}
	promoted := s.accountant.PlanPromotions(totals, candidates)
	if len(promoted) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	ids := make([]uuid.UUID, len(promoted))
	for i, l := range promoted {
		ids[i] = l.ID
	}
	if err := s.loans.Promote(ctx, tx, ids, now); err != nil {
		return nil, fmt.Errorf("ReconcileQueue: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReconcileQueue: commit: %w", err)
	}

	for _, l := range promoted {
		l.Status = domain.LoanStatusPending
		l.QueuePosition = nil
		l.UpdatedAt = now
		metrics.RecordLoan("promoted")
		log.Info("loan promoted from queue", "loan_id", l.ID, "amount", l.Principal)
	}
	log.Info("queue reconciled", "promoted", len(promoted), "remaining", len(queued)-len(promoted))
	s.refreshGauges(ctx)
	return promoted, nil
}

// HandleCapacityChanged is the events.Bus subscriber for capacity changes.
func (s *Service) HandleCapacityChanged(ctx context.Context, evt domain.CapacityChanged) error {
	if _, err := s.ReconcileQueue(logging.With(ctx, "trigger", evt.Reason)); err != nil {
		metrics.QueueReconcileFailures.Inc()
		return fmt.Errorf("HandleCapacityChanged: %w", err)
	}
	return nil
}
