package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/logging"
)

type poolService interface {
	PoolStatus(ctx context.Context) (*domain.PoolStatus, error)
	ReconcileQueue(ctx context.Context) ([]*domain.Loan, error)
}

type PoolHandler struct {
	pool poolService
}

func NewPoolHandler(pool poolService) *PoolHandler {
	return &PoolHandler{pool: pool}
}

type poolStatusDTO struct {
	Invested        string `json:"invested"`
	Committed       string `json:"committed"`
	Available       string `json:"available"`
	Utilization     string `json:"utilization"`
	Threshold       string `json:"threshold"`
	ActiveInvestors int    `json:"active_investors"`
	QueuedLoans     int    `json:"queued_loans"`
}

type reconcileDTO struct {
	Promoted []uuid.UUID `json:"promoted"`
}

func (h *PoolHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.pool.PoolStatus(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read pool status", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, poolStatusDTO{
		Invested:        money(status.Invested),
		Committed:       money(status.Committed),
		Available:       money(status.Available),
		Utilization:     status.Utilization.StringFixed(finance.RatePlaces),
		Threshold:       status.Threshold.StringFixed(finance.RatePlaces),
		ActiveInvestors: status.ActiveInvestors,
		QueuedLoans:     status.QueuedLoans,
	})
}

func (h *PoolHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	promoted, err := h.pool.ReconcileQueue(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to reconcile queue", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := reconcileDTO{Promoted: make([]uuid.UUID, len(promoted))}
	for i, l := range promoted {
		dto.Promoted[i] = l.ID
	}
	RespondSuccess(w, http.StatusOK, dto)
}
