package accrual

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
)

type processor interface {
	Process(ctx context.Context) (Report, error)
}

// Runner triggers the engine on a fixed cadence inside the api process. Deploys
// that schedule `poolctl accrue` from cron leave it disabled.
type Runner struct {
	engine   processor
	logger   *slog.Logger
	interval time.Duration
}

func NewRunner(engine processor, logger *slog.Logger, interval time.Duration) *Runner {
	return &Runner{engine: engine, logger: logger, interval: interval}
}

func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("accrual runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("accrual runner stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	ctx = logging.WithLogger(ctx, r.logger.With("job", "accrual"))
	if _, err := r.engine.Process(ctx); err != nil {
		if errors.Is(err, domain.ErrAccrualInProgress) {
			return
		}
		r.logger.Error("accrual run failed", "error", err)
	}
}
