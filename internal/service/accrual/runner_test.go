package accrual

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (p *countingProcessor) Process(ctx context.Context) (Report, error) {
	p.calls.Add(1)
	return Report{}, p.err
}

func TestRunner_TicksUntilCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"lease busy", domain.ErrAccrualInProgress},
		{"failure", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &countingProcessor{err: tt.err}
			runner := NewRunner(proc, slog.Default(), 5*time.Millisecond)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				runner.Start(ctx)
				close(done)
			}()

			assert.Eventually(t, func() bool { return proc.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
			cancel()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("runner did not stop after cancel")
			}
		})
	}
}
