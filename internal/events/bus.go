// Package events dispatches domain events to in-process subscribers after the
// publishing transaction has committed.
package events

import (
	"context"
	"sync"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
)

type CapacityHandler func(ctx context.Context, evt domain.CapacityChanged) error

// Bus delivers events synchronously, in subscription order. A failing handler
// is logged and does not stop delivery to the remaining handlers; the
// publisher's own work has already committed.
type Bus struct {
	mu       sync.RWMutex
	capacity []CapacityHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeCapacity(h CapacityHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capacity = append(b.capacity, h)
}

func (b *Bus) PublishCapacity(ctx context.Context, evt domain.CapacityChanged) {
	b.mu.RLock()
	handlers := make([]CapacityHandler, len(b.capacity))
	copy(handlers, b.capacity)
	b.mu.RUnlock()

	log := logging.FromContext(ctx)
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			log.Error("capacity handler failed", "reason", evt.Reason, "error", err)
		}
	}
}
