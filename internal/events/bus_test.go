package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

func TestPublishCapacity(t *testing.T) {
	bus := NewBus()
	evt := domain.CapacityChanged{Reason: "loan_rejected", At: time.Now().UTC()}

	var order []string
	bus.SubscribeCapacity(func(_ context.Context, got domain.CapacityChanged) error {
		assert.Equal(t, evt, got)
		order = append(order, "first")
		return errors.New("boom")
	})
	bus.SubscribeCapacity(func(_ context.Context, _ domain.CapacityChanged) error {
		order = append(order, "second")
		return nil
	})

	bus.PublishCapacity(context.Background(), evt)

	assert.Equal(t, []string{"first", "second"}, order, "a failing handler must not stop delivery")
}

func TestPublishCapacity_NoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.PublishCapacity(context.Background(), domain.CapacityChanged{Reason: "noop"})
	})
}
