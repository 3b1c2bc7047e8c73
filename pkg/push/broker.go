// Package push delivers partial product updates from the product-updates
// Kafka topic to live reconciliation sessions. The Broker is the in-process
// fan-out point: consumers subscribe per product id, the Kafka consumer feeds
// decoded updates into it.
package push

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/kozydot/findr/pkg/models"
)

// Broker routes updates to handlers keyed by product id. It implements
// reconcile.Subscriber. Multiple sessions may subscribe to the same product;
// each gets every update.
type Broker struct {
	logger ectologger.Logger

	mu       sync.RWMutex
	handlers map[string]map[string]func(models.PartialUpdate)
}

// NewBroker creates an empty broker.
func NewBroker(logger ectologger.Logger) *Broker {
	return &Broker{
		logger:   logger,
		handlers: make(map[string]map[string]func(models.PartialUpdate)),
	}
}

// Subscribe registers handler for productID. The returned unsubscribe func is
// idempotent.
func (b *Broker) Subscribe(_ context.Context, productID string, handler func(models.PartialUpdate)) (func(), error) {
	id := uuid.NewString()

	b.mu.Lock()
	if b.handlers[productID] == nil {
		b.handlers[productID] = make(map[string]func(models.PartialUpdate))
	}
	b.handlers[productID][id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[productID], id)
			if len(b.handlers[productID]) == 0 {
				delete(b.handlers, productID)
			}
		})
	}, nil
}

// Publish delivers update to every handler subscribed to productID. Updates
// for products with no live session are dropped; there is nothing to refine.
func (b *Broker) Publish(ctx context.Context, productID string, update models.PartialUpdate) {
	b.mu.RLock()
	subs := make([]func(models.PartialUpdate), 0, len(b.handlers[productID]))
	for _, h := range b.handlers[productID] {
		subs = append(subs, h)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"product_id":  productID,
		"subscribers": len(subs),
	}).Debug("Delivering product update")

	for _, h := range subs {
		h(update)
	}
}

// SubscriberCount reports how many handlers are registered for productID.
func (b *Broker) SubscriberCount(productID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[productID])
}
