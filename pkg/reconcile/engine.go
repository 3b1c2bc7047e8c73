// Package reconcile owns the lifecycle of a single product's aggregate view.
// A session accepts partial updates from the initial fetch, the push channel,
// and the poll fallback — in any order, with repeats — and produces a
// monotonically improving ProductRecord for its consumer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/tracing"
)

// ErrNotFound indicates the product does not exist upstream. Terminal; the
// caller should not retry.
var ErrNotFound = errors.New("product not found")

// DefaultPollInterval is the fixed delay between comparison-task status
// checks.
const DefaultPollInterval = 2 * time.Second

// Client is the upstream catalog collaborator consumed by the engine.
type Client interface {
	// FetchProduct retrieves the current aggregate for a product, or
	// ErrNotFound.
	FetchProduct(ctx context.Context, productID string) (*models.ProductRecord, error)
	// RequestComparison triggers an asynchronous multi-retailer comparison
	// and returns an opaque task handle.
	RequestComparison(ctx context.Context, productID string) (string, error)
	// PollComparisonResult checks a comparison task. pending is true while
	// the task is still running; once it completes the terminal update is
	// returned.
	PollComparisonResult(ctx context.Context, taskID string) (update *models.PartialUpdate, pending bool, err error)
}

// Subscriber is the push-notification channel scoped to a product id. The
// returned unsubscribe func must be safe to call more than once.
type Subscriber interface {
	Subscribe(ctx context.Context, productID string, handler func(models.PartialUpdate)) (unsubscribe func(), err error)
}

// UpdateFunc receives a full snapshot of the aggregate after every merge.
// Snapshots are deep copies; callbacks are invoked in merge order and should
// return quickly.
type UpdateFunc func(models.ProductRecord)

// Engine starts reconciliation sessions. It holds no cross-session state;
// each product id gets a fresh session.
type Engine struct {
	logger       ectologger.Logger
	client       Client
	subscriber   Subscriber
	pollInterval time.Duration
}

// NewEngine creates a reconciliation engine. subscriber may be nil, in which
// case sessions rely on the poll fallback alone.
func NewEngine(logger ectologger.Logger, client Client, subscriber Subscriber) *Engine {
	return &Engine{
		logger:       logger,
		client:       client,
		subscriber:   subscriber,
		pollInterval: DefaultPollInterval,
	}
}

// WithPollInterval overrides the comparison poll interval. Intended for tests.
func (e *Engine) WithPollInterval(d time.Duration) *Engine {
	e.pollInterval = d
	return e
}

// Start begins a reconciliation session for productID.
//
// It performs one initial fetch; a 404 surfaces as ErrNotFound and any other
// fetch failure is returned as-is (retry policy belongs to the caller). On
// success the session opens a push subscription and, when the initial record
// is too thin to be useful (no description or at most one retailer), requests
// a background comparison and polls for its result.
//
// ctx bounds the initial fetch only; the session itself lives until Stop.
func (e *Engine) Start(ctx context.Context, productID string, onUpdate UpdateFunc) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.Start")
	defer span.End()

	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}

	sessionID := uuid.NewString()
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"product_id": productID,
		"session_id": sessionID,
	})

	initial, err := e.client.FetchProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug("Product not found upstream")
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Initial product fetch failed")
		return nil, fmt.Errorf("fetch product %q: %w", productID, err)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        sessionID,
		productID: productID,
		logger:    log,
		cancel:    cancel,
		onUpdate:  onUpdate,
		record:    models.ProductRecord{ID: productID},
	}
	s.alive = true

	// The initial record rides the same merge path as every later update. A
	// record carrying nothing beyond its id merges to nothing, but the
	// consumer still gets a first snapshot to render.
	if update := models.UpdateFromRecord(*initial); update.IsEmpty() {
		s.emitSnapshot()
	} else {
		s.Apply(update)
	}

	if e.subscriber != nil {
		unsubscribe, err := e.subscriber.Subscribe(sessionCtx, productID, s.Apply)
		if err != nil {
			// Non-fatal: the poll fallback is the safety net.
			log.WithError(err).Warn("Push subscription failed; relying on poll fallback")
		} else {
			s.unsubscribe = unsubscribe
		}
	}

	if needsComparison(initial) {
		taskID, err := e.client.RequestComparison(ctx, productID)
		if err != nil {
			log.WithError(err).Warn("Failed to request comparison")
		} else {
			log.WithFields(map[string]any{"task_id": taskID}).Debug("Comparison requested; starting poll loop")
			s.wg.Add(1)
			go s.pollLoop(sessionCtx, e.client, taskID, e.pollInterval)
		}
	}

	return s, nil
}

// needsComparison reports whether the initial record is too sparse to show a
// meaningful comparison without triggering background work.
func needsComparison(rec *models.ProductRecord) bool {
	return rec.Description == "" || len(rec.Retailers) <= 1
}
