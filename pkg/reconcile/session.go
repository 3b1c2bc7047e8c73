package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/kozydot/findr/pkg/merging"
	"github.com/kozydot/findr/pkg/models"
)

// Session is a live reconciliation for one product. All updates, whatever
// their source, funnel through Apply; the mutex serializes merges so the
// consumer observes a single coherent sequence of snapshots.
type Session struct {
	id        string
	productID string
	logger    ectologger.Logger

	mu     sync.Mutex
	alive  bool
	record models.ProductRecord

	onUpdate    UpdateFunc
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	stopOnce sync.Once
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// ProductID returns the id this session reconciles.
func (s *Session) ProductID() string {
	return s.productID
}

// Snapshot returns a deep copy of the current aggregate.
func (s *Session) Snapshot() models.ProductRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Apply merges one partial update into the aggregate and notifies the
// consumer. Updates arriving after Stop are discarded; the liveness check and
// the merge sit under the same lock, so a stop racing an in-flight update can
// never apply a late merge. The callback runs after the lock is released, so
// a consumer may call Snapshot or Stop from inside it.
func (s *Session) Apply(update models.PartialUpdate) {
	if update.IsEmpty() {
		return
	}

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.record = merging.Merge(s.record, update)
	snap := s.record.Clone()
	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// emitSnapshot delivers the current aggregate without merging anything. Used
// once at session start so the consumer always sees an initial snapshot,
// even when the initial record carries nothing beyond its id.
func (s *Session) emitSnapshot() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	snap := s.record.Clone()
	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// Stop ends the session: the push subscription is torn down, the poll loop is
// cancelled, and any update still in flight is dropped. Idempotent; safe to
// call from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.alive = false
		s.mu.Unlock()

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.cancel()
		s.wg.Wait()

		s.logger.Debug("Reconciliation session stopped")
	})
}

// pollLoop checks the comparison task on a fixed cadence until it completes,
// errors, or the session stops. Errors are terminal for the loop; the push
// channel and the already-delivered initial record still stand.
//
// The waitgroup is released before the terminal result is applied. Stop only
// waits for the polling itself, so a consumer callback fired by the result is
// free to call Stop; the liveness check in Apply still discards the result if
// the session stopped first.
func (s *Session) pollLoop(ctx context.Context, client Client, taskID string, interval time.Duration) {
	update := s.awaitComparison(ctx, client, taskID, interval)
	s.wg.Done()

	if update != nil {
		s.Apply(*update)
	}
}

func (s *Session) awaitComparison(ctx context.Context, client Client, taskID string, interval time.Duration) *models.PartialUpdate {
	log := s.logger.WithFields(map[string]any{"task_id": taskID})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		update, pending, err := client.PollComparisonResult(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("Comparison poll failed; giving up on task")
			return nil
		}
		if pending {
			continue
		}

		log.Debug("Comparison task completed")
		return update
	}
}
