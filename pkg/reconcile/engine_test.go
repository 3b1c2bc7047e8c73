package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozydot/findr/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

type fakeClient struct {
	mu sync.Mutex

	fetchRecord *models.ProductRecord
	fetchErr    error

	compareTaskID string
	compareErr    error

	pollResults []pollResult
	pollCalls   int
}

type pollResult struct {
	update  *models.PartialUpdate
	pending bool
	err     error
}

func (c *fakeClient) FetchProduct(_ context.Context, _ string) (*models.ProductRecord, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	rec := c.fetchRecord.Clone()
	return &rec, nil
}

func (c *fakeClient) RequestComparison(_ context.Context, _ string) (string, error) {
	return c.compareTaskID, c.compareErr
}

func (c *fakeClient) PollComparisonResult(_ context.Context, _ string) (*models.PartialUpdate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollCalls >= len(c.pollResults) {
		return nil, true, nil
	}
	r := c.pollResults[c.pollCalls]
	c.pollCalls++
	return r.update, r.pending, r.err
}

func (c *fakeClient) polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCalls
}

type fakeSubscriber struct {
	mu           sync.Mutex
	handler      func(models.PartialUpdate)
	subscribeErr error
	unsubscribed int
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ string, handler func(models.PartialUpdate)) (func(), error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.unsubscribed++
		s.handler = nil
		s.mu.Unlock()
	}, nil
}

func (s *fakeSubscriber) push(update models.PartialUpdate) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(update)
	}
}

type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []models.ProductRecord
}

func (r *snapshotRecorder) record(rec models.ProductRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, rec)
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *snapshotRecorder) last() models.ProductRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func richRecord() *models.ProductRecord {
	return &models.ProductRecord{
		ID:          "p1",
		Name:        "Apple iPhone 15 Pro",
		Description: "6.1-inch display, A17 Pro chip",
		Rating:      4.7,
		Reviews:     312,
		Currency:    "AED",
		Retailers: []models.RetailerOffer{
			{RetailerID: "r1", Name: "Amazon.ae", CurrentPrice: 4399, InStock: true},
			{RetailerID: "r2", Name: "Noon", CurrentPrice: 4450, InStock: true},
		},
	}
}

func TestStart_RequiresProductID(t *testing.T) {
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, nil)

	_, err := engine.Start(context.Background(), "", nil)

	assert.Error(t, err)
}

func TestStart_NotFound(t *testing.T) {
	engine := NewEngine(testLogger(), &fakeClient{fetchErr: ErrNotFound}, nil)

	_, err := engine.Start(context.Background(), "missing", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStart_FetchErrorPropagates(t *testing.T) {
	upstream := errors.New("upstream down")
	engine := NewEngine(testLogger(), &fakeClient{fetchErr: upstream}, nil)

	_, err := engine.Start(context.Background(), "p1", nil)

	assert.ErrorIs(t, err, upstream)
}

func TestStart_InitialRecordDeliveredThroughMergePath(t *testing.T) {
	rec := &snapshotRecorder{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, nil)

	session, err := engine.Start(context.Background(), "p1", rec.record)
	require.NoError(t, err)
	defer session.Stop()

	require.Equal(t, 1, rec.count())
	got := rec.last()
	assert.Equal(t, "Apple iPhone 15 Pro", got.Name)
	assert.Len(t, got.Retailers, 2)

	snap := session.Snapshot()
	assert.Equal(t, got, snap)
}

func TestStart_SubscribeFailureIsNonFatal(t *testing.T) {
	sub := &fakeSubscriber{subscribeErr: errors.New("broker unavailable")}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, sub)

	session, err := engine.Start(context.Background(), "p1", nil)
	require.NoError(t, err)
	session.Stop()
}

func TestSession_PushUpdatesMerge(t *testing.T) {
	rec := &snapshotRecorder{}
	sub := &fakeSubscriber{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, sub)

	session, err := engine.Start(context.Background(), "p1", rec.record)
	require.NoError(t, err)
	defer session.Stop()

	sub.push(models.PartialUpdate{
		Rating: f64Ptr(4.8),
		Retailers: []models.RetailerOffer{
			{RetailerID: "r3", Name: "Sharaf DG", CurrentPrice: 4299, InStock: true},
		},
	})

	got := session.Snapshot()
	assert.Equal(t, 4.8, got.Rating)
	assert.Len(t, got.Retailers, 3)
	assert.Equal(t, "Apple iPhone 15 Pro", got.Name, "push update must not erase fields it omits")
}

func TestSession_UpdatesAfterStopAreDiscarded(t *testing.T) {
	rec := &snapshotRecorder{}
	sub := &fakeSubscriber{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, sub)

	session, err := engine.Start(context.Background(), "p1", rec.record)
	require.NoError(t, err)

	// Capture the handler before Stop tears the subscription down, then
	// deliver through it directly: this is the in-flight update racing a
	// concurrent stop.
	sub.mu.Lock()
	handler := sub.handler
	sub.mu.Unlock()

	session.Stop()
	before := rec.count()

	handler(models.PartialUpdate{Name: strPtr("stale write")})

	assert.Equal(t, before, rec.count(), "no callback may fire after Stop")
	assert.Equal(t, 1, sub.unsubscribed)
}

func TestStart_IDOnlyRecordStillDeliversInitialSnapshot(t *testing.T) {
	rec := &snapshotRecorder{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: &models.ProductRecord{ID: "p1"}}, nil)

	session, err := engine.Start(context.Background(), "p1", rec.record)
	require.NoError(t, err)
	defer session.Stop()

	require.Equal(t, 1, rec.count(), "a bare record still yields the first snapshot")
	assert.Equal(t, "p1", rec.last().ID)
	assert.Empty(t, rec.last().Name)
}

func TestSession_CallbackMayCallBackIntoSession(t *testing.T) {
	sub := &fakeSubscriber{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, sub)

	sessionCh := make(chan *Session, 1)
	session, err := engine.Start(context.Background(), "p1", func(got models.ProductRecord) {
		if got.Rating != 4.9 {
			return // initial snapshot, session handle not available yet
		}
		s := <-sessionCh
		snap := s.Snapshot()
		assert.Equal(t, 4.9, snap.Rating)
		s.Stop()
	})
	require.NoError(t, err)
	sessionCh <- session

	finished := make(chan struct{})
	go func() {
		sub.push(models.PartialUpdate{Rating: f64Ptr(4.9)})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("callback calling Snapshot/Stop deadlocked")
	}
	assert.Equal(t, 1, sub.unsubscribed)
}

func TestSession_StopFromComparisonCallback(t *testing.T) {
	client := &fakeClient{
		fetchRecord:   sparseRecord(),
		compareTaskID: "task-1",
		pollResults: []pollResult{
			{update: &models.PartialUpdate{Description: strPtr("Aggregated comparison")}},
		},
	}
	engine := NewEngine(testLogger(), client, nil).WithPollInterval(5 * time.Millisecond)

	sessionCh := make(chan *Session, 1)
	stopped := make(chan struct{})
	session, err := engine.Start(context.Background(), "p1", func(got models.ProductRecord) {
		if got.Description == "" {
			return
		}
		s := <-sessionCh
		s.Stop()
		close(stopped)
	})
	require.NoError(t, err)
	sessionCh <- session

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("callback calling Stop from the comparison result deadlocked")
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	sub := &fakeSubscriber{}
	engine := NewEngine(testLogger(), &fakeClient{fetchRecord: richRecord()}, sub)

	session, err := engine.Start(context.Background(), "p1", nil)
	require.NoError(t, err)

	session.Stop()
	session.Stop()
	session.Stop()

	assert.Equal(t, 1, sub.unsubscribed)
}

func sparseRecord() *models.ProductRecord {
	return &models.ProductRecord{
		ID:   "p1",
		Name: "Apple iPhone 15 Pro",
		Retailers: []models.RetailerOffer{
			{RetailerID: "r1", Name: "Amazon.ae", CurrentPrice: 4399, InStock: true},
		},
	}
}

func TestPollLoop_DeliversComparisonResult(t *testing.T) {
	client := &fakeClient{
		fetchRecord:   sparseRecord(),
		compareTaskID: "task-1",
		pollResults: []pollResult{
			{pending: true},
			{update: &models.PartialUpdate{
				Description: strPtr("6.1-inch display, A17 Pro chip"),
				Retailers: []models.RetailerOffer{
					{RetailerID: "r2", Name: "Noon", CurrentPrice: 4450, InStock: true},
				},
			}},
		},
	}
	rec := &snapshotRecorder{}
	engine := NewEngine(testLogger(), client, nil).WithPollInterval(5 * time.Millisecond)

	session, err := engine.Start(context.Background(), "p1", rec.record)
	require.NoError(t, err)
	defer session.Stop()

	require.Eventually(t, func() bool {
		return session.Snapshot().Description != ""
	}, time.Second, 5*time.Millisecond)

	got := session.Snapshot()
	assert.Len(t, got.Retailers, 2)
	assert.Equal(t, "Apple iPhone 15 Pro", got.Name)
}

func TestPollLoop_GivesUpOnError(t *testing.T) {
	client := &fakeClient{
		fetchRecord:   sparseRecord(),
		compareTaskID: "task-1",
		pollResults: []pollResult{
			{err: errors.New("task gone")},
			{pending: true}, // must never be reached
		},
	}
	engine := NewEngine(testLogger(), client, nil).WithPollInterval(5 * time.Millisecond)

	session, err := engine.Start(context.Background(), "p1", nil)
	require.NoError(t, err)
	defer session.Stop()

	require.Eventually(t, func() bool {
		return client.polls() == 1
	}, time.Second, 5*time.Millisecond)

	// The loop is terminal after an error: no further polls.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, client.polls())
}

func TestPollLoop_StopCancelsPolling(t *testing.T) {
	client := &fakeClient{
		fetchRecord:   sparseRecord(),
		compareTaskID: "task-1",
	}
	engine := NewEngine(testLogger(), client, nil).WithPollInterval(5 * time.Millisecond)

	session, err := engine.Start(context.Background(), "p1", nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	session.Stop()
	polled := client.polls()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, polled, client.polls(), "polling must halt once the session stops")
}

func TestNeedsComparison(t *testing.T) {
	tests := []struct {
		name   string
		record *models.ProductRecord
		want   bool
	}{
		{"missing description", sparseRecord(), true},
		{"single retailer", &models.ProductRecord{ID: "p1", Description: "full", Retailers: []models.RetailerOffer{{RetailerID: "r1"}}}, true},
		{"rich record", richRecord(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsComparison(tt.record))
		})
	}
}
