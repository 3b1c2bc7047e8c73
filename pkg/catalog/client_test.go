package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozydot/findr/pkg/httpclient"
	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/reconcile"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := testLogger()
	return NewClient(server.URL, httpclient.NewClient(httpclient.DefaultConfig(), logger), logger)
}

func TestFetchProduct(t *testing.T) {
	record := models.ProductRecord{
		ID:       "p1",
		Name:     "Apple iPhone 15 Pro",
		Currency: "AED",
		Retailers: []models.RetailerOffer{
			{RetailerID: "r1", Name: "Amazon.ae", CurrentPrice: 4399, InStock: true},
		},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/v1/products/p1":
			require.NoError(t, json.NewEncoder(w).Encode(record))
		case "/api/v1/products/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	t.Run("found", func(t *testing.T) {
		got, err := client.FetchProduct(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, record, *got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.FetchProduct(context.Background(), "missing")
		assert.ErrorIs(t, err, reconcile.ErrNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		_, err := client.FetchProduct(context.Background(), "boom")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, reconcile.ErrNotFound)
	})
}

func TestRequestComparison(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/products/p1/compare", r.URL.Path)
		_, _ = w.Write([]byte("task-42\n"))
	}))

	taskID, err := client.RequestComparison(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "task-42", taskID)
}

func TestRequestComparison_EmptyTaskID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := client.RequestComparison(context.Background(), "p1")
	assert.Error(t, err)
}

func TestPollComparisonResult(t *testing.T) {
	update := models.PartialUpdate{
		Retailers: []models.RetailerOffer{
			{RetailerID: "r2", Name: "Noon", CurrentPrice: 4450, InStock: true},
		},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products/comparison/pending-task":
			w.WriteHeader(http.StatusAccepted)
		case "/api/v1/products/comparison/done-task":
			require.NoError(t, json.NewEncoder(w).Encode(update))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	t.Run("pending", func(t *testing.T) {
		got, pending, err := client.PollComparisonResult(context.Background(), "pending-task")
		require.NoError(t, err)
		assert.True(t, pending)
		assert.Nil(t, got)
	})

	t.Run("completed", func(t *testing.T) {
		got, pending, err := client.PollComparisonResult(context.Background(), "done-task")
		require.NoError(t, err)
		assert.False(t, pending)
		require.NotNil(t, got)
		assert.Equal(t, update.Retailers, got.Retailers)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, _, err := client.PollComparisonResult(context.Background(), "gone")
		assert.Error(t, err)
	})
}

func TestFetchCatalog(t *testing.T) {
	summaries := []models.ProductSummary{
		{ID: "p1", Name: "Apple iPhone 15 Pro"},
		{ID: "p2", Name: "Samsung Galaxy S24 Ultra"},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products":
			assert.Empty(t, r.URL.RawQuery)
		case "/api/v1/products/search":
			assert.Equal(t, "phones", r.URL.Query().Get("q"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		require.NoError(t, json.NewEncoder(w).Encode(summaries))
	}))

	t.Run("with query", func(t *testing.T) {
		got, err := client.FetchCatalog(context.Background(), "phones")
		require.NoError(t, err)
		assert.Equal(t, summaries, got)
	})

	t.Run("full listing", func(t *testing.T) {
		got, err := client.FetchCatalog(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, summaries, got)
	})
}

func TestPing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	assert.NoError(t, client.Ping(context.Background()))

	down := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	assert.Error(t, down.Ping(context.Background()))
}
