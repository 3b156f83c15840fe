package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/models"
)

type recorded struct {
	method string
	path   string
	doc    Event
}

func fakeCluster(t *testing.T, status int) (*elasticsearch.Client, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, doc: ev})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{srv.URL},
		MaxRetries: 0,
	})
	require.NoError(t, err)

	return client, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestIndex_WritesDocument(t *testing.T) {
	client, requests := fakeCluster(t, http.StatusCreated)
	idx := New(client, "bid-events", logger.NewTestLogger(t))

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	bid := models.Bid{ID: "bid-a", JobID: "job-1", WorkerUserID: "user-a", Amount: 500, Status: models.BidHired}

	require.NoError(t, idx.Index(context.Background(), NewBidEvent(EventBidHired, bid, "owner-1", at)))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.True(t, strings.HasPrefix(reqs[0].path, "/bid-events/_doc/bid-a"), reqs[0].path)
	assert.Equal(t, EventBidHired, reqs[0].doc.Type)
	assert.Equal(t, "owner-1", reqs[0].doc.ActorID)
	assert.Equal(t, 500.0, reqs[0].doc.Amount)
	assert.True(t, at.Equal(reqs[0].doc.Timestamp))
}

func TestIndex_ClusterError(t *testing.T) {
	client, _ := fakeCluster(t, http.StatusServiceUnavailable)
	idx := New(client, "bid-events", logger.NewTestLogger(t))

	err := idx.Index(context.Background(), Event{Type: EventBidClosed, BidID: "bid-b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index request failed")
}

func TestIndexAll_TriesEveryEvent(t *testing.T) {
	client, requests := fakeCluster(t, http.StatusInternalServerError)
	idx := New(client, "bid-events", logger.NewTestLogger(t))

	err := idx.IndexAll(context.Background(), []Event{
		{Type: EventBidClosed, BidID: "bid-b"},
		{Type: EventBidClosed, BidID: "bid-c"},
	})
	assert.Error(t, err)
	assert.Len(t, requests(), 2)
}

func TestDocumentID(t *testing.T) {
	ev := Event{Type: EventBidSubmitted, BidID: "bid-z"}
	assert.Equal(t, "bid-z:bid_submitted", ev.DocumentID())
}
