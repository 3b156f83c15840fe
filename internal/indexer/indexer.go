// Package indexer writes bid lifecycle events to Elasticsearch for the
// operations dashboards. Writes are best-effort; callers log failures.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/models"
)

// Event types.
const (
	EventBidSubmitted = "bid_submitted"
	EventBidHired     = "bid_hired"
	EventBidClosed    = "bid_closed"
)

// Event is one indexed document.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"jobId"`
	BidID     string    `json:"bidId"`
	WorkerID  string    `json:"workerId"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"@timestamp"`
}

// DocumentID is stable per bid and event type, so re-indexing overwrites.
func (e Event) DocumentID() string {
	return e.BidID + ":" + e.Type
}

// NewBidEvent builds an event from a bid.
func NewBidEvent(eventType string, bid models.Bid, actorID string, at time.Time) Event {
	return Event{
		Type:      eventType,
		JobID:     bid.JobID,
		BidID:     bid.ID,
		WorkerID:  bid.WorkerUserID,
		Amount:    bid.Amount,
		Status:    string(bid.Status),
		ActorID:   actorID,
		Timestamp: at,
	}
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "indexer", "index": index}),
	}
}

// Index writes one event.
func (i *Indexer) Index(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: ev.DocumentID(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.String())
	}
	return nil
}

// IndexAll writes events one by one and returns the first error after trying
// all of them.
func (i *Indexer) IndexAll(ctx context.Context, events []Event) error {
	var first error
	for _, ev := range events {
		if err := i.Index(ctx, ev); err != nil {
			i.logger.Warn("failed to index event", map[string]interface{}{
				"bidId": ev.BidID,
				"type":  ev.Type,
				"error": err,
			})
			if first == nil {
				first = err
			}
		}
	}
	return first
}
