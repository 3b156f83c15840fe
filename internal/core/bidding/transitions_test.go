package bidding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-workers/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.BidStatus
		want     bool
	}{
		{models.BidPending, models.BidHired, true},
		{models.BidPending, models.BidClosed, true},
		{models.BidPending, models.BidAccepted, true},
		{models.BidAccepted, models.BidHired, true},
		{models.BidAccepted, models.BidClosed, true},
		{models.BidHired, models.BidClosed, false},
		{models.BidClosed, models.BidHired, false},
		{models.BidRejected, models.BidClosed, false},
		{models.BidHired, models.BidHired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPlanEmbeddedHire(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	at := created.Add(2 * time.Hour)
	bids := []models.EmbeddedBid{
		{ID: "bid-a", WorkerID: "u-a", Amount: 500, Status: models.BidPending, CreatedAt: created},
		{ID: "bid-b", WorkerID: "u-b", Amount: 700, Status: models.BidPending, CreatedAt: created},
		{ID: "bid-c", WorkerID: "u-c", Amount: 650, Status: models.BidRejected, CreatedAt: created},
		{ID: "bid-d", WorkerID: "u-d", Amount: 900, Status: models.BidAccepted, CreatedAt: created},
	}

	plan := PlanEmbeddedHire(bids, "bid-a", at)

	require.Len(t, plan.Embedded, 4)
	assert.True(t, plan.WinnerEmbedded)
	assert.Equal(t, []string{"bid-b", "bid-d"}, plan.ClosedIDs)

	assert.Equal(t, models.BidHired, plan.Embedded[0].Status)
	require.NotNil(t, plan.Embedded[0].HiredAt)
	assert.Equal(t, at, *plan.Embedded[0].HiredAt)
	assert.Equal(t, models.BidClosed, plan.Embedded[1].Status)
	assert.Equal(t, models.BidRejected, plan.Embedded[2].Status, "terminal entries are untouched")
	assert.Equal(t, models.BidClosed, plan.Embedded[3].Status)

	// input slice is not mutated
	assert.Equal(t, models.BidPending, bids[0].Status)
	assert.Equal(t, models.BidPending, bids[1].Status)
}

func TestPlanEmbeddedHire_Idempotent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bids := []models.EmbeddedBid{
		{ID: "bid-a", Status: models.BidPending},
		{ID: "bid-b", Status: models.BidPending},
	}

	first := PlanEmbeddedHire(bids, "bid-a", at)
	second := PlanEmbeddedHire(first.Embedded, "bid-a", at.Add(time.Minute))

	assert.Equal(t, first.Embedded, second.Embedded)
	assert.Empty(t, second.ClosedIDs)
}

func TestPlanEmbeddedHire_WinnerOnlyStandalone(t *testing.T) {
	bids := []models.EmbeddedBid{{ID: "bid-b", Status: models.BidPending}}

	plan := PlanEmbeddedHire(bids, "bid-x", time.Now())

	assert.False(t, plan.WinnerEmbedded)
	assert.Equal(t, []string{"bid-b"}, plan.ClosedIDs)
}

func TestHiredWorkerFor(t *testing.T) {
	at := time.Now().UTC()
	worker := &models.WorkerProfile{ID: "wp-1", UserID: "u-1", Name: "Ravi"}
	bid := models.Bid{ID: "bid-1", Amount: 500}

	hw := HiredWorkerFor(worker, bid, at)

	assert.Equal(t, "wp-1", hw.WorkerID)
	assert.Equal(t, "u-1", hw.WorkerUserID)
	assert.Equal(t, "Ravi", hw.WorkerName)
	assert.Equal(t, "bid-1", hw.BidID)
	assert.Equal(t, 500.0, hw.BidAmount)
	assert.Equal(t, at, hw.HiredAt)
}
