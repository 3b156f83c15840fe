package bidding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-workers/internal/models"
)

func TestParseBucket(t *testing.T) {
	for _, s := range []string{"active", "hired", "closed"} {
		b, ok := ParseBucket(s)
		assert.True(t, ok, s)
		assert.Equal(t, Bucket(s), b)
	}

	_, ok := ParseBucket("rejected")
	assert.False(t, ok)

	assert.Equal(t, models.BidPending, BucketActive.Status())
	assert.Equal(t, models.BidHired, BucketHired.Status())
	assert.Equal(t, models.BidClosed, BucketClosed.Status())
}

func TestMergeBids_StandaloneWins(t *testing.T) {
	standalone := []models.Bid{
		{ID: "bid-1", Status: models.BidHired, Amount: 500},
		{ID: "bid-2", Status: models.BidClosed, Amount: 700},
	}
	embedded := []models.Bid{
		{ID: "bid-1", Status: models.BidPending, Amount: 500},
		{ID: "bid-3", Status: models.BidClosed, Amount: 800},
	}

	merged := MergeBids(standalone, embedded)

	require.Len(t, merged, 3)
	assert.Equal(t, "bid-1", merged[0].ID)
	assert.Equal(t, models.BidHired, merged[0].Status, "standalone copy wins")
	assert.Equal(t, "bid-2", merged[1].ID)
	assert.Equal(t, "bid-3", merged[2].ID)
}

func TestMergeBids_NoDuplicatesWithinShape(t *testing.T) {
	merged := MergeBids(
		[]models.Bid{{ID: "a"}, {ID: "a"}},
		[]models.Bid{{ID: "b"}, {ID: "b"}, {ID: "a"}},
	)

	ids := make(map[string]int)
	for _, b := range merged {
		ids[b.ID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, ids)
}

func TestEmbeddedForWorker_EitherIdentity(t *testing.T) {
	job := &models.Job{
		ID: "JOB-1",
		Bids: []models.EmbeddedBid{
			{ID: "bid-1", WorkerID: "user-1", Status: models.BidClosed},
			{ID: "bid-2", WorkerID: "profile-1", Status: models.BidClosed},
			{ID: "bid-3", WorkerID: "user-2", Status: models.BidClosed},
			{ID: "bid-4", WorkerID: "user-1", Status: models.BidPending},
		},
	}

	got := EmbeddedForWorker(job, []string{"user-1", "profile-1"}, models.BidClosed)

	require.Len(t, got, 2)
	assert.Equal(t, "bid-1", got[0].ID)
	assert.Equal(t, "bid-2", got[1].ID)
	assert.Equal(t, "JOB-1", got[0].JobID)

	all := EmbeddedForWorker(job, []string{"user-1"})
	assert.Len(t, all, 2)
}

func TestEmbeddedForJob(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	job := &models.Job{ID: "JOB-1", Bids: []models.EmbeddedBid{{ID: "bid-1", CreatedAt: created}}}

	got := EmbeddedForJob(job)

	require.Len(t, got, 1)
	assert.Equal(t, "JOB-1", got[0].JobID)
	assert.Equal(t, created, got[0].UpdatedAt, "updatedAt falls back to createdAt")
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	hired := base.Add(5 * time.Hour)
	bids := []models.Bid{
		{ID: "old", CreatedAt: base},
		{ID: "hired", CreatedAt: base, UpdatedAt: base.Add(time.Hour), HiredAt: &hired},
		{ID: "updated", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)},
	}

	SortNewestFirst(bids)

	assert.Equal(t, "hired", bids[0].ID)
	assert.Equal(t, "updated", bids[1].ID)
	assert.Equal(t, "old", bids[2].ID)
}

func TestSortByAmount(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bids := []models.Bid{
		{ID: "b", Amount: 700, CreatedAt: base},
		{ID: "c", Amount: 500, CreatedAt: base.Add(time.Minute)},
		{ID: "a", Amount: 500, CreatedAt: base},
	}

	SortByAmount(bids)

	assert.Equal(t, []string{"a", "c", "b"}, []string{bids[0].ID, bids[1].ID, bids[2].ID})
}
