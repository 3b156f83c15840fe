package bidding

import (
	"sort"
	"time"

	"marketplace-workers/internal/models"
)

// Bucket selects which of a worker's bids a dashboard query returns.
type Bucket string

const (
	BucketActive Bucket = "active"
	BucketHired  Bucket = "hired"
	BucketClosed Bucket = "closed"
)

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, bool) {
	switch Bucket(s) {
	case BucketActive, BucketHired, BucketClosed:
		return Bucket(s), true
	}
	return "", false
}

// Status returns the bid status a bucket selects.
func (b Bucket) Status() models.BidStatus {
	switch b {
	case BucketHired:
		return models.BidHired
	case BucketClosed:
		return models.BidClosed
	default:
		return models.BidPending
	}
}

// MergeBids unions standalone and embedded bids by id. When both shapes hold
// the same bid the standalone record wins. The result keeps standalone order
// first, then embedded-only entries in their original order.
func MergeBids(standalone, embedded []models.Bid) []models.Bid {
	seen := make(map[string]struct{}, len(standalone)+len(embedded))
	out := make([]models.Bid, 0, len(standalone)+len(embedded))
	for _, b := range standalone {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	for _, b := range embedded {
		if _, ok := seen[b.ID]; ok {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	return out
}

// EmbeddedForWorker lifts the embedded entries of job that belong to any of
// ids and carry one of the given statuses.
func EmbeddedForWorker(job *models.Job, ids []string, statuses ...models.BidStatus) []models.Bid {
	var out []models.Bid
	for _, e := range job.Bids {
		if !containsString(ids, e.WorkerID) {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, e.Status) {
			continue
		}
		out = append(out, e.ToBid(job.ID))
	}
	return out
}

// EmbeddedForJob lifts every embedded entry of job.
func EmbeddedForJob(job *models.Job) []models.Bid {
	out := make([]models.Bid, 0, len(job.Bids))
	for _, e := range job.Bids {
		out = append(out, e.ToBid(job.ID))
	}
	return out
}

// SortTime is the timestamp a bid is ordered by on dashboards: hiredAt when
// set, else updatedAt, else createdAt.
func SortTime(b models.Bid) time.Time {
	if b.HiredAt != nil && !b.HiredAt.IsZero() {
		return *b.HiredAt
	}
	if !b.UpdatedAt.IsZero() {
		return b.UpdatedAt
	}
	return b.CreatedAt
}

// SortNewestFirst orders bids by SortTime descending, ties by id.
func SortNewestFirst(bids []models.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		ti, tj := SortTime(bids[i]), SortTime(bids[j])
		if ti.Equal(tj) {
			return bids[i].ID < bids[j].ID
		}
		return ti.After(tj)
	})
}

// SortByAmount orders bids cheapest first, ties oldest first.
func SortByAmount(bids []models.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount < bids[j].Amount
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsStatus(list []models.BidStatus, s models.BidStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
