package bidding

import (
	"time"

	"marketplace-workers/internal/models"
)

var allowedTransitions = map[models.BidStatus][]models.BidStatus{
	models.BidPending:  {models.BidAccepted, models.BidRejected, models.BidHired, models.BidClosed},
	models.BidAccepted: {models.BidRejected, models.BidHired, models.BidClosed},
}

// CanTransition reports whether a bid may move from one status to another.
// Terminal statuses (hired, closed, rejected) have no outgoing edges.
func CanTransition(from, to models.BidStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// HirePlan is the embedded-list rewrite produced for a hire.
type HirePlan struct {
	Embedded []models.EmbeddedBid
	// ClosedIDs lists embedded entries this hire moved to closed.
	ClosedIDs []string
	// WinnerEmbedded is true when the winning bid has an embedded copy.
	WinnerEmbedded bool
}

// PlanEmbeddedHire returns a copy of the embedded list with the winner set to
// hired and every other open entry set to closed. Entries already terminal
// are left untouched, so applying the plan twice changes nothing.
func PlanEmbeddedHire(bids []models.EmbeddedBid, winnerID string, at time.Time) HirePlan {
	plan := HirePlan{Embedded: make([]models.EmbeddedBid, len(bids))}
	for i, b := range bids {
		switch {
		case b.ID == winnerID:
			plan.WinnerEmbedded = true
			if b.Status != models.BidHired {
				hiredAt := at
				b.Status = models.BidHired
				b.HiredAt = &hiredAt
				b.UpdatedAt = at
			}
		case CanTransition(b.Status, models.BidClosed):
			b.Status = models.BidClosed
			b.UpdatedAt = at
			plan.ClosedIDs = append(plan.ClosedIDs, b.ID)
		}
		plan.Embedded[i] = b
	}
	return plan
}

// ClosedBids lifts the embedded entries this plan closed.
func (p HirePlan) ClosedBids(jobID string) []models.Bid {
	if len(p.ClosedIDs) == 0 {
		return nil
	}
	out := make([]models.Bid, 0, len(p.ClosedIDs))
	for _, e := range p.Embedded {
		if containsString(p.ClosedIDs, e.ID) {
			out = append(out, e.ToBid(jobID))
		}
	}
	return out
}

// HiredWorkerFor builds the hire slot written onto the job.
func HiredWorkerFor(worker *models.WorkerProfile, bid models.Bid, at time.Time) *models.HiredWorker {
	return &models.HiredWorker{
		WorkerID:     worker.ID,
		WorkerUserID: worker.UserID,
		WorkerName:   worker.Name,
		BidID:        bid.ID,
		BidAmount:    bid.Amount,
		HiredAt:      at,
	}
}
