// internal/workers/bidding/hire-bid/models.go
package hirebid

import "marketplace-workers/internal/models"

// Input identifies the bid to hire. JobID may be empty when the bid has a
// standalone record; it is then taken from that record.
type Input struct {
	JobID   string `json:"jobId"`
	BidID   string `json:"bidId"`
	HirerID string `json:"hirerId"`
}

type Output struct {
	Job        JobSummary `json:"job"`
	Bid        BidSummary `json:"bid"`
	ClosedBids int        `json:"closedBids"`
}

type JobSummary struct {
	ID          string              `json:"id"`
	Status      models.JobStatus    `json:"status"`
	HiredWorker *models.HiredWorker `json:"hiredWorker"`
}

type BidSummary struct {
	ID     string           `json:"id"`
	Status models.BidStatus `json:"status"`
}
