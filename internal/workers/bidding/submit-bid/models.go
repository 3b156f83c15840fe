// internal/workers/bidding/submit-bid/models.go
package submitbid

import "marketplace-workers/internal/models"

// Input is a worker's proposal. WorkerID may be the account id or the
// worker-profile id.
type Input struct {
	JobID    string  `json:"jobId"`
	WorkerID string  `json:"workerId"`
	Amount   float64 `json:"amount"`
	Message  string  `json:"message"`
}

type Output struct {
	Bid       models.Bid       `json:"bid"`
	JobStatus models.JobStatus `json:"jobStatus"`
}
