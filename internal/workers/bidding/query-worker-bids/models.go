// internal/workers/bidding/query-worker-bids/models.go
package queryworkerbids

import (
	"time"

	"marketplace-workers/internal/models"
)

// Input selects one dashboard bucket of a worker. WorkerRef may be the
// account id or the worker-profile id.
type Input struct {
	WorkerRef string `json:"workerRef"`
	Bucket    string `json:"bucket"`
}

type Output struct {
	WorkerID string    `json:"workerId"`
	Bucket   string    `json:"bucket"`
	Count    int       `json:"count"`
	Bids     []BidView `json:"bids"`
}

type BidView struct {
	ID        string           `json:"id"`
	JobID     string           `json:"jobId"`
	Amount    float64          `json:"amount"`
	Message   string           `json:"message,omitempty"`
	Status    models.BidStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	HiredAt   *time.Time       `json:"hiredAt,omitempty"`
	Job       JobView          `json:"job"`
}

// JobView summarises the job behind a bid. Available is false when the job
// record no longer exists.
type JobView struct {
	ServiceName string           `json:"serviceName"`
	Description string           `json:"description"`
	Schedule    string           `json:"schedule,omitempty"`
	Address     string           `json:"address,omitempty"`
	Budget      float64          `json:"budget"`
	Status      models.JobStatus `json:"status,omitempty"`
	Available   bool             `json:"available"`
}

var unavailableJob = JobView{
	ServiceName: "Job no longer available",
	Description: "This job was removed after your bid was placed.",
	Available:   false,
}
