// internal/workers/bidding/list-job-bids/models.go
package listjobbids

import (
	"time"

	"marketplace-workers/internal/models"
)

type Input struct {
	JobID string `json:"jobId"`
}

type Output struct {
	JobID     string           `json:"jobId"`
	JobStatus models.JobStatus `json:"jobStatus"`
	Count     int              `json:"count"`
	Bids      []BidView        `json:"bids"`
}

// BidView is a bid as the job owner sees it when comparing offers.
type BidView struct {
	ID        string           `json:"id"`
	Amount    float64          `json:"amount"`
	Message   string           `json:"message,omitempty"`
	Status    models.BidStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	HiredAt   *time.Time       `json:"hiredAt,omitempty"`
	Worker    WorkerSummary    `json:"worker"`
}

type WorkerSummary struct {
	ID     string  `json:"id"`
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone,omitempty"`
	Rating float64 `json:"rating"`
}
