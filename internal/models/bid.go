// internal/models/bid.go
package models

import "time"

// BidStatus is the lifecycle state of a worker's proposal.
type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
	BidHired    BidStatus = "hired"
	BidClosed   BidStatus = "closed"
)

// IsTerminal reports whether no further transition may leave s.
func (s BidStatus) IsTerminal() bool {
	return s == BidHired || s == BidClosed || s == BidRejected
}

// OpenBidStatuses are the statuses a competing bid is closed from.
var OpenBidStatuses = []BidStatus{BidPending, BidAccepted}

// Bid is a standalone bid record.
type Bid struct {
	ID              string     `json:"id"`
	JobID           string     `json:"jobId"`
	WorkerUserID    string     `json:"workerUserId"`
	WorkerProfileID string     `json:"workerProfileId,omitempty"`
	Amount          float64    `json:"amount"`
	Message         string     `json:"message,omitempty"`
	Status          BidStatus  `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	HiredAt         *time.Time `json:"hiredAt,omitempty"`
	HiredBy         string     `json:"hiredBy,omitempty"`
}

// EmbeddedBid is the legacy copy of a bid stored inside the job document.
// WorkerID may hold either the account id or the worker-profile id,
// depending on which client version wrote it.
type EmbeddedBid struct {
	ID        string     `json:"id"`
	WorkerID  string     `json:"workerId"`
	Amount    float64    `json:"amount"`
	Message   string     `json:"message,omitempty"`
	Status    BidStatus  `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
	HiredAt   *time.Time `json:"hiredAt,omitempty"`
}

// ToBid lifts an embedded entry into the standalone shape.
func (e EmbeddedBid) ToBid(jobID string) Bid {
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = e.CreatedAt
	}
	return Bid{
		ID:           e.ID,
		JobID:        jobID,
		WorkerUserID: e.WorkerID,
		Amount:       e.Amount,
		Message:      e.Message,
		Status:       e.Status,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    updated,
		HiredAt:      e.HiredAt,
	}
}

// Embedded returns the legacy embedded copy of a standalone bid.
func (b Bid) Embedded() EmbeddedBid {
	return EmbeddedBid{
		ID:        b.ID,
		WorkerID:  b.WorkerUserID,
		Amount:    b.Amount,
		Message:   b.Message,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
		HiredAt:   b.HiredAt,
	}
}
