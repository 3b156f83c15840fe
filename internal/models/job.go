// internal/models/job.go
package models

import "time"

// JobStatus is the lifecycle state of a posted job request.
type JobStatus string

const (
	JobFindingWorkers JobStatus = "finding_workers"
	JobBidding        JobStatus = "bidding"
	JobAssigned       JobStatus = "assigned"
	JobScheduled      JobStatus = "scheduled"
	JobInProgress     JobStatus = "in_progress"
	JobCompleted      JobStatus = "completed"
	JobCancelled      JobStatus = "cancelled"
	JobBooked         JobStatus = "booked"
	JobHired          JobStatus = "hired"
)

// ClosedJobStatuses are the states in which a job can no longer take a hire.
var ClosedJobStatuses = []JobStatus{
	JobAssigned,
	JobCompleted,
	JobCancelled,
	JobBooked,
	JobHired,
}

// IsClosed reports whether the status blocks new hires and new bids.
func (s JobStatus) IsClosed() bool {
	for _, c := range ClosedJobStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// HiredWorker is the single hire slot on a job.
type HiredWorker struct {
	WorkerID     string    `json:"workerId"`
	WorkerUserID string    `json:"workerUserId"`
	WorkerName   string    `json:"workerName,omitempty"`
	BidID        string    `json:"bidId"`
	BidAmount    float64   `json:"bidAmount"`
	HiredAt      time.Time `json:"hiredAt"`
}

// Job is a client's posted service request.
type Job struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	ServiceName string        `json:"serviceName"`
	Description string        `json:"description"`
	Budget      float64       `json:"budget"`
	Schedule    string        `json:"schedule,omitempty"`
	Address     string        `json:"address,omitempty"`
	Status      JobStatus     `json:"status"`
	Bids        []EmbeddedBid `json:"bids,omitempty"`
	HiredWorker *HiredWorker  `json:"hiredWorker,omitempty"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HasHire reports whether the job already carries a hire. Legacy slots
// written without a bid reference still count.
func (j *Job) HasHire() bool {
	return j.HiredWorker != nil
}

// EmbeddedBid looks up an embedded entry by bid id.
func (j *Job) EmbeddedBid(bidID string) (EmbeddedBid, bool) {
	for _, b := range j.Bids {
		if b.ID == bidID {
			return b, true
		}
	}
	return EmbeddedBid{}, false
}
