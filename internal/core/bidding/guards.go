// Package bidding contains the pure business rules for bids and hires.
// No I/O happens here; callers pre-fetch state and pass it in.
package bidding

import (
	"fmt"

	"marketplace-workers/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// JobStateContext carries the job fields the hire and bid guards look at.
type JobStateContext struct {
	JobID     string
	Status    models.JobStatus
	HasHire   bool
	HiredBid  string
	HiredName string
}

// NewJobStateContext builds the guard context from a loaded job.
func NewJobStateContext(job *models.Job) JobStateContext {
	ctx := JobStateContext{
		JobID:   job.ID,
		Status:  job.Status,
		HasHire: job.HasHire(),
	}
	if job.HiredWorker != nil {
		ctx.HiredBid = job.HiredWorker.BidID
		ctx.HiredName = job.HiredWorker.WorkerName
	}
	return ctx
}

// CanHire evaluates whether a job can still take a hire.
// Rule: no hired worker yet and status not closed (assigned, hired, booked,
// completed, cancelled).
func CanHire(ctx JobStateContext) GuardResult {
	if ctx.HasHire {
		reason := fmt.Sprintf("Job %s has already been assigned", ctx.JobID)
		if ctx.HiredName != "" {
			reason = fmt.Sprintf("Job %s has already been assigned to %s", ctx.JobID, ctx.HiredName)
		}
		return GuardResult{Allowed: false, Reason: reason}
	}
	if ctx.Status.IsClosed() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Job %s is %s and can no longer be assigned", ctx.JobID, ctx.Status),
		}
	}
	return GuardResult{Allowed: true}
}

// CanSubmitBid evaluates whether a job accepts new bids.
// Rule: same as CanHire; once a job is filled it stops taking proposals.
func CanSubmitBid(ctx JobStateContext) GuardResult {
	res := CanHire(ctx)
	if !res.Allowed {
		res.Reason = fmt.Sprintf("Job %s is no longer accepting bids", ctx.JobID)
	}
	return res
}

// BidSubmissionContext carries the submitted values checked before any I/O.
type BidSubmissionContext struct {
	JobID    string
	WorkerID string
	Amount   float64
}

// ValidateSubmission evaluates the required fields of a new bid.
func ValidateSubmission(ctx BidSubmissionContext) GuardResult {
	switch {
	case ctx.JobID == "":
		return GuardResult{Allowed: false, Reason: "jobId is required"}
	case ctx.WorkerID == "":
		return GuardResult{Allowed: false, Reason: "workerId is required"}
	case ctx.Amount <= 0:
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("amount must be greater than 0, got %v", ctx.Amount)}
	}
	return GuardResult{Allowed: true}
}
