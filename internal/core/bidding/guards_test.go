package bidding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace-workers/internal/models"
)

func TestCanHire(t *testing.T) {
	tests := []struct {
		name        string
		ctx         JobStateContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "open job in finding_workers",
			ctx:         JobStateContext{JobID: "JOB-1", Status: models.JobFindingWorkers},
			wantAllowed: true,
		},
		{
			name:        "open job in bidding",
			ctx:         JobStateContext{JobID: "JOB-1", Status: models.JobBidding},
			wantAllowed: true,
		},
		{
			name:        "scheduled job without hire is still hireable",
			ctx:         JobStateContext{JobID: "JOB-1", Status: models.JobScheduled},
			wantAllowed: true,
		},
		{
			name:        "hire slot already filled",
			ctx:         JobStateContext{JobID: "JOB-1", Status: models.JobBidding, HasHire: true, HiredName: "Ravi"},
			wantAllowed: false,
			wantReason:  "Job JOB-1 has already been assigned to Ravi",
		},
		{
			name:        "hire slot filled without a name",
			ctx:         JobStateContext{JobID: "JOB-1", Status: models.JobHired, HasHire: true},
			wantAllowed: false,
			wantReason:  "Job JOB-1 has already been assigned",
		},
		{
			name:        "cancelled job",
			ctx:         JobStateContext{JobID: "JOB-2", Status: models.JobCancelled},
			wantAllowed: false,
			wantReason:  "Job JOB-2 is cancelled and can no longer be assigned",
		},
		{
			name:        "booked job",
			ctx:         JobStateContext{JobID: "JOB-3", Status: models.JobBooked},
			wantAllowed: false,
			wantReason:  "Job JOB-3 is booked and can no longer be assigned",
		},
		{
			name:        "assigned job",
			ctx:         JobStateContext{JobID: "JOB-4", Status: models.JobAssigned},
			wantAllowed: false,
			wantReason:  "Job JOB-4 is assigned and can no longer be assigned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanHire(tt.ctx)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			if !tt.wantAllowed {
				assert.Equal(t, tt.wantReason, result.Reason)
				assert.EqualError(t, result.Error(), tt.wantReason)
			} else {
				assert.NoError(t, result.Error())
			}
		})
	}
}

func TestNewJobStateContext(t *testing.T) {
	job := &models.Job{
		ID:     "JOB-1",
		Status: models.JobHired,
		HiredWorker: &models.HiredWorker{
			WorkerID:   "wp-1",
			WorkerName: "Ravi",
			BidID:      "bid-1",
		},
	}

	ctx := NewJobStateContext(job)
	assert.True(t, ctx.HasHire)
	assert.Equal(t, "bid-1", ctx.HiredBid)
	assert.Equal(t, "Ravi", ctx.HiredName)
	assert.False(t, CanHire(ctx).Allowed)
}

func TestCanSubmitBid(t *testing.T) {
	assert.True(t, CanSubmitBid(JobStateContext{JobID: "JOB-1", Status: models.JobBidding}).Allowed)

	res := CanSubmitBid(JobStateContext{JobID: "JOB-1", Status: models.JobCompleted})
	assert.False(t, res.Allowed)
	assert.Equal(t, "Job JOB-1 is no longer accepting bids", res.Reason)
}

func TestValidateSubmission(t *testing.T) {
	tests := []struct {
		name        string
		ctx         BidSubmissionContext
		wantAllowed bool
		wantReason  string
	}{
		{"valid", BidSubmissionContext{JobID: "J", WorkerID: "W", Amount: 500}, true, ""},
		{"missing job", BidSubmissionContext{WorkerID: "W", Amount: 500}, false, "jobId is required"},
		{"missing worker", BidSubmissionContext{JobID: "J", Amount: 500}, false, "workerId is required"},
		{"zero amount", BidSubmissionContext{JobID: "J", WorkerID: "W"}, false, "amount must be greater than 0, got 0"},
		{"negative amount", BidSubmissionContext{JobID: "J", WorkerID: "W", Amount: -5}, false, "amount must be greater than 0, got -5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSubmission(tt.ctx)
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}
