package store

import (
	"context"
	"database/sql"

	"marketplace-workers/internal/core/bidding"
	"marketplace-workers/internal/models"
)

// CreateBid inserts a standalone bid and appends its embedded copy to the
// job in one transaction. The job row is locked for the duration, so a hire
// racing with the submission sees a new version and re-reads.
func (s *Store) CreateBid(ctx context.Context, bid models.Bid) (*models.Job, error) {
	var job *models.Job
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		j, err := getJob(ctx, tx, bid.JobID, true)
		if err != nil {
			return err
		}
		if !bidding.CanSubmitBid(bidding.NewJobStateContext(j)).Allowed {
			return ErrJobClosed
		}
		for _, e := range j.Bids {
			if e.WorkerID == bid.WorkerUserID || (bid.WorkerProfileID != "" && e.WorkerID == bid.WorkerProfileID) {
				return ErrDuplicate
			}
		}
		if err := insertBid(ctx, tx, bid); err != nil {
			return err
		}
		if err := appendEmbeddedBid(ctx, tx, j, bid); err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CommitHire writes a hire in one transaction:
//  1. the conditional job update (embedded list, hire slot, status hired)
//  2. the standalone winner to hired; no row is fine for embedded-only bids
//  3. every other open standalone bid of the job to closed
//
// ErrJobChanged means step 1 matched nothing and nothing was written.
func (s *Store) CommitHire(ctx context.Context, cmd HireCommand) (*HireResult, error) {
	plan := bidding.PlanEmbeddedHire(cmd.Job.Bids, cmd.Bid.ID, cmd.At)
	hired := bidding.HiredWorkerFor(cmd.Worker, cmd.Bid, cmd.At)

	var standaloneClosed []models.Bid
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := hireJobIfOpen(ctx, tx, cmd.Job, plan.Embedded, hired, cmd.At)
		if err != nil {
			return err
		}
		if !ok {
			return ErrJobChanged
		}
		if _, err := transitionBid(ctx, tx, cmd.Bid.ID, models.OpenBidStatuses, models.BidHired, cmd.At, cmd.HirerID); err != nil {
			return err
		}
		standaloneClosed, err = closeOtherBids(ctx, tx, cmd.Job.ID, cmd.Bid.ID, cmd.At)
		return err
	})
	if err != nil {
		return nil, err
	}

	return buildHireResult(cmd, plan, hired, standaloneClosed), nil
}

func buildHireResult(cmd HireCommand, plan bidding.HirePlan, hired *models.HiredWorker, standaloneClosed []models.Bid) *HireResult {
	job := *cmd.Job
	job.Bids = plan.Embedded
	job.HiredWorker = hired
	job.Status = models.JobHired
	job.Version++
	job.UpdatedAt = cmd.At

	winner := cmd.Bid
	hiredAt := cmd.At
	winner.Status = models.BidHired
	winner.HiredAt = &hiredAt
	winner.HiredBy = cmd.HirerID
	winner.UpdatedAt = cmd.At

	return &HireResult{
		Job:    &job,
		Bid:    winner,
		Closed: bidding.MergeBids(standaloneClosed, plan.ClosedBids(job.ID)),
	}
}
