// internal/workers/bidding/query-worker-bids/handler.go
package queryworkerbids

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/validation"
	"marketplace-workers/internal/core/bidding"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/store"
)

const (
	TaskType = "query-worker-bids"
)

type Handler struct {
	config    *Config
	repo      store.Repository
	validator *validation.Validator
	jobs      *apperrors.JobResponder
	logger    logger.Logger
}

func NewHandler(config *Config, repo store.Repository, v *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		repo:      repo,
		validator: v,
		jobs:      apperrors.NewJobResponder(l),
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.jobs.Fail(ctx, client, job, apperrors.NewBidValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.jobs.Fail(ctx, client, job, err)
		return
	}

	h.jobs.Complete(ctx, client, job, output)
}

// Execute returns one bucket of the worker's bids, newest first. The worker
// is resolved once and both of its identifiers are matched in both stores,
// so an account id and a profile id give the same answer.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.validator != nil {
		if err := h.validator.Check(TaskType, input); err != nil {
			return nil, err
		}
	}
	bucket, ok := bidding.ParseBucket(input.Bucket)
	if !ok {
		return nil, apperrors.NewBidValidationFailedError(fmt.Sprintf("unknown bucket %q", input.Bucket))
	}

	w, err := h.repo.ResolveWorker(ctx, input.WorkerRef)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewWorkerProfileNotFoundError(input.WorkerRef)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("resolve worker", err)
	}
	ids := w.Identifiers()

	var views []BidView
	if bucket == bidding.BucketActive {
		views, err = h.active(ctx, ids)
	} else {
		views, err = h.settled(ctx, ids, bucket.Status())
	}
	if err != nil {
		return nil, err
	}

	h.logger.Debug("worker bids queried", map[string]interface{}{
		"workerId": w.ID,
		"bucket":   string(bucket),
		"count":    len(views),
	})

	return &Output{
		WorkerID: w.ID,
		Bucket:   string(bucket),
		Count:    len(views),
		Bids:     views,
	}, nil
}

// active lists pending bids on jobs that are still open. The embedded lists
// are only consulted when the worker has no pending standalone record at all.
func (h *Handler) active(ctx context.Context, ids []string) ([]BidView, error) {
	standalone, err := h.repo.ListBidsByWorker(ctx, ids, models.BidPending)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list bids by worker", err)
	}
	jobs, err := h.repo.GetJobs(ctx, jobIDs(standalone))
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get jobs", err)
	}

	bids := make([]models.Bid, 0, len(standalone))
	for _, b := range standalone {
		if job, ok := jobs[b.JobID]; ok && isOpen(job) {
			bids = append(bids, b)
		}
	}

	if len(standalone) == 0 {
		embeddedJobs, err := h.repo.ListJobsWithEmbeddedBids(ctx, ids, models.BidPending)
		if err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("list jobs with embedded bids", err)
		}
		for _, job := range embeddedJobs {
			if !isOpen(job) {
				continue
			}
			jobs[job.ID] = job
			bids = append(bids, bidding.EmbeddedForWorker(job, ids, models.BidPending)...)
		}
		bids = bidding.MergeBids(nil, bids)
	}

	bidding.SortNewestFirst(bids)
	return toViews(bids, jobs), nil
}

// settled lists hired or closed bids from both shapes. Bids whose job is gone
// are kept with a placeholder job summary.
func (h *Handler) settled(ctx context.Context, ids []string, status models.BidStatus) ([]BidView, error) {
	standalone, err := h.repo.ListBidsByWorker(ctx, ids, status)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list bids by worker", err)
	}
	embeddedJobs, err := h.repo.ListJobsWithEmbeddedBids(ctx, ids, status)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list jobs with embedded bids", err)
	}

	var embedded []models.Bid
	for _, job := range embeddedJobs {
		embedded = append(embedded, bidding.EmbeddedForWorker(job, ids, status)...)
	}
	bids := bidding.MergeBids(standalone, embedded)

	jobs, err := h.repo.GetJobs(ctx, jobIDs(bids))
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get jobs", err)
	}

	bidding.SortNewestFirst(bids)
	return toViews(bids, jobs), nil
}

func isOpen(job *models.Job) bool {
	return bidding.CanSubmitBid(bidding.NewJobStateContext(job)).Allowed
}

func jobIDs(bids []models.Bid) []string {
	seen := make(map[string]struct{}, len(bids))
	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		if _, ok := seen[b.JobID]; ok {
			continue
		}
		seen[b.JobID] = struct{}{}
		ids = append(ids, b.JobID)
	}
	return ids
}

func toViews(bids []models.Bid, jobs map[string]*models.Job) []BidView {
	views := make([]BidView, 0, len(bids))
	for _, b := range bids {
		jv := unavailableJob
		if job, ok := jobs[b.JobID]; ok {
			jv = JobView{
				ServiceName: job.ServiceName,
				Description: job.Description,
				Schedule:    job.Schedule,
				Address:     job.Address,
				Budget:      job.Budget,
				Status:      job.Status,
				Available:   true,
			}
		}
		views = append(views, BidView{
			ID:        b.ID,
			JobID:     b.JobID,
			Amount:    b.Amount,
			Message:   b.Message,
			Status:    b.Status,
			CreatedAt: b.CreatedAt,
			HiredAt:   b.HiredAt,
			Job:       jv,
		})
	}
	return views
}
