// internal/workers/bidding/list-job-bids/handler.go
package listjobbids

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
	TaskType = "list-job-bids"
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

// Execute returns every bid on the job, cheapest first.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.validator != nil {
		if err := h.validator.Check(TaskType, input); err != nil {
			return nil, err
		}
	}

	job, err := h.repo.GetJob(ctx, input.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewJobNotFoundError(input.JobID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get job", err)
	}

	standalone, err := h.repo.ListBidsByJob(ctx, job.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("list bids by job", err)
	}

	bids := bidding.MergeBids(standalone, bidding.EmbeddedForJob(job))
	bidding.SortByAmount(bids)

	workers, err := h.repo.ResolveWorkers(ctx, workerRefs(bids))
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("resolve workers", err)
	}

	views := make([]BidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, BidView{
			ID:        b.ID,
			Amount:    b.Amount,
			Message:   b.Message,
			Status:    b.Status,
			CreatedAt: b.CreatedAt,
			HiredAt:   b.HiredAt,
			Worker:    summarize(b, workers),
		})
	}

	return &Output{
		JobID:     job.ID,
		JobStatus: job.Status,
		Count:     len(views),
		Bids:      views,
	}, nil
}

func workerRefs(bids []models.Bid) []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, b := range bids {
		for _, ref := range []string{b.WorkerProfileID, b.WorkerUserID} {
			if ref == "" {
				continue
			}
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

func summarize(b models.Bid, workers map[string]*models.WorkerProfile) WorkerSummary {
	w, ok := workers[b.WorkerProfileID]
	if !ok {
		w, ok = workers[b.WorkerUserID]
	}
	if !ok {
		return WorkerSummary{UserID: b.WorkerUserID, Name: "Unknown worker"}
	}
	return WorkerSummary{
		ID:     w.ID,
		UserID: w.UserID,
		Name:   w.Name,
		Phone:  w.Phone,
		Rating: w.Rating,
	}
}
