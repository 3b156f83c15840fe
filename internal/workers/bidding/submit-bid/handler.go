// internal/workers/bidding/submit-bid/handler.go
package submitbid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/metrics"
	"marketplace-workers/internal/common/validation"
	"marketplace-workers/internal/core/bidding"
	"marketplace-workers/internal/indexer"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/notifier"
	"marketplace-workers/internal/store"
)

const (
	TaskType = "submit-bid"
)

type Notifier interface {
	Notify(ctx context.Context, msg notifier.Message) error
}

type EventIndexer interface {
	Index(ctx context.Context, ev indexer.Event) error
}

type Handler struct {
	config    *Config
	repo      store.Repository
	notifier  Notifier
	indexer   EventIndexer
	validator *validation.Validator
	jobs      *apperrors.JobResponder
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewHandler(config *Config, repo store.Repository, n Notifier, idx EventIndexer, v *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		repo:      repo,
		notifier:  n,
		indexer:   idx,
		validator: v,
		jobs:      apperrors.NewJobResponder(l),
		logger:    l,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

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

// Execute records a new bid in both storage shapes.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	input.JobID = strings.TrimSpace(input.JobID)
	input.WorkerID = strings.TrimSpace(input.WorkerID)
	input.Message = strings.TrimSpace(input.Message)

	if h.validator != nil {
		if err := h.validator.Check(TaskType, input); err != nil {
			return nil, err
		}
	}
	guard := bidding.ValidateSubmission(bidding.BidSubmissionContext{
		JobID:    input.JobID,
		WorkerID: input.WorkerID,
		Amount:   input.Amount,
	})
	if !guard.Allowed {
		return nil, apperrors.NewBidValidationFailedError(guard.Reason)
	}

	workerProfile, err := h.repo.ResolveWorker(ctx, input.WorkerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewWorkerProfileNotFoundError(input.WorkerID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("resolve worker", err)
	}

	job, err := h.repo.GetJob(ctx, input.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewJobNotFoundError(input.JobID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get job", err)
	}
	if guard := bidding.CanSubmitBid(bidding.NewJobStateContext(job)); !guard.Allowed {
		return nil, apperrors.NewJobAlreadyAssignedError(job.ID, guard.Reason)
	}

	accountID := workerProfile.UserID
	if accountID == "" {
		accountID = workerProfile.ID
	}
	now := h.now()
	bid := models.Bid{
		ID:              h.newID(),
		JobID:           job.ID,
		WorkerUserID:    accountID,
		WorkerProfileID: workerProfile.ID,
		Amount:          input.Amount,
		Message:         input.Message,
		Status:          models.BidPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	updated, err := h.repo.CreateBid(ctx, bid)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, apperrors.NewDuplicateBidError(job.ID, accountID)
	case errors.Is(err, store.ErrJobClosed):
		return nil, apperrors.NewJobAlreadyAssignedError(job.ID, fmt.Sprintf("Job %s is no longer accepting bids", job.ID))
	case errors.Is(err, store.ErrNotFound):
		return nil, apperrors.NewJobNotFoundError(job.ID)
	case err != nil:
		return nil, apperrors.NewDatabaseUpdateFailedError("create bid", err)
	}

	metrics.BidsSubmitted.Inc()
	h.logger.Info("bid submitted", map[string]interface{}{
		"jobId":    updated.ID,
		"bidId":    bid.ID,
		"workerId": workerProfile.ID,
		"amount":   bid.Amount,
	})

	h.afterSubmit(ctx, updated, bid, workerProfile)

	return &Output{Bid: bid, JobStatus: updated.Status}, nil
}

func (h *Handler) afterSubmit(ctx context.Context, job *models.Job, bid models.Bid, w *models.WorkerProfile) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.NotifyTimeout)
	defer cancel()

	if h.notifier != nil && job.OwnerID != "" {
		name := w.Name
		if name == "" {
			name = "A worker"
		}
		err := h.notifier.Notify(ctx, notifier.Message{
			UserRef: job.OwnerID,
			Type:    models.NotificationNewBid,
			Title:   "New bid received",
			Body:    fmt.Sprintf("%s bid ₹%.0f on your %s request.", name, bid.Amount, job.ServiceName),
			Data: map[string]interface{}{
				"jobId": job.ID,
				"bidId": bid.ID,
			},
			DedupKey: notifier.DedupKey(job.ID, notifier.ActionNewBid, bid.WorkerUserID),
		})
		if err != nil {
			h.logger.Warn("notification failed", map[string]interface{}{
				"jobId": job.ID,
				"error": err,
			})
		}
	}

	if h.indexer != nil {
		if err := h.indexer.Index(ctx, indexer.NewBidEvent(indexer.EventBidSubmitted, bid, bid.WorkerUserID, bid.CreatedAt)); err != nil {
			h.logger.Warn("failed to index bid event", map[string]interface{}{
				"bidId": bid.ID,
				"error": err,
			})
		}
	}
}
