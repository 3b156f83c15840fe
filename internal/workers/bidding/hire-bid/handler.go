// internal/workers/bidding/hire-bid/handler.go
package hirebid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

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
	TaskType = "hire-bid"
)

type Notifier interface {
	Notify(ctx context.Context, msg notifier.Message) error
}

type EventIndexer interface {
	IndexAll(ctx context.Context, events []indexer.Event) error
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
}

// NewHandler builds the hiring coordinator. notifier and indexer may be nil.
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

// Execute hires input.BidID. Exactly one concurrent caller per job wins; the
// others get JOB_ALREADY_ASSIGNED.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.validator != nil {
		if err := h.validator.Check(TaskType, input); err != nil {
			return nil, err
		}
	}

	jobID := input.JobID
	if jobID == "" {
		bid, err := h.repo.GetBid(ctx, input.BidID)
		if errors.Is(err, store.ErrNotFound) {
			metrics.HireAttempts.WithLabelValues("not_found").Inc()
			return nil, apperrors.NewBidNotFoundError("", input.BidID)
		}
		if err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("get bid", err)
		}
		jobID = bid.JobID
	}

	var (
		res *store.HireResult
		err error
	)
	for attempt := 1; attempt <= h.config.MaxAttempts; attempt++ {
		res, err = h.attempt(ctx, jobID, input)
		if !errors.Is(err, store.ErrJobChanged) {
			break
		}
		metrics.HireCommitRetries.Inc()
		h.logger.Debug("job changed during hire, re-reading", map[string]interface{}{
			"jobId":   jobID,
			"bidId":   input.BidID,
			"attempt": attempt,
		})
	}
	if errors.Is(err, store.ErrJobChanged) {
		metrics.HireAttempts.WithLabelValues("error").Inc()
		return nil, apperrors.NewDatabaseUpdateFailedError("hire", err)
	}
	if err != nil {
		metrics.HireAttempts.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	metrics.HireAttempts.WithLabelValues("hired").Inc()
	metrics.BidsClosed.Add(float64(len(res.Closed)))
	h.logger.Info("bid hired", map[string]interface{}{
		"jobId":      res.Job.ID,
		"bidId":      res.Bid.ID,
		"workerId":   res.Job.HiredWorker.WorkerID,
		"hirerId":    input.HirerID,
		"closedBids": len(res.Closed),
	})

	h.afterHire(ctx, res, input.HirerID)

	return &Output{
		Job: JobSummary{
			ID:          res.Job.ID,
			Status:      res.Job.Status,
			HiredWorker: res.Job.HiredWorker,
		},
		Bid: BidSummary{
			ID:     res.Bid.ID,
			Status: res.Bid.Status,
		},
		ClosedBids: len(res.Closed),
	}, nil
}

// attempt runs the preconditions against a fresh read and commits. It
// returns store.ErrJobChanged when the job moved after the read.
func (h *Handler) attempt(ctx context.Context, jobID string, input *Input) (*store.HireResult, error) {
	job, err := h.repo.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("get job", err)
	}

	if guard := bidding.CanHire(bidding.NewJobStateContext(job)); !guard.Allowed {
		return nil, apperrors.NewJobAlreadyAssignedError(job.ID, guard.Reason)
	}

	bid, err := h.resolveBid(ctx, job, input.BidID)
	if err != nil {
		return nil, err
	}

	workerProfile, err := h.resolveWorker(ctx, bid)
	if err != nil {
		return nil, err
	}

	res, err := h.repo.CommitHire(ctx, store.HireCommand{
		Job:     job,
		Bid:     bid,
		Worker:  workerProfile,
		HirerID: input.HirerID,
		At:      h.now(),
	})
	if err != nil && !errors.Is(err, store.ErrJobChanged) {
		return nil, apperrors.NewDatabaseUpdateFailedError("commit hire", err)
	}
	return res, err
}

// resolveBid finds an open bid in the job's scope: the standalone record
// first, then the embedded list. A standalone bid of another job is not in
// scope.
func (h *Handler) resolveBid(ctx context.Context, job *models.Job, bidID string) (models.Bid, error) {
	standalone, err := h.repo.GetBid(ctx, bidID)
	switch {
	case err == nil && standalone.JobID == job.ID:
		if standalone.Status.IsTerminal() {
			return models.Bid{}, apperrors.NewBidNotFoundError(job.ID, bidID)
		}
		return *standalone, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return models.Bid{}, apperrors.NewDatabaseQueryFailedError("get bid", err)
	}

	embedded, ok := job.EmbeddedBid(bidID)
	if !ok || embedded.Status.IsTerminal() {
		return models.Bid{}, apperrors.NewBidNotFoundError(job.ID, bidID)
	}
	return embedded.ToBid(job.ID), nil
}

func (h *Handler) resolveWorker(ctx context.Context, bid models.Bid) (*models.WorkerProfile, error) {
	refs := []string{bid.WorkerProfileID, bid.WorkerUserID}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		w, err := h.repo.ResolveWorker(ctx, ref)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewDatabaseQueryFailedError("resolve worker", err)
		}
	}
	return nil, apperrors.NewWorkerProfileNotFoundError(bid.WorkerUserID)
}

// afterHire notifies the workers and indexes the events. Nothing here can
// change the result of a committed hire.
func (h *Handler) afterHire(ctx context.Context, res *store.HireResult, hirerID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.config.NotifyTimeout)
	defer cancel()

	if h.notifier != nil {
		hw := res.Job.HiredWorker
		h.notify(ctx, notifier.Message{
			UserRef: hw.WorkerUserID,
			Type:    models.NotificationBidHired,
			Title:   "You're hired!",
			Body:    fmt.Sprintf("Your bid of ₹%.0f has been accepted.", res.Bid.Amount),
			Data: map[string]interface{}{
				"jobId": res.Job.ID,
				"bidId": res.Bid.ID,
			},
			DedupKey: notifier.DedupKey(res.Job.ID, notifier.ActionHired, hw.WorkerUserID),
		})

		for _, b := range res.Closed {
			h.notify(ctx, notifier.Message{
				UserRef: b.WorkerUserID,
				Type:    models.NotificationBidClosed,
				Title:   "Job filled",
				Body:    "The client hired another worker for this job.",
				Data: map[string]interface{}{
					"jobId": res.Job.ID,
					"bidId": b.ID,
				},
				DedupKey: notifier.DedupKey(res.Job.ID, notifier.ActionClosed, b.WorkerUserID),
			})
		}
	}

	if h.indexer != nil {
		at := res.Job.UpdatedAt
		events := make([]indexer.Event, 0, len(res.Closed)+1)
		events = append(events, indexer.NewBidEvent(indexer.EventBidHired, res.Bid, hirerID, at))
		for _, b := range res.Closed {
			events = append(events, indexer.NewBidEvent(indexer.EventBidClosed, b, hirerID, at))
		}
		if err := h.indexer.IndexAll(ctx, events); err != nil {
			h.logger.Warn("failed to index hire events", map[string]interface{}{
				"jobId": res.Job.ID,
				"error": err,
			})
		}
	}
}

func (h *Handler) notify(ctx context.Context, msg notifier.Message) {
	if err := h.notifier.Notify(ctx, msg); err != nil {
		h.logger.Warn("notification failed", map[string]interface{}{
			"userRef": msg.UserRef,
			"type":    msg.Type,
			"error":   err,
		})
	}
}

func outcomeLabel(err error) string {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok {
		return "error"
	}
	switch apperrors.GetErrorCategory(stdErr.Code) {
	case apperrors.CategoryNotFound:
		return "not_found"
	case apperrors.CategoryConflict:
		return "conflict"
	default:
		return "error"
	}
}
