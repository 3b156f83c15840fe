// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"marketplace-workers/internal/common/metrics"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// JobResponder reports the outcome of a Zeebe job back to the broker.
type JobResponder struct {
	logger Logger
}

func NewJobResponder(logger Logger) *JobResponder {
	return &JobResponder{logger: logger}
}

// Complete finishes the job with output as its variables.
func (r *JobResponder) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		r.Fail(ctx, client, job, NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	r.logger.Debug("job completed", map[string]interface{}{"jobKey": job.Key})
}

// Fail reports err on the job. Retryable data-layer failures fail the job so
// the broker retries it; everything else is thrown as a BPMN error carrying
// the error code, so the process model can branch on it.
func (r *JobResponder) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(stdErr.Code)).Inc()

	fields := map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"details":          stdErr.Details,
		"category":         string(GetErrorCategory(stdErr.Code)),
		"workflowInstance": job.ProcessInstanceKey,
	}

	vars := "{}"
	if data, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		vars = string(data)
	}

	if stdErr.Retryable && job.Retries > 0 && GetRetryCount(stdErr.Code) > 0 {
		left := retriesLeft(job.Retries, GetRetryCount(stdErr.Code))
		fields["retriesLeft"] = left
		r.logger.Error("job failed, broker will retry", fields)

		cmd := client.NewFailJobCommand().JobKey(job.Key).Retries(left).ErrorMessage(bpmnErr.Message)
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			r.reportSendError(job, err)
			return
		}
		_, err := cmd.Send(ctx)
		r.reportSendError(job, err)
		return
	}

	r.logger.Error("job rejected with business error", fields)
	cmd := client.NewThrowErrorCommand().JobKey(job.Key).ErrorCode(bpmnErr.Code).ErrorMessage(bpmnErr.Message)
	if withVars, err := cmd.VariablesFromString(vars); err == nil {
		_, err = withVars.Send(ctx)
		r.reportSendError(job, err)
		return
	}
	_, sendErr := cmd.Send(ctx)
	r.reportSendError(job, sendErr)
}

func (r *JobResponder) reportSendError(job entities.Job, err error) {
	if err != nil {
		r.logger.Error("failed to report job failure", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// retriesLeft never raises what the broker has left for the job.
func retriesLeft(remaining int32, budget int) int32 {
	left := int32(budget)
	if remaining <= left {
		left = remaining - 1
	}
	if left < 0 {
		left = 0
	}
	return left
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}
