// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Bid lifecycle errors
const (
	ErrCodeJobNotFound           ErrorCode = "JOB_NOT_FOUND"
	ErrCodeBidNotFound           ErrorCode = "BID_NOT_FOUND"
	ErrCodeWorkerProfileNotFound ErrorCode = "WORKER_PROFILE_NOT_FOUND"

	ErrCodeJobAlreadyAssigned ErrorCode = "JOB_ALREADY_ASSIGNED"
	ErrCodeDuplicateBid       ErrorCode = "DUPLICATE_BID"

	ErrCodeBidValidationFailed ErrorCode = "BID_VALIDATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseUpdateFailed     ErrorCode = "DATABASE_UPDATE_FAILED"

	ErrCodeWorkflowEngineUnavailable ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver or client error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so callers can compare against
// a bare &StandardError{Code: ...} target.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewJobNotFoundError creates a non-retryable missing job error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBidNotFoundError creates a non-retryable missing bid error. A bid that
// exists under another job is reported the same way.
func NewBidNotFoundError(jobID, bidID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBidNotFound,
		Message:   "Bid not found",
		Details:   fmt.Sprintf("jobId: %s, bidId: %s", jobID, bidID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkerProfileNotFoundError creates a non-retryable missing worker error.
func NewWorkerProfileNotFoundError(workerRef string) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkerProfileNotFound,
		Message:   "Worker profile not found",
		Details:   fmt.Sprintf("workerRef: %s", workerRef),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobAlreadyAssignedError creates a non-retryable conflict error.
func NewJobAlreadyAssignedError(jobID, reason string) *StandardError {
	if reason == "" {
		reason = fmt.Sprintf("jobId: %s", jobID)
	}
	return &StandardError{
		Code:      ErrCodeJobAlreadyAssigned,
		Message:   "Job has already been assigned",
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateBidError creates a non-retryable duplicate bid error.
func NewDuplicateBidError(jobID, workerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateBid,
		Message:   "Worker has already bid on this job",
		Details:   fmt.Sprintf("jobId: %s, workerId: %s", jobID, workerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBidValidationFailedError creates a non-retryable input validation error.
func NewBidValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBidValidationFailed,
		Message:   "Bid input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseQueryFailedError creates a retryable read error.
func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseUpdateFailedError creates a retryable write error.
func NewDatabaseUpdateFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseUpdateFailed,
		Message:   "Database update operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewWorkflowEngineError wraps a Zeebe gateway failure.
func NewWorkflowEngineError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngineUnavailable,
		Message:   "Workflow engine request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (same as internal).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeJobNotFound:              "JOB_NOT_FOUND",
	ErrCodeBidNotFound:              "BID_NOT_FOUND",
	ErrCodeWorkerProfileNotFound:    "WORKER_PROFILE_NOT_FOUND",
	ErrCodeJobAlreadyAssigned:       "JOB_ALREADY_ASSIGNED",
	ErrCodeDuplicateBid:             "DUPLICATE_BID",
	ErrCodeBidValidationFailed:      "BID_VALIDATION_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseQueryFailed:      "DATABASE_QUERY_FAILED",
	ErrCodeDatabaseUpdateFailed:     "DATABASE_UPDATE_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseUpdateFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowEngineUnavailable:
		return 3 // Retryable technical errors

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// Category groups error codes by how a caller should react.
type Category string

const (
	CategoryNotFound   Category = "NOT_FOUND"
	CategoryConflict   Category = "CONFLICT"
	CategoryValidation Category = "VALIDATION"
	CategoryUpstream   Category = "UPSTREAM"
	CategoryInternal   Category = "INTERNAL"
)

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) Category {
	switch code {
	case ErrCodeJobNotFound, ErrCodeBidNotFound, ErrCodeWorkerProfileNotFound:
		return CategoryNotFound
	case ErrCodeJobAlreadyAssigned, ErrCodeDuplicateBid:
		return CategoryConflict
	case ErrCodeBidValidationFailed:
		return CategoryValidation
	case ErrCodeNotificationSendFailed, ErrCodeWorkflowEngineUnavailable:
		return CategoryUpstream
	}
	if strings.HasSuffix(string(code), "_NOT_FOUND") {
		return CategoryNotFound
	}
	return CategoryInternal
}

// HTTPStatus maps an error code to the REST status it is reported with.
func HTTPStatus(code ErrorCode) int {
	switch GetErrorCategory(code) {
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}
