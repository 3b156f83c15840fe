// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/metrics"
	"marketplace-workers/internal/common/validation"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/store/memory"
	hirebid "marketplace-workers/internal/workers/bidding/hire-bid"
	listjobbids "marketplace-workers/internal/workers/bidding/list-job-bids"
	queryworkerbids "marketplace-workers/internal/workers/bidding/query-worker-bids"
	submitbid "marketplace-workers/internal/workers/bidding/submit-bid"
)

// ==========================
// Test Helper Functions
// ==========================

type failingHirer struct{ err error }

func (f failingHirer) Execute(ctx context.Context, input *hirebid.Input) (*hirebid.Output, error) {
	return nil, f.err
}

func newTestServer(t *testing.T) (Server, *memory.Store) {
	t.Helper()
	v, err := validation.NewDefaultValidator()
	require.NoError(t, err)
	log := logger.NewTestLogger(t)

	repo := memory.New()
	repo.PutWorker(models.WorkerProfile{ID: "wp-a", UserID: "user-a", Name: "Asha"})
	repo.PutWorker(models.WorkerProfile{ID: "wp-b", UserID: "user-b", Name: "Bala"})
	repo.PutJob(models.Job{ID: "job-1", OwnerID: "owner-1", ServiceName: "Plumbing", Status: models.JobFindingWorkers})

	srv := Server{
		Submit: submitbid.NewHandler(&submitbid.Config{Timeout: 5 * time.Second, NotifyTimeout: time.Second},
			repo, nil, nil, v, log),
		ListJobBids: listjobbids.NewHandler(&listjobbids.Config{Timeout: 5 * time.Second}, repo, v, log),
		Hire: hirebid.NewHandler(&hirebid.Config{Timeout: 5 * time.Second, NotifyTimeout: time.Second, MaxAttempts: 3},
			repo, nil, nil, v, log),
		WorkerBids:     queryworkerbids.NewHandler(&queryworkerbids.Config{Timeout: 5 * time.Second}, repo, v, log),
		Logger:         log,
		RequestTimeout: 5 * time.Second,
	}
	return srv, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v), rec.Body.String())
}

func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperrors.ErrorCode) errorResponse {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	var resp errorResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, string(code), resp.Error.Code)
	return resp
}

// ==========================
// Lifecycle Tests
// ==========================

func TestServer_BidLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/v1/bids", `{"jobId":"job-1","workerId":"user-a","amount":500,"message":"Tomorrow 9am"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var asha submitbid.Output
	decode(t, rec, &asha)
	assert.Equal(t, models.BidPending, asha.Bid.Status)

	rec = do(t, h, http.MethodPost, "/v1/bids", `{"jobId":"job-1","workerId":"wp-b","amount":700}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bala submitbid.Output
	decode(t, rec, &bala)

	rec = do(t, h, http.MethodPost, "/v1/bids", `{"jobId":"job-1","workerId":"wp-a","amount":450}`)
	assertErrorBody(t, rec, http.StatusConflict, apperrors.ErrCodeDuplicateBid)

	rec = do(t, h, http.MethodGet, "/v1/jobs/job-1/bids", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed listjobbids.Output
	decode(t, rec, &listed)
	require.Equal(t, 2, listed.Count)
	assert.Equal(t, 500.0, listed.Bids[0].Amount)
	assert.Equal(t, "Asha", listed.Bids[0].Worker.Name)

	rec = do(t, h, http.MethodPost, "/v1/jobs/job-1/bids/"+asha.Bid.ID+"/hire", `{"hirerId":"owner-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var hired hirebid.Output
	decode(t, rec, &hired)
	assert.Equal(t, models.JobHired, hired.Job.Status)
	assert.Equal(t, models.BidHired, hired.Bid.Status)
	assert.Equal(t, 1, hired.ClosedBids)

	rec = do(t, h, http.MethodPost, "/v1/hire", `{"bidId":"`+bala.Bid.ID+`","hirerId":"owner-1"}`)
	resp := assertErrorBody(t, rec, http.StatusConflict, apperrors.ErrCodeJobAlreadyAssigned)
	assert.Contains(t, resp.Error.Details, "Asha")

	rec = do(t, h, http.MethodGet, "/v1/workers/user-a/bids/hired", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var won queryworkerbids.Output
	decode(t, rec, &won)
	require.Equal(t, 1, won.Count)
	assert.Equal(t, asha.Bid.ID, won.Bids[0].ID)

	rec = do(t, h, http.MethodGet, "/v1/workers/wp-b/bids/closed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lost queryworkerbids.Output
	decode(t, rec, &lost)
	require.Equal(t, 1, lost.Count)
	assert.Equal(t, bala.Bid.ID, lost.Bids[0].ID)
}

// ==========================
// Error Mapping Tests
// ==========================

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   apperrors.ErrorCode
	}{
		{"malformed body", http.MethodPost, "/v1/bids", `{"jobId":`, http.StatusBadRequest, apperrors.ErrCodeBidValidationFailed},
		{"empty body", http.MethodPost, "/v1/bids", "", http.StatusBadRequest, apperrors.ErrCodeBidValidationFailed},
		{"unknown job", http.MethodGet, "/v1/jobs/job-404/bids", "", http.StatusNotFound, apperrors.ErrCodeJobNotFound},
		{"unknown worker", http.MethodGet, "/v1/workers/ghost/bids/active", "", http.StatusNotFound, apperrors.ErrCodeWorkerProfileNotFound},
		{"unknown bucket", http.MethodGet, "/v1/workers/user-a/bids/archived", "", http.StatusBadRequest, apperrors.ErrCodeBidValidationFailed},
		{"unknown bid", http.MethodPost, "/v1/jobs/job-1/bids/nope/hire", `{"hirerId":"owner-1"}`, http.StatusNotFound, apperrors.ErrCodeBidNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rec := do(t, srv.Router(), tt.method, tt.path, tt.body)
			assertErrorBody(t, rec, tt.status, tt.code)
		})
	}
}

func TestServer_InternalErrorHidesCause(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Hire = failingHirer{err: apperrors.NewDatabaseUpdateFailedError("commit hire", errors.New("pq: connection reset by peer"))}

	rec := do(t, srv.Router(), http.MethodPost, "/v1/hire", `{"bidId":"bid-a","hirerId":"owner-1"}`)
	resp := assertErrorBody(t, rec, http.StatusInternalServerError, apperrors.ErrCodeDatabaseUpdateFailed)
	assert.Equal(t, "internal server error", resp.Error.Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestServer_UnclassifiedErrorIsInternal(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Hire = failingHirer{err: errors.New("boom")}

	rec := do(t, srv.Router(), http.MethodPost, "/v1/hire", `{"bidId":"bid-a"}`)
	resp := assertErrorBody(t, rec, http.StatusInternalServerError, apperrors.ErrCodeInternal)
	assert.Empty(t, resp.Error.Details)
}

// ==========================
// Ambient Tests
// ==========================

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_RecordsRouteLatency(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv.Router(), http.MethodGet, "/v1/jobs/job-1/bids", "")

	assert.Positive(t, testutil.CollectAndCount(metrics.HTTPRequestDuration))
}
