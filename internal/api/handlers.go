// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	hirebid "marketplace-workers/internal/workers/bidding/hire-bid"
	listjobbids "marketplace-workers/internal/workers/bidding/list-job-bids"
	queryworkerbids "marketplace-workers/internal/workers/bidding/query-worker-bids"
	submitbid "marketplace-workers/internal/workers/bidding/submit-bid"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// hireBody is the request for both hire routes; path parameters win over
// body fields.
type hireBody struct {
	JobID   string `json:"jobId"`
	BidID   string `json:"bidId"`
	HirerID string `json:"hirerId"`
}

func (s Server) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	var input submitbid.Input
	if err := decodeBody(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.Submit.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s Server) handleListJobBids(w http.ResponseWriter, r *http.Request) {
	out, err := s.ListJobBids.Execute(r.Context(), &listjobbids.Input{JobID: chi.URLParam(r, "jobId")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s Server) handleHire(w http.ResponseWriter, r *http.Request) {
	var body hireBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hire(w, r, body)
}

func (s Server) handleHireForJob(w http.ResponseWriter, r *http.Request) {
	var body hireBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	body.JobID = chi.URLParam(r, "jobId")
	body.BidID = chi.URLParam(r, "bidId")
	s.hire(w, r, body)
}

func (s Server) hire(w http.ResponseWriter, r *http.Request, body hireBody) {
	out, err := s.Hire.Execute(r.Context(), &hirebid.Input{
		JobID:   body.JobID,
		BidID:   body.BidID,
		HirerID: body.HirerID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s Server) handleWorkerBids(w http.ResponseWriter, r *http.Request) {
	out, err := s.WorkerBids.Execute(r.Context(), &queryworkerbids.Input{
		WorkerRef: chi.URLParam(r, "workerRef"),
		Bucket:    chi.URLParam(r, "bucket"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeBody reads a JSON body. An empty body decodes to the zero value so
// that the handler's validation reports the missing fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewBidValidationFailedError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// writeError renders err in the error envelope. Server-side failures only
// expose a generic message; the cause goes to the log.
func (s Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok {
		stdErr = apperrors.NewInternalError(err)
	}

	status := apperrors.HTTPStatus(stdErr.Code)
	body := errorBody{Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details}

	l := logger.FromContext(r.Context(), s.log())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", map[string]interface{}{
			"code":    stdErr.Code,
			"details": stdErr.Details,
			"error":   err.Error(),
		})
		body.Message = "internal server error"
		body.Details = ""
	} else {
		l.Debug("request rejected", map[string]interface{}{"code": stdErr.Code})
	}

	writeJSON(w, status, errorResponse{Success: false, Error: body})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
