// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/metrics"
	hirebid "marketplace-workers/internal/workers/bidding/hire-bid"
	listjobbids "marketplace-workers/internal/workers/bidding/list-job-bids"
	queryworkerbids "marketplace-workers/internal/workers/bidding/query-worker-bids"
	submitbid "marketplace-workers/internal/workers/bidding/submit-bid"
)

type BidSubmitter interface {
	Execute(ctx context.Context, input *submitbid.Input) (*submitbid.Output, error)
}

type JobBidLister interface {
	Execute(ctx context.Context, input *listjobbids.Input) (*listjobbids.Output, error)
}

type Hirer interface {
	Execute(ctx context.Context, input *hirebid.Input) (*hirebid.Output, error)
}

type WorkerBidQuerier interface {
	Execute(ctx context.Context, input *queryworkerbids.Input) (*queryworkerbids.Output, error)
}

// Server exposes the bidding operations over REST. The same handlers back the
// Zeebe job workers.
type Server struct {
	Submit         BidSubmitter
	ListJobBids    JobBidLister
	Hire           Hirer
	WorkerBids     WorkerBidQuerier
	Logger         logger.Logger
	RequestTimeout time.Duration
}

func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bids", s.handleSubmitBid)
		r.Get("/jobs/{jobId}/bids", s.handleListJobBids)
		r.Post("/jobs/{jobId}/bids/{bidId}/hire", s.handleHireForJob)
		r.Post("/hire", s.handleHire)
		r.Get("/workers/{workerRef}/bids/{bucket}", s.handleWorkerBids)
	})

	return r
}

// requestLogger attaches a request-scoped logger and records latency per
// route pattern once the handler has run.
func (s Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		l := s.log().WithFields(map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
		})
		next.ServeHTTP(ww, r.WithContext(logger.IntoContext(r.Context(), l)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		l.Info("request completed", map[string]interface{}{
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
			"bytes":      ww.BytesWritten(),
		})
	})
}

func (s Server) log() logger.Logger {
	if s.Logger == nil {
		return logger.NewNoOpLogger()
	}
	return s.Logger
}
