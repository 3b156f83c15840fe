// internal/workers/bidding/hire-bid/handler_test.go
package hirebid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/validation"
	"marketplace-workers/internal/indexer"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/notifier"
	"marketplace-workers/internal/store/memory"
)

// ==========================
// Mock Implementations
// ==========================

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notifier.Message
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *recordingNotifier) sent() []notifier.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Message(nil), n.messages...)
}

type MockIndexer struct {
	IndexAllFunc func(ctx context.Context, events []indexer.Event) error
}

func (m *MockIndexer) IndexAll(ctx context.Context, events []indexer.Event) error {
	return m.IndexAllFunc(ctx, events)
}

// ==========================
// Test Helper Functions
// ==========================

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		NotifyTimeout: time.Second,
		MaxAttempts:   3,
	}
}

func createTestHandler(t *testing.T, repo *memory.Store, n Notifier, idx EventIndexer) *Handler {
	t.Helper()
	v, err := validation.NewDefaultValidator()
	require.NoError(t, err)
	h := NewHandler(createTestConfig(), repo, n, idx, v, logger.NewTestLogger(t))
	h.now = func() time.Time { return baseTime.Add(time.Hour) }
	return h
}

func pendingBid(id, jobID, userID, profileID string, amount float64) models.Bid {
	return models.Bid{
		ID:              id,
		JobID:           jobID,
		WorkerUserID:    userID,
		WorkerProfileID: profileID,
		Amount:          amount,
		Status:          models.BidPending,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
}

// seedMarketplace builds two jobs. job-1 has bids of ₹500 (Asha) and ₹700
// (Bala); job-2 has one bid by Chitra.
func seedMarketplace() *memory.Store {
	s := memory.New()
	for _, w := range []models.WorkerProfile{
		{ID: "wp-a", UserID: "user-a", Name: "Asha", Rating: 4.8},
		{ID: "wp-b", UserID: "user-b", Name: "Bala", Rating: 4.2},
		{ID: "wp-c", UserID: "user-c", Name: "Chitra", Rating: 4.5},
	} {
		s.PutWorker(w)
		s.PutUser(models.User{ID: w.UserID, Name: w.Name})
	}

	bidA := pendingBid("bid-a", "job-1", "user-a", "wp-a", 500)
	bidB := pendingBid("bid-b", "job-1", "user-b", "wp-b", 700)
	bidC := pendingBid("bid-c", "job-2", "user-c", "wp-c", 900)
	for _, b := range []models.Bid{bidA, bidB, bidC} {
		s.PutBid(b)
	}

	s.PutJob(models.Job{
		ID: "job-1", OwnerID: "owner-1", ServiceName: "Plumbing", Budget: 800,
		Status: models.JobBidding,
		Bids:   []models.EmbeddedBid{bidA.Embedded(), bidB.Embedded()},
	})
	s.PutJob(models.Job{
		ID: "job-2", OwnerID: "owner-2", ServiceName: "Painting", Budget: 1200,
		Status: models.JobBidding,
		Bids:   []models.EmbeddedBid{bidC.Embedded()},
	})
	return s
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok, "expected StandardError, got %T: %v", err, err)
	assert.Equal(t, code, stdErr.Code, stdErr.Details)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_HiresCheapestOfTwo(t *testing.T) {
	repo := seedMarketplace()
	n := &recordingNotifier{}
	handler := createTestHandler(t, repo, n, nil)
	ctx := context.Background()

	output, err := handler.Execute(ctx, &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	require.NoError(t, err)

	assert.Equal(t, "job-1", output.Job.ID)
	assert.Equal(t, models.JobHired, output.Job.Status)
	require.NotNil(t, output.Job.HiredWorker)
	assert.Equal(t, "wp-a", output.Job.HiredWorker.WorkerID)
	assert.Equal(t, "user-a", output.Job.HiredWorker.WorkerUserID)
	assert.Equal(t, "Asha", output.Job.HiredWorker.WorkerName)
	assert.Equal(t, 500.0, output.Job.HiredWorker.BidAmount)
	assert.Equal(t, "bid-a", output.Bid.ID)
	assert.Equal(t, models.BidHired, output.Bid.Status)
	assert.Equal(t, 1, output.ClosedBids)

	bidA, _ := repo.GetBid(ctx, "bid-a")
	assert.Equal(t, models.BidHired, bidA.Status)
	assert.Equal(t, "owner-1", bidA.HiredBy)
	require.NotNil(t, bidA.HiredAt)

	bidB, _ := repo.GetBid(ctx, "bid-b")
	assert.Equal(t, models.BidClosed, bidB.Status)

	job, _ := repo.GetJob(ctx, "job-1")
	embA, _ := job.EmbeddedBid("bid-a")
	embB, _ := job.EmbeddedBid("bid-b")
	assert.Equal(t, models.BidHired, embA.Status)
	assert.Equal(t, models.BidClosed, embB.Status)

	// Other jobs are untouched.
	bidC, _ := repo.GetBid(ctx, "bid-c")
	assert.Equal(t, models.BidPending, bidC.Status)
	job2, _ := repo.GetJob(ctx, "job-2")
	assert.Equal(t, models.JobBidding, job2.Status)
	assert.Nil(t, job2.HiredWorker)

	sent := n.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "user-a", sent[0].UserRef)
	assert.Equal(t, models.NotificationBidHired, sent[0].Type)
	assert.Contains(t, sent[0].Body, "₹500")
	assert.Equal(t, "notify:job-1:hired:user-a", sent[0].DedupKey)
	assert.Equal(t, "user-b", sent[1].UserRef)
	assert.Equal(t, models.NotificationBidClosed, sent[1].Type)
}

func TestHandler_Execute_SecondHireRejected(t *testing.T) {
	repo := seedMarketplace()
	handler := createTestHandler(t, repo, nil, nil)
	ctx := context.Background()

	_, err := handler.Execute(ctx, &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	require.NoError(t, err)

	_, err = handler.Execute(ctx, &Input{JobID: "job-1", BidID: "bid-b", HirerID: "owner-1"})
	assertCode(t, err, apperrors.ErrCodeJobAlreadyAssigned)
	stdErr, _ := apperrors.AsStandardError(err)
	assert.Contains(t, stdErr.Details, "Asha")

	// Repeating the winning hire is rejected the same way.
	_, err = handler.Execute(ctx, &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	assertCode(t, err, apperrors.ErrCodeJobAlreadyAssigned)

	bidB, _ := repo.GetBid(ctx, "bid-b")
	assert.Equal(t, models.BidClosed, bidB.Status)
}

func TestHandler_Execute_LegacySlotWithoutBidReference(t *testing.T) {
	repo := seedMarketplace()
	job, err := repo.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	job.HiredWorker = &models.HiredWorker{WorkerID: "wp-c", WorkerName: "Chitra", BidAmount: 400}
	repo.PutJob(*job)

	handler := createTestHandler(t, repo, nil, nil)
	_, err = handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	assertCode(t, err, apperrors.ErrCodeJobAlreadyAssigned)
	stdErr, _ := apperrors.AsStandardError(err)
	assert.Contains(t, stdErr.Details, "Chitra")

	stored, err := repo.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, stored.HiredWorker)
	assert.Equal(t, "wp-c", stored.HiredWorker.WorkerID)
	bidA, _ := repo.GetBid(context.Background(), "bid-a")
	assert.Equal(t, models.BidPending, bidA.Status)
}

func TestHandler_Execute_ConcurrentHires(t *testing.T) {
	repo := seedMarketplace()
	handler := createTestHandler(t, repo, &recordingNotifier{}, nil)

	const callers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []string
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		bidID := "bid-a"
		if i%2 == 1 {
			bidID = "bid-b"
		}
		wg.Add(1)
		go func(bidID string) {
			defer wg.Done()
			<-start
			out, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: bidID, HirerID: "owner-1"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes = append(successes, out.Bid.ID)
		}(bidID)
	}
	close(start)
	wg.Wait()

	require.Len(t, successes, 1, "exactly one hire wins")
	require.Len(t, failures, callers-1)
	for _, err := range failures {
		assertCode(t, err, apperrors.ErrCodeJobAlreadyAssigned)
	}

	ctx := context.Background()
	job, _ := repo.GetJob(ctx, "job-1")
	require.NotNil(t, job.HiredWorker)
	assert.Equal(t, successes[0], job.HiredWorker.BidID)

	hired := 0
	for _, id := range []string{"bid-a", "bid-b"} {
		b, _ := repo.GetBid(ctx, id)
		if b.Status == models.BidHired {
			hired++
			assert.Equal(t, successes[0], b.ID)
		} else {
			assert.Equal(t, models.BidClosed, b.Status)
		}
	}
	assert.Equal(t, 1, hired)
}

func TestHandler_Execute_CrossJobBid(t *testing.T) {
	repo := seedMarketplace()
	handler := createTestHandler(t, repo, nil, nil)

	_, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-c", HirerID: "owner-1"})
	assertCode(t, err, apperrors.ErrCodeBidNotFound)

	job, _ := repo.GetJob(context.Background(), "job-1")
	assert.Nil(t, job.HiredWorker)
	bidC, _ := repo.GetBid(context.Background(), "bid-c")
	assert.Equal(t, models.BidPending, bidC.Status)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *memory.Store)
		input *Input
		code  apperrors.ErrorCode
	}{
		{
			name:  "missing hirer",
			input: &Input{JobID: "job-1", BidID: "bid-a"},
			code:  apperrors.ErrCodeBidValidationFailed,
		},
		{
			name:  "job does not exist",
			input: &Input{JobID: "job-404", BidID: "bid-a", HirerID: "owner-1"},
			code:  apperrors.ErrCodeJobNotFound,
		},
		{
			name:  "bid does not exist",
			input: &Input{JobID: "job-1", BidID: "bid-404", HirerID: "owner-1"},
			code:  apperrors.ErrCodeBidNotFound,
		},
		{
			name:  "bid id unknown and no job id",
			input: &Input{BidID: "bid-404", HirerID: "owner-1"},
			code:  apperrors.ErrCodeBidNotFound,
		},
		{
			name: "job cancelled",
			setup: func(s *memory.Store) {
				job, _ := s.GetJob(context.Background(), "job-1")
				job.Status = models.JobCancelled
				s.PutJob(*job)
			},
			input: &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"},
			code:  apperrors.ErrCodeJobAlreadyAssigned,
		},
		{
			name: "bid already rejected",
			setup: func(s *memory.Store) {
				b, _ := s.GetBid(context.Background(), "bid-b")
				b.Status = models.BidRejected
				s.PutBid(*b)
			},
			input: &Input{JobID: "job-1", BidID: "bid-b", HirerID: "owner-1"},
			code:  apperrors.ErrCodeBidNotFound,
		},
		{
			name: "worker profile gone",
			setup: func(s *memory.Store) {
				s.PutBid(pendingBid("bid-ghost", "job-1", "user-ghost", "", 650))
			},
			input: &Input{JobID: "job-1", BidID: "bid-ghost", HirerID: "owner-1"},
			code:  apperrors.ErrCodeWorkerProfileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seedMarketplace()
			if tt.setup != nil {
				tt.setup(repo)
			}
			handler := createTestHandler(t, repo, nil, nil)

			output, err := handler.Execute(context.Background(), tt.input)
			assert.Nil(t, output)
			assertCode(t, err, tt.code)
		})
	}
}

// ==========================
// Side Effect Tests
// ==========================

func TestHandler_Execute_NotifierFailureDoesNotChangeResult(t *testing.T) {
	baseline, err := createTestHandler(t, seedMarketplace(), &recordingNotifier{}, nil).
		Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	require.NoError(t, err)

	failing := &recordingNotifier{err: apperrors.NewNotificationSendFailedError("push", errors.New("EndpointDisabled"))}
	idx := &MockIndexer{IndexAllFunc: func(ctx context.Context, events []indexer.Event) error {
		return errors.New("cluster unavailable")
	}}
	repo := seedMarketplace()
	output, err := createTestHandler(t, repo, failing, idx).
		Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})

	require.NoError(t, err)
	assert.Equal(t, baseline, output)
	assert.Len(t, failing.sent(), 2, "every worker is still attempted")

	bidB, _ := repo.GetBid(context.Background(), "bid-b")
	assert.Equal(t, models.BidClosed, bidB.Status)
}

func TestHandler_Execute_IndexesEvents(t *testing.T) {
	var got []indexer.Event
	idx := &MockIndexer{IndexAllFunc: func(ctx context.Context, events []indexer.Event) error {
		got = events
		return nil
	}}
	handler := createTestHandler(t, seedMarketplace(), nil, idx)

	_, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, indexer.EventBidHired, got[0].Type)
	assert.Equal(t, "bid-a", got[0].BidID)
	assert.Equal(t, "owner-1", got[0].ActorID)
	assert.Equal(t, indexer.EventBidClosed, got[1].Type)
	assert.Equal(t, "bid-b", got[1].BidID)
}

// ==========================
// Storage Shape Tests
// ==========================

func TestHandler_Execute_EmbeddedOnlyBid(t *testing.T) {
	repo := seedMarketplace()
	job, _ := repo.GetJob(context.Background(), "job-1")
	job.Bids = append(job.Bids, models.EmbeddedBid{
		ID: "legacy-1", WorkerID: "wp-c", Amount: 450, Status: models.BidPending, CreatedAt: baseTime,
	})
	repo.PutJob(*job)
	handler := createTestHandler(t, repo, nil, nil)

	output, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "legacy-1", HirerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "wp-c", output.Job.HiredWorker.WorkerID)
	assert.Equal(t, "user-c", output.Job.HiredWorker.WorkerUserID)
	assert.Equal(t, 450.0, output.Job.HiredWorker.BidAmount)
	assert.Equal(t, 2, output.ClosedBids)

	for _, id := range []string{"bid-a", "bid-b"} {
		b, _ := repo.GetBid(context.Background(), id)
		assert.Equal(t, models.BidClosed, b.Status, id)
	}
}

func TestHandler_Execute_JobIDFromStandaloneBid(t *testing.T) {
	handler := createTestHandler(t, seedMarketplace(), nil, nil)

	output, err := handler.Execute(context.Background(), &Input{BidID: "bid-b", HirerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", output.Job.ID)
	assert.Equal(t, 700.0, output.Job.HiredWorker.BidAmount)
}

func TestHandler_Execute_RetriesAfterConcurrentSubmission(t *testing.T) {
	repo := seedMarketplace()
	repo.PutWorker(models.WorkerProfile{ID: "wp-d", UserID: "user-d", Name: "Dev"})

	var once sync.Once
	repo.BeforeCommit = func() {
		once.Do(func() {
			_, err := repo.CreateBid(context.Background(), pendingBid("bid-d", "job-1", "user-d", "wp-d", 600))
			require.NoError(t, err)
		})
	}
	handler := createTestHandler(t, repo, nil, nil)

	output, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, output.ClosedBids, "the late bid is closed too")

	bidD, _ := repo.GetBid(context.Background(), "bid-d")
	assert.Equal(t, models.BidClosed, bidD.Status)
}

func TestHandler_Execute_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := seedMarketplace()
	var n int
	repo.BeforeCommit = func() {
		n++
		id := fmt.Sprintf("user-x%d", n)
		repo.PutWorker(models.WorkerProfile{ID: "wp-" + id, UserID: id})
		_, err := repo.CreateBid(context.Background(), pendingBid("bid-"+id, "job-1", id, "", 999))
		require.NoError(t, err)
	}
	handler := createTestHandler(t, repo, nil, nil)

	_, err := handler.Execute(context.Background(), &Input{JobID: "job-1", BidID: "bid-a", HirerID: "owner-1"})
	assertCode(t, err, apperrors.ErrCodeDatabaseUpdateFailed)
	assert.Equal(t, 3, n)

	job, _ := repo.GetJob(context.Background(), "job-1")
	assert.Nil(t, job.HiredWorker)
}
