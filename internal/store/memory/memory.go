// Package memory is an in-process implementation of store.Repository. It
// applies the same conditional-write rules as the PostgreSQL store and backs
// the worker and API tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"marketplace-workers/internal/core/bidding"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/store"
)

// Store keeps every record behind one mutex.
type Store struct {
	mu            sync.Mutex
	jobs          map[string]*models.Job
	bids          map[string]models.Bid
	workers       map[string]*models.WorkerProfile
	users         map[string]*models.User
	notifications []models.Notification

	// BeforeCommit, when set, runs inside CommitHire before the version check
	// with the lock released. Tests use it to interleave writers.
	BeforeCommit func()
}

// New returns an empty store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*models.Job),
		bids:    make(map[string]models.Bid),
		workers: make(map[string]*models.WorkerProfile),
		users:   make(map[string]*models.User),
	}
}

func cloneJob(j *models.Job) *models.Job {
	c := *j
	c.Bids = append([]models.EmbeddedBid(nil), j.Bids...)
	if j.HiredWorker != nil {
		hw := *j.HiredWorker
		c.HiredWorker = &hw
	}
	return &c
}

// PutJob seeds or replaces a job. A zero version starts at 1.
func (s *Store) PutJob(j models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.Version == 0 {
		j.Version = 1
	}
	s.jobs[j.ID] = cloneJob(&j)
}

// PutBid seeds or replaces a standalone bid.
func (s *Store) PutBid(b models.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[b.ID] = b
}

// PutWorker seeds a worker profile.
func (s *Store) PutWorker(w models.WorkerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[w.ID] = &w
}

// PutUser seeds an account.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// Notifications returns every stored notification.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}

func (s *Store) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *Store) GetJobs(_ context.Context, jobIDs []string) (map[string]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.Job, len(jobIDs))
	for _, id := range jobIDs {
		if j, ok := s.jobs[id]; ok {
			out[id] = cloneJob(j)
		}
	}
	return out, nil
}

func (s *Store) GetBid(_ context.Context, bidID string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[bidID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListBidsByJob(_ context.Context, jobID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.JobID == jobID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListBidsByWorker(_ context.Context, workerIDs []string, status models.BidStatus) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.Status != status {
			continue
		}
		for _, id := range workerIDs {
			if b.WorkerUserID == id || (b.WorkerProfileID != "" && b.WorkerProfileID == id) {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) ListJobsWithEmbeddedBids(_ context.Context, workerIDs []string, status models.BidStatus) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if len(bidding.EmbeddedForWorker(j, workerIDs, status)) > 0 {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.After(out[b].UpdatedAt) })
	return out, nil
}

func (s *Store) ResolveWorker(_ context.Context, ref string) (*models.WorkerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[ref]; ok {
		c := *w
		return &c, nil
	}
	for _, w := range s.workers {
		if w.UserID == ref {
			c := *w
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ResolveWorkers(ctx context.Context, refs []string) (map[string]*models.WorkerProfile, error) {
	out := make(map[string]*models.WorkerProfile, len(refs))
	for _, ref := range refs {
		if w, err := s.ResolveWorker(ctx, ref); err == nil {
			out[ref] = w
		}
	}
	return out, nil
}

func (s *Store) CreateBid(_ context.Context, bid models.Bid) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[bid.JobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !bidding.CanSubmitBid(bidding.NewJobStateContext(j)).Allowed {
		return nil, store.ErrJobClosed
	}
	for _, e := range j.Bids {
		if e.WorkerID == bid.WorkerUserID || (bid.WorkerProfileID != "" && e.WorkerID == bid.WorkerProfileID) {
			return nil, store.ErrDuplicate
		}
	}
	for _, b := range s.bids {
		if b.JobID == bid.JobID && b.WorkerUserID == bid.WorkerUserID {
			return nil, store.ErrDuplicate
		}
	}

	s.bids[bid.ID] = bid
	j.Bids = append(j.Bids, bid.Embedded())
	if j.Status == models.JobFindingWorkers {
		j.Status = models.JobBidding
	}
	j.Version++
	j.UpdatedAt = bid.CreatedAt
	return cloneJob(j), nil
}

func (s *Store) CommitHire(_ context.Context, cmd store.HireCommand) (*store.HireResult, error) {
	if s.BeforeCommit != nil {
		s.BeforeCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[cmd.Job.ID]
	if !ok || cur.Version != cmd.Job.Version || cur.HasHire() || cur.Status.IsClosed() {
		return nil, store.ErrJobChanged
	}

	plan := bidding.PlanEmbeddedHire(cur.Bids, cmd.Bid.ID, cmd.At)
	hired := bidding.HiredWorkerFor(cmd.Worker, cmd.Bid, cmd.At)

	cur.Bids = plan.Embedded
	cur.HiredWorker = hired
	cur.Status = models.JobHired
	cur.Version++
	cur.UpdatedAt = cmd.At

	if b, ok := s.bids[cmd.Bid.ID]; ok && bidding.CanTransition(b.Status, models.BidHired) {
		hiredAt := cmd.At
		b.Status = models.BidHired
		b.HiredAt = &hiredAt
		b.HiredBy = cmd.HirerID
		b.UpdatedAt = cmd.At
		s.bids[b.ID] = b
	}

	var closed []models.Bid
	for id, b := range s.bids {
		if b.JobID != cmd.Job.ID || id == cmd.Bid.ID || !bidding.CanTransition(b.Status, models.BidClosed) {
			continue
		}
		b.Status = models.BidClosed
		b.UpdatedAt = cmd.At
		s.bids[id] = b
		closed = append(closed, b)
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].ID < closed[j].ID })

	winner := cmd.Bid
	hiredAt := cmd.At
	winner.Status = models.BidHired
	winner.HiredAt = &hiredAt
	winner.HiredBy = cmd.HirerID
	winner.UpdatedAt = cmd.At

	return &store.HireResult{
		Job:    cloneJob(cur),
		Bid:    winner,
		Closed: bidding.MergeBids(closed, plan.ClosedBids(cur.ID)),
	}, nil
}

// GetUserForRef returns the account behind an account or profile id.
func (s *Store) GetUserForRef(_ context.Context, ref string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[ref]; ok {
		c := *u
		return &c, nil
	}
	if w, ok := s.workers[ref]; ok {
		if u, ok := s.users[w.UserID]; ok {
			c := *u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// InsertNotification records a notification.
func (s *Store) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

var _ store.Repository = (*Store)(nil)
