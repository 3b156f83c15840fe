// Package store is the PostgreSQL-backed Bid Store and Job Record access.
//
// Bids live in two shapes: standalone rows in the bids table and a legacy
// copy embedded in jobs.bids (JSONB). Every write touches both; every read
// that must be complete reads both and lets callers merge.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplace-workers/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a worker already has a bid on the job.
	ErrDuplicate = errors.New("duplicate bid")
	// ErrJobChanged is returned by CommitHire when the job row no longer
	// matches the version that was read. Callers re-read and decide.
	ErrJobChanged = errors.New("job changed since it was read")
	// ErrJobClosed is returned when a write finds the job already filled.
	ErrJobClosed = errors.New("job is no longer open")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is the storage surface the bidding workers depend on.
type Repository interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobs(ctx context.Context, jobIDs []string) (map[string]*models.Job, error)
	GetBid(ctx context.Context, bidID string) (*models.Bid, error)
	ListBidsByJob(ctx context.Context, jobID string) ([]models.Bid, error)
	ListBidsByWorker(ctx context.Context, workerIDs []string, status models.BidStatus) ([]models.Bid, error)
	ListJobsWithEmbeddedBids(ctx context.Context, workerIDs []string, status models.BidStatus) ([]*models.Job, error)
	ResolveWorker(ctx context.Context, ref string) (*models.WorkerProfile, error)
	ResolveWorkers(ctx context.Context, refs []string) (map[string]*models.WorkerProfile, error)
	CreateBid(ctx context.Context, bid models.Bid) (*models.Job, error)
	CommitHire(ctx context.Context, cmd HireCommand) (*HireResult, error)
}

// HireCommand carries everything CommitHire writes. Job must be the row as
// read by the caller; its Version guards the update.
type HireCommand struct {
	Job     *models.Job
	Bid     models.Bid
	Worker  *models.WorkerProfile
	HirerID string
	At      time.Time
}

// HireResult is the committed state of a hire.
type HireResult struct {
	Job    *models.Job
	Bid    models.Bid
	Closed []models.Bid
}

// Store implements Repository on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// inTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func statusStrings(statuses []models.BidStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func jobStatusStrings(statuses []models.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ Repository = (*Store)(nil)
