package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"marketplace-workers/internal/models"
)

const jobSelectCols = "id, owner_id, service_name, description, budget, schedule, address, status, bids, hired_worker, version, created_at, updated_at"

func scanJob(scanner interface {
	Scan(dest ...any) error
}) (*models.Job, error) {
	var (
		job       models.Job
		bidsJSON  []byte
		hiredJSON []byte
		status    string
	)

	err := scanner.Scan(
		&job.ID, &job.OwnerID, &job.ServiceName, &job.Description, &job.Budget,
		&job.Schedule, &job.Address, &status, &bidsJSON, &hiredJSON,
		&job.Version, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)

	if len(bidsJSON) > 0 {
		if err := json.Unmarshal(bidsJSON, &job.Bids); err != nil {
			return nil, fmt.Errorf("failed to decode embedded bids of job %s: %w", job.ID, err)
		}
	}
	if len(hiredJSON) > 0 && string(hiredJSON) != "null" {
		var hw models.HiredWorker
		if err := json.Unmarshal(hiredJSON, &hw); err != nil {
			return nil, fmt.Errorf("failed to decode hired worker of job %s: %w", job.ID, err)
		}
		job.HiredWorker = &hw
	}

	return &job, nil
}

func getJob(ctx context.Context, q DBTX, jobID string, forUpdate bool) (*models.Job, error) {
	query := "SELECT " + jobSelectCols + " FROM jobs WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	job, err := scanJob(q.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetJob reads one job with its embedded bids.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return getJob(ctx, s.db, jobID, false)
}

// GetJobs reads jobs by id. Missing ids are absent from the map.
func (s *Store) GetJobs(ctx context.Context, jobIDs []string) (map[string]*models.Job, error) {
	out := make(map[string]*models.Job, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobSelectCols+" FROM jobs WHERE id = ANY($1)",
		pq.Array(jobIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out[job.ID] = job
	}
	return out, rows.Err()
}

// ListJobsWithEmbeddedBids returns jobs whose embedded list has an entry for
// any of workerIDs in the given status.
func (s *Store) ListJobsWithEmbeddedBids(ctx context.Context, workerIDs []string, status models.BidStatus) ([]*models.Job, error) {
	if len(workerIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobSelectCols+`
		FROM jobs
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(jobs.bids) AS e
			WHERE e->>'workerId' = ANY($1) AND e->>'status' = $2
		)
		ORDER BY updated_at DESC`,
		pq.Array(workerIDs), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs with embedded bids: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// appendEmbeddedBid writes the legacy copy of a new bid onto a locked job row
// and moves a fresh job from finding_workers to bidding.
func appendEmbeddedBid(ctx context.Context, tx DBTX, job *models.Job, bid models.Bid) error {
	bids := append(append([]models.EmbeddedBid(nil), job.Bids...), bid.Embedded())
	bidsJSON, err := json.Marshal(bids)
	if err != nil {
		return fmt.Errorf("failed to encode embedded bids: %w", err)
	}

	status := job.Status
	if status == models.JobFindingWorkers {
		status = models.JobBidding
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET bids = $1, status = $2, version = version + 1, updated_at = $3
		WHERE id = $4`,
		bidsJSON, string(status), bid.CreatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to append embedded bid: %w", err)
	}

	job.Bids = bids
	job.Status = status
	job.Version++
	job.UpdatedAt = bid.CreatedAt
	return nil
}

// hireJobIfOpen is the conditional write that makes a hire exclusive. It only
// matches when the row is still at the read version, carries no hire and is
// not in a closed status.
func hireJobIfOpen(ctx context.Context, tx DBTX, job *models.Job, bids []models.EmbeddedBid, hired *models.HiredWorker, at time.Time) (bool, error) {
	bidsJSON, err := json.Marshal(bids)
	if err != nil {
		return false, fmt.Errorf("failed to encode embedded bids: %w", err)
	}
	hiredJSON, err := json.Marshal(hired)
	if err != nil {
		return false, fmt.Errorf("failed to encode hired worker: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET bids = $1, hired_worker = $2, status = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6 AND (hired_worker IS NULL OR hired_worker = 'null'::jsonb) AND NOT (status = ANY($7))`,
		bidsJSON, hiredJSON, string(models.JobHired), at,
		job.ID, job.Version, pq.Array(jobStatusStrings(models.ClosedJobStatuses)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
