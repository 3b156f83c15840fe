package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"marketplace-workers/internal/models"
)

const bidSelectCols = "id, job_id, worker_user_id, worker_profile_id, amount, message, status, created_at, updated_at, hired_at, hired_by"

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint hit.
const uniqueViolation = "23505"

func scanBid(scanner interface {
	Scan(dest ...any) error
}) (models.Bid, error) {
	var (
		bid       models.Bid
		profileID sql.NullString
		status    string
		hiredAt   sql.NullTime
		hiredBy   sql.NullString
	)

	err := scanner.Scan(
		&bid.ID, &bid.JobID, &bid.WorkerUserID, &profileID, &bid.Amount, &bid.Message,
		&status, &bid.CreatedAt, &bid.UpdatedAt, &hiredAt, &hiredBy,
	)
	if err != nil {
		return models.Bid{}, err
	}

	bid.Status = models.BidStatus(status)
	bid.WorkerProfileID = profileID.String
	bid.HiredBy = hiredBy.String
	if hiredAt.Valid {
		t := hiredAt.Time
		bid.HiredAt = &t
	}
	return bid, nil
}

func scanBids(rows *sql.Rows) ([]models.Bid, error) {
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertBid(ctx context.Context, q DBTX, bid models.Bid) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO bids (id, job_id, worker_user_id, worker_profile_id, amount, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bid.ID, bid.JobID, bid.WorkerUserID, nullString(bid.WorkerProfileID),
		bid.Amount, bid.Message, string(bid.Status), bid.CreatedAt, bid.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBid reads one standalone bid.
func (s *Store) GetBid(ctx context.Context, bidID string) (*models.Bid, error) {
	bid, err := scanBid(s.db.QueryRowContext(ctx,
		"SELECT "+bidSelectCols+" FROM bids WHERE id = $1", bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// ListBidsByJob returns the standalone bids of a job, oldest first.
func (s *Store) ListBidsByJob(ctx context.Context, jobID string) ([]models.Bid, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bidSelectCols+" FROM bids WHERE job_id = $1 ORDER BY created_at ASC", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids by job: %w", err)
	}
	return scanBids(rows)
}

// ListBidsByWorker returns standalone bids in the given status whose worker
// reference matches any of workerIDs, under either the account or the
// profile column.
func (s *Store) ListBidsByWorker(ctx context.Context, workerIDs []string, status models.BidStatus) ([]models.Bid, error) {
	if len(workerIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bidSelectCols+`
		FROM bids
		WHERE (worker_user_id = ANY($1) OR worker_profile_id = ANY($1)) AND status = $2
		ORDER BY updated_at DESC`,
		pq.Array(workerIDs), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids by worker: %w", err)
	}
	return scanBids(rows)
}

func transitionBid(ctx context.Context, q DBTX, bidID string, from []models.BidStatus, to models.BidStatus, at time.Time, actor string) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE bids
		SET status = $1,
			updated_at = $2,
			hired_at = CASE WHEN $1 = 'hired' THEN $2 ELSE hired_at END,
			hired_by = CASE WHEN $1 = 'hired' THEN $3 ELSE hired_by END
		WHERE id = $4 AND status = ANY($5)`,
		string(to), at, nullString(actor), bidID, pq.Array(statusStrings(from)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// TransitionBid atomically moves one standalone bid to `to`, but only from
// one of the `from` statuses. It reports whether a row changed.
func (s *Store) TransitionBid(ctx context.Context, bidID string, from []models.BidStatus, to models.BidStatus, actor string) (bool, error) {
	return transitionBid(ctx, s.db, bidID, from, to, time.Now().UTC(), actor)
}

func closeOtherBids(ctx context.Context, q DBTX, jobID, exceptBidID string, at time.Time) ([]models.Bid, error) {
	rows, err := q.QueryContext(ctx, `
		UPDATE bids
		SET status = $1, updated_at = $2
		WHERE job_id = $3 AND id <> $4 AND status = ANY($5)
		RETURNING `+bidSelectCols,
		string(models.BidClosed), at, jobID, exceptBidID,
		pq.Array(statusStrings(models.OpenBidStatuses)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to close competing bids: %w", err)
	}
	return scanBids(rows)
}

// CloseOtherBids atomically closes every open standalone bid of a job except
// one and returns the rows it changed. Running it again changes nothing.
func (s *Store) CloseOtherBids(ctx context.Context, jobID, exceptBidID string) ([]models.Bid, error) {
	return closeOtherBids(ctx, s.db, jobID, exceptBidID, time.Now().UTC())
}
