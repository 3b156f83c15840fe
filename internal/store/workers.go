package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"marketplace-workers/internal/models"
)

const workerSelectCols = "id, user_id, name, phone, rating, services"

func scanWorker(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkerProfile, error) {
	var w models.WorkerProfile
	if err := scanner.Scan(&w.ID, &w.UserID, &w.Name, &w.Phone, &w.Rating, pq.Array(&w.Services)); err != nil {
		return nil, err
	}
	return &w, nil
}

// ResolveWorker finds a worker profile by either its profile id or its
// account id. A profile id match wins when both would match.
func (s *Store) ResolveWorker(ctx context.Context, ref string) (*models.WorkerProfile, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx, `
		SELECT `+workerSelectCols+`
		FROM worker_profiles
		WHERE id = $1 OR user_id = $1
		ORDER BY (id = $1) DESC
		LIMIT 1`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worker: %w", err)
	}
	return w, nil
}

// ResolveWorkers resolves many references at once. The result is keyed by
// every reference that matched, profile id or account id.
func (s *Store) ResolveWorkers(ctx context.Context, refs []string) (map[string]*models.WorkerProfile, error) {
	out := make(map[string]*models.WorkerProfile, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+workerSelectCols+`
		FROM worker_profiles
		WHERE id = ANY($1) OR user_id = ANY($1)`, pq.Array(refs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		out[w.ID] = w
		if w.UserID != "" {
			if _, taken := out[w.UserID]; !taken {
				out[w.UserID] = w
			}
		}
	}
	return out, rows.Err()
}

// GetUserForRef returns the account behind ref, which may be an account id
// or a worker-profile id.
func (s *Store) GetUserForRef(ctx context.Context, ref string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, push_endpoint
		FROM users
		WHERE id = $1 OR id = (SELECT user_id FROM worker_profiles WHERE id = $1)
		ORDER BY (id = $1) DESC
		LIMIT 1`, ref).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PushEndpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
