package store

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-workers/internal/models"
)

// InsertNotification persists a notification record.
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	var data []byte
	if len(n.Data) > 0 {
		var err error
		if data, err = json.Marshal(n.Data); err != nil {
			return fmt.Errorf("failed to encode notification data: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, channel, title, body, status, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Type, n.Channel, n.Title, n.Body, n.Status, data, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}
