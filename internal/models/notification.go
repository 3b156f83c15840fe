// internal/models/notification.go
package models

import "time"

type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      string                 `json:"type"`    // "bid_hired", "bid_closed", "new_bid"
	Channel   string                 `json:"channel"` // "push", "email"
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Status    string                 `json:"status"` // "sent", "failed", "stored"
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Notification types
const (
	NotificationBidHired  = "bid_hired"
	NotificationBidClosed = "bid_closed"
	NotificationNewBid    = "new_bid"
)
