// internal/notifier/models.go
package notifier

import "fmt"

// Message is one user-facing notification. UserRef may be an account id or a
// worker-profile id.
type Message struct {
	UserRef  string
	Type     string
	Title    string
	Body     string
	Data     map[string]interface{}
	DedupKey string
}

// Delivery statuses recorded on the notification row.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
	StatusStored = "stored"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelInApp = "in_app"
)

// Actions used in de-duplication keys.
const (
	ActionHired  = "hired"
	ActionClosed = "closed"
	ActionNewBid = "new_bid"
)

// DedupKey builds the key that suppresses repeated sends of one event.
func DedupKey(jobID, action, userID string) string {
	return fmt.Sprintf("notify:%s:%s:%s", jobID, action, userID)
}
