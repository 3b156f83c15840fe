// internal/models/worker.go
package models

// WorkerProfile is the service-provider record. It is distinct from the
// account (User) record: ID is the profile id, UserID the account id.
type WorkerProfile struct {
	ID       string   `json:"id"`
	UserID   string   `json:"userId"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone,omitempty"`
	Rating   float64  `json:"rating"`
	Services []string `json:"services,omitempty"`
}

// Identifiers returns every id a bid may carry for this worker.
func (w *WorkerProfile) Identifiers() []string {
	if w.UserID == "" || w.UserID == w.ID {
		return []string{w.ID}
	}
	return []string{w.UserID, w.ID}
}

// User is the account record shared by clients and workers.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PushEndpoint string `json:"-"`
}
