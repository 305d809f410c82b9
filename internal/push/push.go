// Package push implements the new-message notification fan-out and the
// collaborator interfaces it depends on. Delivery is best-effort: a failure
// for one recipient never aborts delivery to the others.
package push

// Notification is the payload handed to the push collaborator and recorded in
// the recipient's inbox.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt int64             `json:"createdAt"`
	Read      bool              `json:"read"`
}
