package queue

// Event types published on the auth.events queue.
const (
	EventRegistered = "session.registered"
	EventLoggedIn   = "session.logged_in"
	EventRefreshed  = "session.refreshed"
	EventLoggedOut  = "session.logged_out"
)

// AuthEvent is published after each successful lifecycle operation. It
// carries enough information for downstream consumers to audit or alert
// without querying the primary database. TokenID identifies the access token
// the event relates to; it is empty for logout events triggered without a
// decoded token.
type AuthEvent struct {
	Type      string `json:"type"`
	SubjectID string `json:"subject_id"`
	Email     string `json:"email,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	At        string `json:"at"`
}
