// Package queue defines the audit payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// Event types published on the auth.events queue.
const (
	EventUserRegistered  = "user.registered"
	EventPasswordChanged = "password.changed"
	EventPasswordReset   = "password.reset"
)

// AuthEvent is published after a security-relevant account change. It
// carries enough information for downstream consumers to log or alert
// without querying the primary database. No secret material (passwords,
// tokens, codes) is ever included.
type AuthEvent struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Email      string `json:"email"`
	OccurredAt string `json:"occurred_at"`
}
