package audit

import "time"

// Actions recorded in the audit trail.
const (
	ActionTransferCompleted = "transfer_completed"
	ActionTransferFailed    = "transfer_failed"
	ActionLoginSucceeded    = "login_succeeded"
	ActionLoginFailed       = "login_failed"
	ActionUserRegistered    = "user_registered"
	ActionPasswordChanged   = "password_changed"
)

// Entry is one append-only audit record. UserID is nil when the actor is
// unknown, for example a login attempt against a missing username.
type Entry struct {
	ID        int64          `json:"id"`
	UserID    *int64         `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
