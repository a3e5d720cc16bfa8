package events

import (
	"time"
)

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	// Transfer events
	EventTypeTransferCompleted EventType = "Transfer.Completed"
	EventTypeTransferFailed    EventType = "Transfer.Failed"

	// Auth events
	EventTypeLoginSucceeded  EventType = "Login.Succeeded"
	EventTypeLoginFailed     EventType = "Login.Failed"
	EventTypeUserRegistered  EventType = "User.Registered"
	EventTypePasswordChanged EventType = "User.PasswordChanged"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// Event is anything published on the bus.
type Event interface {
	Type() string
}

// TransferCompleted is emitted after a transfer commits.
type TransferCompleted struct {
	TransactionID int64     `json:"transaction_id"`
	SenderID      int64     `json:"sender_id"`
	ReceiverID    int64     `json:"receiver_id"`
	AmountCents   int64     `json:"amount_cents"`
	Replayed      bool      `json:"replayed"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TransferFailed is emitted when a transfer is rejected after reaching storage.
type TransferFailed struct {
	TransactionID int64     `json:"transaction_id,omitempty"`
	SenderID      int64     `json:"sender_id"`
	ReceiverID    int64     `json:"receiver_id"`
	AmountCents   int64     `json:"amount_cents"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LoginSucceeded is emitted for every successful credential check.
type LoginSucceeded struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoginFailed is emitted for every rejected credential check.
type LoginFailed struct {
	Username   string    `json:"username"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserRegistered is emitted once a user and its account are committed.
type UserRegistered struct {
	UserID     int64     `json:"user_id"`
	AccountID  int64     `json:"account_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PasswordChanged is emitted after a user replaces their password.
type PasswordChanged struct {
	UserID     int64     `json:"user_id"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e TransferCompleted) Type() string { return EventTypeTransferCompleted.String() }
func (e TransferFailed) Type() string    { return EventTypeTransferFailed.String() }
func (e LoginSucceeded) Type() string    { return EventTypeLoginSucceeded.String() }
func (e LoginFailed) Type() string       { return EventTypeLoginFailed.String() }
func (e UserRegistered) Type() string    { return EventTypeUserRegistered.String() }
func (e PasswordChanged) Type() string   { return EventTypePasswordChanged.String() }

// EventTypes maps wire type names to constructors for decoding events
// received from an external broker.
var EventTypes = map[string]func() Event{
	EventTypeTransferCompleted.String(): func() Event { return &TransferCompleted{} },
	EventTypeTransferFailed.String():    func() Event { return &TransferFailed{} },
	EventTypeLoginSucceeded.String():    func() Event { return &LoginSucceeded{} },
	EventTypeLoginFailed.String():       func() Event { return &LoginFailed{} },
	EventTypeUserRegistered.String():    func() Event { return &UserRegistered{} },
	EventTypePasswordChanged.String():   func() Event { return &PasswordChanged{} },
}
