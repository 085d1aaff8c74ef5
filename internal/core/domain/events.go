package domain

import "time"

// AccountRegisteredEvent is emitted once an OTP-verified account is persisted.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Role         Role
	Email        string
	Name         string
	Country      string
	RegisteredAt time.Time
}

// PasswordResetEvent is emitted after a forgotten password is replaced.
type PasswordResetEvent struct {
	EventID   string
	AccountID string
	Role      Role
	Email     string
	ResetAt   time.Time
}
