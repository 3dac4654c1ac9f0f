package models

import "time"

type SessionState string

const (
	SessionStateActive  SessionState = "active"
	SessionStateRevoked SessionState = "revoked"
	SessionStateExpired SessionState = "expired"
)

// Session is the ledger record of an issued token.
type Session struct {
	ID           int64
	Token        string
	UserID       int64
	IPAddress    *string
	UserAgent    *string
	IsActive     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}

// StateAt derives the session state. Expiry is never stored, only computed.
func (s Session) StateAt(now time.Time) SessionState {
	if !s.IsActive {
		return SessionStateRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return SessionStateExpired
	}
	return SessionStateActive
}
