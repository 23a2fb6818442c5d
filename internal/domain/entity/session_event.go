package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session event types
const (
	SessionEventSignedOut   = "signed_out"
	SessionEventSessionLost = "session_lost"
)

// SessionEvent notifies guards watching an owner's session
type SessionEvent struct {
	Type    string    `json:"type"`
	OwnerID uuid.UUID `json:"owner_id"`
	TokenID string    `json:"token_id,omitempty"`
	At      time.Time `json:"at"`
}

// EndsSession reports whether the event invalidates the owner's session
func (e SessionEvent) EndsSession() bool {
	return e.Type == SessionEventSignedOut || e.Type == SessionEventSessionLost
}
