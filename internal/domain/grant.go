package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessGrant is a time-bounded credential (door code) tied to one
// reservation's active window. The window runs from check-in day through
// check-out day plus a grace period. A grant row existing does not mean the
// credential is disclosable — disclosure is re-evaluated against the live
// reservation status on every call.
type AccessGrant struct {
	ID            uuid.UUID  `json:"id"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	Location      string     `json:"location"` // e.g. "front door", "parking gate"
	Credential    string     `json:"credential,omitempty"`
	ValidFrom     Date       `json:"valid_from"`
	ValidUntil    Date       `json:"valid_until"` // check-out + grace
	WithdrawnAt   *time.Time `json:"withdrawn_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Withdrawn reports whether the grant has been withdrawn.
func (g AccessGrant) Withdrawn() bool {
	return g.WithdrawnAt != nil
}

// InWindow reports whether day falls inside the grant's validity window,
// check-out grace day included: [ValidFrom, ValidUntil].
func (g AccessGrant) InWindow(day Date) bool {
	return !day.Before(g.ValidFrom) && !day.After(g.ValidUntil)
}
