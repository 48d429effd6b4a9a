package domain

import (
	"time"

	"github.com/google/uuid"
)

// PreRegStatus is the state of a pre-registration token.
// This is a separate state machine from Reservation status; the shared word
// "pending" is coincidence, not shared code.
type PreRegStatus string

const (
	PreRegPending    PreRegStatus = "pending"    // issued, not yet redeemed
	PreRegRegistered PreRegStatus = "registered" // redeemed into a Reservation (terminal)
	PreRegExpired    PreRegStatus = "expired"    // expires_at passed before redemption (terminal)
)

// PreRegistration is a time-limited invitation letting a prospective guest
// self-register before arrival. The token is single-use: pending → registered
// is the only forward transition, enforced as a conditional update in the
// store. When issued from a calendar event, CheckIn/CheckOut and
// ReservationCode are copied verbatim and never mutated afterwards.
type PreRegistration struct {
	ID              uuid.UUID    `json:"id"`
	Token           string       `json:"token"`
	GuestName       string       `json:"guest_name"`
	Phone           string       `json:"phone,omitempty"`
	Email           string       `json:"email,omitempty"`
	CheckIn         Date         `json:"check_in"`
	CheckOut        Date         `json:"check_out"`
	ReservationCode string       `json:"reservation_code,omitempty"`
	ExpiresAt       time.Time    `json:"expires_at"`
	Status          PreRegStatus `json:"status"`
	ReservationID   *uuid.UUID   `json:"reservation_id,omitempty"` // set on redemption
	RegisteredAt    *time.Time   `json:"registered_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// EffectiveStatus returns the status as of now, observing expiry lazily:
// a stored pending row whose ExpiresAt has passed reads as expired without
// waiting for the sweep to flip it.
func (p PreRegistration) EffectiveStatus(now time.Time) PreRegStatus {
	if p.Status == PreRegPending && now.After(p.ExpiresAt) {
		return PreRegExpired
	}
	return p.Status
}
