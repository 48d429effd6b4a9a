// Package domain contains the core data types for the Casita reservations
// backend. This package has zero SQL and zero HTTP and is imported by every
// other internal package (calendar, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies where a reservation originated.
type Source string

const (
	// SourceDirect marks reservations entered by the operator.
	SourceDirect Source = "direct"
	// SourceChannel marks reservations imported from the external calendar feed.
	SourceChannel Source = "channel"
	// SourceOther covers everything else (phone bookings, walk-ins).
	SourceOther Source = "other"
)

// Companion is a guest accompanying the primary guest, collected during
// self-registration and editable by the guest afterwards.
type Companion struct {
	Name     string `json:"name"`
	Document string `json:"document,omitempty"`
}

// Vehicle is a guest vehicle registered for on-site parking.
type Vehicle struct {
	Plate string `json:"plate"`
	Model string `json:"model,omitempty"`
}

// Reservation is a confirmed or provisional stay record.
// CheckIn and CheckOut are civil dates; CheckInTime and CheckOutTime are
// informational "15:00"-style wall-clock strings and take no part in status
// resolution. Pending and CancelledAt are authoritative operator-set flags;
// upcoming/current/completed are derived by ResolveStatus and never stored.
type Reservation struct {
	ID              uuid.UUID   `json:"id"`
	GuestName       string      `json:"guest_name"`
	Phone           string      `json:"phone,omitempty"`
	Email           string      `json:"email,omitempty"`
	Country         string      `json:"country,omitempty"`
	CheckIn         Date        `json:"check_in"`
	CheckOut        Date        `json:"check_out"`
	CheckInTime     string      `json:"check_in_time,omitempty"`
	CheckOutTime    string      `json:"check_out_time,omitempty"`
	NumGuests       int         `json:"num_guests"`
	Source          Source      `json:"source"`
	ReservationCode string      `json:"reservation_code,omitempty"` // external channel confirmation code
	TotalAmount     float64     `json:"total_amount"`
	IsPaid          bool        `json:"is_paid"`
	Pending         bool        `json:"pending"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"` // set once, never cleared
	Companions      []Companion `json:"companions,omitempty"`
	Vehicles        []Vehicle   `json:"vehicles,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Cancelled reports whether the reservation has been cancelled.
// Cancellation is one-way; reactivation requires a new reservation.
func (r Reservation) Cancelled() bool {
	return r.CancelledAt != nil
}

// Nights returns the stay length in nights.
func (r Reservation) Nights() int {
	return r.CheckIn.DaysUntil(r.CheckOut)
}

// Occupies reports whether day falls inside the stay window.
// The check-out day itself is not occupied: [CheckIn, CheckOut).
func (r Reservation) Occupies(day Date) bool {
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}
