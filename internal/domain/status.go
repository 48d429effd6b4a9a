package domain

import "time"

// Status is a reservation's lifecycle status.
// Pending and StatusCancelled reflect stored operator decisions; the three
// temporal states are recomputed from the stay window on every read. The two
// kinds are kept apart on purpose — collapsing them into one stored enum is
// how cancelled reservations come back from the dead.
type Status string

const (
	StatusPending   Status = "pending"   // operator-set: awaiting confirmation
	StatusUpcoming  Status = "upcoming"  // derived: today is before check-in
	StatusCurrent   Status = "current"   // derived: today is inside the stay window
	StatusCompleted Status = "completed" // derived: today is on or after check-out
	StatusCancelled Status = "cancelled" // operator-set: terminal
)

// ResolveStatus derives the lifecycle status of r at instant now.
// Precedence: the cancelled flag is terminal and beats everything; the
// pending flag beats the date rules; otherwise the status is a pure function
// of (CheckIn, CheckOut, today). Pure — callers may invoke it concurrently
// with no coordination.
func ResolveStatus(r Reservation, now time.Time) Status {
	if r.Cancelled() {
		return StatusCancelled
	}
	if r.Pending {
		return StatusPending
	}
	return computeTemporalStatus(r.CheckIn, r.CheckOut, DateOf(now))
}

// computeTemporalStatus applies the date rules on civil dates only:
// upcoming before check-in, current within [check-in, check-out), completed
// from check-out day onward.
func computeTemporalStatus(checkIn, checkOut, today Date) Status {
	switch {
	case today.Before(checkIn):
		return StatusUpcoming
	case today.Before(checkOut):
		return StatusCurrent
	default:
		return StatusCompleted
	}
}
