package domain

// ExternalBookingEvent is one stay parsed from the third-party calendar feed.
// It is transient: events live only for the duration of a reconciliation
// pass and are never persisted. Start and End are civil dates, normalized in
// the property timezone at parse time — all-day and timestamped feed entries
// land on the same representation.
type ExternalBookingEvent struct {
	UID             string
	Summary         string
	Description     string
	Status          string // feed-reported status, e.g. CONFIRMED or CANCELLED
	Start           Date
	End             Date
	ReservationCode string // extracted from the event text; empty for owner blocks
}

// Cancelled reports whether the feed marked this event withdrawn.
func (e ExternalBookingEvent) Cancelled() bool {
	return e.Status == "CANCELLED"
}

// ImportCandidate is an unmatched future feed event the operator may accept
// into a channel-sourced Reservation.
type ImportCandidate struct {
	EventUID        string `json:"event_uid"`
	Summary         string `json:"summary"`
	ReservationCode string `json:"reservation_code"`
	CheckIn         Date   `json:"check_in"`
	CheckOut        Date   `json:"check_out"`
}

// Conflict records a disagreement between a feed event and a stored record
// (or pre-registration) that share a reservation code but not dates.
// Conflicts require a human decision and are never auto-resolved.
type Conflict struct {
	ReservationCode string `json:"reservation_code"`
	EventUID        string `json:"event_uid"`
	EventCheckIn    Date   `json:"event_check_in"`
	EventCheckOut   Date   `json:"event_check_out"`
	StoredCheckIn   Date   `json:"stored_check_in"`
	StoredCheckOut  Date   `json:"stored_check_out"`
	Detail          string `json:"detail"`
}

// ReconcileResult is the outcome of one reconciliation pass.
// Running reconcile again on unchanged inputs produces the same result.
type ReconcileResult struct {
	NewCandidates []ImportCandidate `json:"new_candidates"`
	MatchedCount  int               `json:"matched_count"`
	Conflicts     []Conflict        `json:"conflicts"`
}
