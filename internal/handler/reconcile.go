package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// GetReconciliation handles GET /reconciliation.
// Runs one pass over the cached feed events; never fetches the feed itself,
// so the response time does not depend on the channel being reachable.
// Before the first successful fetch the result is simply empty.
func (s *Server) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	result, err := s.reconcile.Run(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	// Empty slices serialize as [], not null.
	if result.NewCandidates == nil {
		result.NewCandidates = []domain.ImportCandidate{}
	}
	if result.Conflicts == nil {
		result.Conflicts = []domain.Conflict{}
	}
	writeJSON(w, http.StatusOK, result)
}

// importRequest is the payload for POST /reservations/import: the candidate
// as reconciliation reported it, plus an optional guest name to replace the
// feed's summary line.
type importRequest struct {
	Candidate domain.ImportCandidate `json:"candidate"`
	GuestName string                 `json:"guest_name"`
}

// ImportReservation handles POST /reservations/import.
// Accepts an import candidate into a channel-sourced reservation. The stay
// window and reservation code come from the candidate verbatim; the next
// reconciliation pass matches the event instead of re-suggesting it.
func (s *Server) ImportReservation(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.reservations.AcceptCandidate(r.Context(), req.Candidate, req.GuestName)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
