package handler

import (
	"net/http"
)

// GrantAccess handles POST /reservations/{id}/access.
// Issues or refreshes the door credential for a reservation. Re-granting
// moves the validity window but keeps the code the guest was already told.
func (s *Server) GrantAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	grant, err := s.access.Grant(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

// DiscloseAccess handles GET /reservations/{id}/access.
// Disclosure is re-evaluated against the live reservation status on every
// call: a completed or cancelled stay gets 410 and the grant is withdrawn;
// an upcoming stay outside the pre-arrival window gets the grant with the
// credential withheld.
func (s *Server) DiscloseAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	grant, err := s.access.Disclose(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}
