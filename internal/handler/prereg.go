package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/service"
)

// preRegRequest is the operator payload for POST /pre-registrations.
type preRegRequest struct {
	GuestName       string      `json:"guest_name"`
	Phone           string      `json:"phone"`
	Email           string      `json:"email"`
	CheckIn         domain.Date `json:"check_in"`
	CheckOut        domain.Date `json:"check_out"`
	ReservationCode string      `json:"reservation_code"`
	ExpirationDays  int         `json:"expiration_days"`
}

// preRegResponse decorates a pre-registration with the shareable link the
// operator sends to the guest.
type preRegResponse struct {
	domain.PreRegistration
	RegistrationLink string `json:"registration_link"`
}

func (s *Server) preRegToResponse(p domain.PreRegistration) preRegResponse {
	return preRegResponse{
		PreRegistration:  p,
		RegistrationLink: service.RegistrationLink(s.baseURL, p.Token),
	}
}

// CreatePreRegistration handles POST /pre-registrations.
func (s *Server) CreatePreRegistration(w http.ResponseWriter, r *http.Request) {
	var req preRegRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.preRegs.Issue(r.Context(), service.IssueInput{
		GuestName:       req.GuestName,
		Phone:           req.Phone,
		Email:           req.Email,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		ReservationCode: req.ReservationCode,
		ExpirationDays:  req.ExpirationDays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.preRegToResponse(created))
}

// ListPreRegistrations handles GET /pre-registrations.
// Expiry is observed lazily: an overdue pending row lists as expired even if
// the sweep has not flipped it yet.
func (s *Server) ListPreRegistrations(w http.ResponseWriter, r *http.Request) {
	items, err := s.preRegs.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	data := make([]preRegResponse, len(items))
	for i, p := range items {
		data[i] = s.preRegToResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// DeletePreRegistration handles DELETE /pre-registrations/{id}.
func (s *Server) DeletePreRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondBadRequest(w, "invalid id")
		return
	}

	if err := s.preRegs.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
