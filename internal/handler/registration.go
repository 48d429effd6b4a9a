package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/service"
)

// The guest surface never distinguishes between a token that does not exist,
// one that expired, and one that was already redeemed: every failure is the
// same generic response. Detailed errors here would let anyone enumerate
// live tokens.

// registrationPreview is what the guest sees before filling the form: the
// stay window and whatever the operator pre-filled, nothing else.
type registrationPreview struct {
	GuestName string      `json:"guest_name,omitempty"`
	CheckIn   domain.Date `json:"check_in"`
	CheckOut  domain.Date `json:"check_out"`
	ExpiresAt string      `json:"expires_at"`
}

// guestDetailsRequest is the registration form payload.
type guestDetailsRequest struct {
	GuestName  string             `json:"guest_name"`
	Phone      string             `json:"phone"`
	Email      string             `json:"email"`
	Country    string             `json:"country"`
	NumGuests  int                `json:"num_guests"`
	Companions []domain.Companion `json:"companions"`
	Vehicles   []domain.Vehicle   `json:"vehicles"`
}

// registrationConfirmation acknowledges a completed registration. The guest
// gets the stay window back, not the full operator-side record.
type registrationConfirmation struct {
	GuestName string      `json:"guest_name"`
	CheckIn   domain.Date `json:"check_in"`
	CheckOut  domain.Date `json:"check_out"`
	NumGuests int         `json:"num_guests"`
}

// PreviewRegistration handles GET /registration?token=.
// Returns the stay window for a live pending token so the form can render.
func (s *Server) PreviewRegistration(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondGuestInvalid(w)
		return
	}

	p, err := s.preRegs.GetByToken(r.Context(), token)
	if err != nil {
		if isGuestTokenError(err) {
			respondGuestInvalid(w)
			return
		}
		respondError(w, err)
		return
	}
	if p.Status != domain.PreRegPending {
		respondGuestInvalid(w)
		return
	}

	writeJSON(w, http.StatusOK, registrationPreview{
		GuestName: p.GuestName,
		CheckIn:   p.CheckIn,
		CheckOut:  p.CheckOut,
		ExpiresAt: p.ExpiresAt.Format(time.RFC3339),
	})
}

// RedeemRegistration handles POST /registration?token=.
// Turns a pending token into a reservation. Of two concurrent submissions
// exactly one succeeds; the loser gets the same generic response as any
// other dead token.
func (s *Server) RedeemRegistration(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondGuestInvalid(w)
		return
	}

	var req guestDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	res, err := s.preRegs.Redeem(r.Context(), token, service.GuestDetails{
		GuestName:  req.GuestName,
		Phone:      req.Phone,
		Email:      req.Email,
		Country:    req.Country,
		NumGuests:  req.NumGuests,
		Companions: req.Companions,
		Vehicles:   req.Vehicles,
	})
	if err != nil {
		if isGuestTokenError(err) {
			respondGuestInvalid(w)
			return
		}
		respondError(w, err) // validation errors about the form are safe to detail
		return
	}

	writeJSON(w, http.StatusCreated, registrationConfirmation{
		GuestName: res.GuestName,
		CheckIn:   res.CheckIn,
		CheckOut:  res.CheckOut,
		NumGuests: res.NumGuests,
	})
}

// guestListsRequest is the payload for the post-registration companions and
// vehicles update.
type guestListsRequest struct {
	Companions []domain.Companion `json:"companions"`
	Vehicles   []domain.Vehicle   `json:"vehicles"`
}

// UpdateRegistrationDetails handles PUT /registration/{token}/details.
// After redeeming, the guest keeps their token as the key to one write: the
// companion and vehicle lists on their own reservation.
func (s *Server) UpdateRegistrationDetails(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	p, err := s.preRegs.GetByToken(r.Context(), token)
	if err != nil {
		if isGuestTokenError(err) {
			respondGuestInvalid(w)
			return
		}
		respondError(w, err)
		return
	}
	if p.Status != domain.PreRegRegistered || p.ReservationID == nil {
		respondGuestInvalid(w)
		return
	}

	var req guestListsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	updated, err := s.reservations.UpdateGuestLists(r.Context(), *p.ReservationID, req.Companions, req.Vehicles)
	if err != nil {
		if isGuestTokenError(err) {
			respondGuestInvalid(w)
			return
		}
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registrationConfirmation{
		GuestName: updated.GuestName,
		CheckIn:   updated.CheckIn,
		CheckOut:  updated.CheckOut,
		NumGuests: updated.NumGuests,
	})
}

// isGuestTokenError reports whether err is one of the token failures that
// must collapse into the generic guest response.
func isGuestTokenError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrExpired) ||
		errors.Is(err, domain.ErrAlreadyUsed)
}
