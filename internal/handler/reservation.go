package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// reservationRequest is the write payload for POST and PUT /reservations.
// Dates are civil "2006-01-02" strings; check_in_time / check_out_time are
// informational wall-clock strings and never affect status resolution.
type reservationRequest struct {
	GuestName    string             `json:"guest_name"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email"`
	Country      string             `json:"country"`
	CheckIn      domain.Date        `json:"check_in"`
	CheckOut     domain.Date        `json:"check_out"`
	CheckInTime  string             `json:"check_in_time"`
	CheckOutTime string             `json:"check_out_time"`
	NumGuests    int                `json:"num_guests"`
	Source       domain.Source      `json:"source"`
	TotalAmount  float64            `json:"total_amount"`
	IsPaid       bool               `json:"is_paid"`
	Pending      bool               `json:"pending"`
	Companions   []domain.Companion `json:"companions"`
	Vehicles     []domain.Vehicle   `json:"vehicles"`
	Notes        string             `json:"notes"`
}

func (req reservationRequest) toDomain() domain.Reservation {
	return domain.Reservation{
		GuestName:    req.GuestName,
		Phone:        req.Phone,
		Email:        req.Email,
		Country:      req.Country,
		CheckIn:      req.CheckIn,
		CheckOut:     req.CheckOut,
		CheckInTime:  req.CheckInTime,
		CheckOutTime: req.CheckOutTime,
		NumGuests:    req.NumGuests,
		Source:       req.Source,
		TotalAmount:  req.TotalAmount,
		IsPaid:       req.IsPaid,
		Pending:      req.Pending,
		Companions:   req.Companions,
		Vehicles:     req.Vehicles,
		Notes:        req.Notes,
	}
}

// CreateReservation handles POST /reservations.
func (s *Server) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.reservations.Create(r.Context(), req.toDomain())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListReservations handles GET /reservations.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20,
// max=100).
func (s *Server) ListReservations(w http.ResponseWriter, r *http.Request) {
	params := domain.NewPaginationParams(queryInt(r, "page"), queryInt(r, "limit"))
	items, total, err := s.reservations.ListPaged(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"pagination": map[string]int{
			"page":  params.Page,
			"limit": params.Limit,
			"total": int(total),
		},
	})
}

// GetReservation handles GET /reservations/{id}.
func (s *Server) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := s.reservations.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetReservationStatus handles GET /reservations/{id}/status.
// The status is derived on every call; nothing is stored or scheduled.
func (s *Server) GetReservationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	status, err := s.lifecycle.Status(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Status{"status": status})
}

// UpdateReservation handles PUT /reservations/{id}.
func (s *Server) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	res := req.toDomain()
	res.ID = id

	updated, err := s.reservations.Update(r.Context(), res)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CancelReservation handles POST /reservations/{id}/cancel.
// Cancelling twice is not an error; the second call returns the already
// cancelled record unchanged.
func (s *Server) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cancelled, err := s.reservations.Cancel(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

// DeleteReservation handles DELETE /reservations/{id}.
func (s *Server) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.reservations.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCurrentReservation handles GET /reservations/current.
// 404 when nobody is staying; 409 when the store holds two reservations
// occupying today (an overlap a human has to untangle).
func (s *Server) GetCurrentReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.lifecycle.Current(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetNextReservation handles GET /reservations/next.
func (s *Server) GetNextReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.lifecycle.Next(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// pathID extracts and parses the {id} path parameter. On failure it writes
// the error response itself and returns ok=false.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondBadRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter, nil when absent or
// malformed.
func queryInt(r *http.Request, name string) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
