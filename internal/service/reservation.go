package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// ReservationService implements business logic for Reservation operations.
// It holds the lifecycle service as well because cancellation must
// invalidate the current-reservation cache before returning.
type ReservationService struct {
	reservations repo.ReservationRepo
	lifecycle    *LifecycleService

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewReservationService constructs a ReservationService backed by the
// provided repo. lifecycle may be nil in tests that never cancel.
func NewReservationService(reservations repo.ReservationRepo, lifecycle *LifecycleService) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		lifecycle:    lifecycle,
		Now:          time.Now,
	}
}

// Create validates and persists a new reservation.
// Returns domain.ErrValidation if input violates business rules.
func (s *ReservationService) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	if err := validateReservation(r); err != nil {
		return domain.Reservation{}, err
	}
	if r.Source == "" {
		r.Source = domain.SourceDirect
	}
	if r.NumGuests == 0 {
		r.NumGuests = 1
	}

	result, err := s.reservations.Create(ctx, r)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Create: %w", err)
	}
	return result, nil
}

// AcceptCandidate materializes an import candidate from reconciliation into
// a channel-sourced reservation. The window and code are copied verbatim,
// preserving the link to the external booking; re-running reconcile
// afterwards matches the event and emits nothing.
func (s *ReservationService) AcceptCandidate(ctx context.Context, c domain.ImportCandidate, guestName string) (domain.Reservation, error) {
	if c.ReservationCode == "" {
		return domain.Reservation{}, fmt.Errorf("%w: candidate has no reservation code", domain.ErrValidation)
	}
	if !c.CheckOut.After(c.CheckIn) {
		return domain.Reservation{}, fmt.Errorf("%w: check-out must be after check-in", domain.ErrValidation)
	}
	if guestName == "" {
		guestName = c.Summary
	}

	result, err := s.reservations.Create(ctx, domain.Reservation{
		GuestName:       guestName,
		CheckIn:         c.CheckIn,
		CheckOut:        c.CheckOut,
		NumGuests:       1,
		Source:          domain.SourceChannel,
		ReservationCode: c.ReservationCode,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.AcceptCandidate: %w", err)
	}
	return result, nil
}

// GetByID returns a single reservation by ID.
func (s *ReservationService) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	result, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.GetByID: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of reservations plus the total count.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ReservationService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	items, total, err := s.reservations.ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ReservationService.ListPaged: %w", err)
	}
	if items == nil {
		items = []domain.Reservation{}
	}
	return items, total, nil
}

// Update validates and persists changes to an existing reservation.
// The stay window of channel-linked records is immutable: moving dates on a
// reservation that carries an external code would silently fork it from the
// channel's copy, so that edit is refused.
func (s *ReservationService) Update(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	if err := validateReservation(r); err != nil {
		return domain.Reservation{}, err
	}

	existing, err := s.reservations.GetByID(ctx, r.ID)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Update: %w", err)
	}
	if existing.Cancelled() {
		return domain.Reservation{}, fmt.Errorf("%w: cancelled reservations cannot be edited", domain.ErrValidation)
	}
	if existing.ReservationCode != "" &&
		(r.CheckIn != existing.CheckIn || r.CheckOut != existing.CheckOut) {
		return domain.Reservation{}, fmt.Errorf("%w: the stay window of an externally linked reservation is immutable", domain.ErrValidation)
	}

	result, err := s.reservations.Update(ctx, r)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Update: %w", err)
	}
	return result, nil
}

// UpdateGuestLists replaces the companion and vehicle lists. This is the one
// write guests may perform on their own reservation after redeeming.
func (s *ReservationService) UpdateGuestLists(ctx context.Context, id uuid.UUID, companions []domain.Companion, vehicles []domain.Vehicle) (domain.Reservation, error) {
	existing, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.UpdateGuestLists: %w", err)
	}
	if existing.Cancelled() {
		return domain.Reservation{}, fmt.Errorf("%w: cancelled reservations cannot be edited", domain.ErrValidation)
	}

	result, err := s.reservations.UpdateGuestLists(ctx, id, companions, vehicles)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.UpdateGuestLists: %w", err)
	}
	return result, nil
}

// Cancel marks a reservation cancelled. One-way: there is no un-cancel;
// reactivation means creating a new reservation. The current-reservation
// cache is invalidated before returning so no concurrent read can serve the
// cancelled stay.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	result, err := s.reservations.Cancel(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.ReservationService.Cancel: %w", err)
	}
	if s.lifecycle != nil {
		s.lifecycle.Invalidate()
	}
	return result, nil
}

// Delete removes a reservation by ID. Operator-only; the lifecycle resolver
// never destroys records.
func (s *ReservationService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.reservations.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.ReservationService.Delete: %w", err)
	}
	if s.lifecycle != nil {
		s.lifecycle.Invalidate()
	}
	return nil
}

// validateReservation enforces business rules common to Create and Update.
//   - Guest name must be non-empty (whitespace-only names are rejected).
//   - Check-out must be strictly after check-in at day granularity.
func validateReservation(r domain.Reservation) error {
	if strings.TrimSpace(r.GuestName) == "" {
		return fmt.Errorf("%w: guest name is required", domain.ErrValidation)
	}
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return fmt.Errorf("%w: check-in and check-out dates are required", domain.ErrValidation)
	}
	if !r.CheckOut.After(r.CheckIn) {
		return fmt.Errorf("%w: check-out must be after check-in", domain.ErrValidation)
	}
	if r.NumGuests < 0 {
		return fmt.Errorf("%w: number of guests cannot be negative", domain.ErrValidation)
	}
	return nil
}
